package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func notificationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notification",
		Short: "Work with invoice notifications",
	}
	cmd.AddCommand(notificationVerifyCmd())
	return cmd
}

func notificationVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify [file]",
		Short: "Verify a notification body read from file or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.client.VerifyNotification(body)
			if err != nil {
				return err
			}
			return printJSON(cmd, n)
		},
	}
}

func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	body, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("read notification: %w", err)
	}
	return body, nil
}
