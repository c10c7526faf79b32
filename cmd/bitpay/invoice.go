package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	bitpay "github.com/bitpay/bitpay-go"
)

func invoiceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invoice",
		Short: "Create and fetch invoices",
	}
	cmd.AddCommand(invoiceCreateCmd())
	cmd.AddCommand(invoiceGetCmd())
	return cmd
}

type invoiceFlags struct {
	orderID          string
	price            float64
	currency         string
	posData          string
	itemDesc         string
	notificationURL  string
	redirectURL      string
	transactionSpeed string
}

func invoiceCreateCmd() *cobra.Command {
	var flags invoiceFlags

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an invoice",
		Long: `Create an invoice.

Examples:
  bitpay invoice create --price 10 --currency USD
  bitpay invoice create --price 0.01 --pos-data '{"customer_id":1000000}'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := flags.request()
			if err != nil {
				return err
			}

			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.Close()

			invoice, err := a.client.CreateInvoice(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printJSON(cmd, invoice)
		},
	}

	cmd.Flags().StringVar(&flags.orderID, "order-id", "", "order id (generated when empty)")
	cmd.Flags().Float64Var(&flags.price, "price", 0, "price in the invoice currency")
	cmd.Flags().StringVar(&flags.currency, "currency", "", "3 letter currency code")
	cmd.Flags().StringVar(&flags.posData, "pos-data", "", "JSON passed through to notifications")
	cmd.Flags().StringVar(&flags.itemDesc, "item-desc", "", "item description")
	cmd.Flags().StringVar(&flags.notificationURL, "notification-url", "", "where BitPay posts status changes")
	cmd.Flags().StringVar(&flags.redirectURL, "redirect-url", "", "where the buyer returns after paying")
	cmd.Flags().StringVar(&flags.transactionSpeed, "speed", "", "transaction speed: high, medium or low")
	_ = cmd.MarkFlagRequired("price")

	return cmd
}

// request builds the InvoiceRequest; pos-data must be valid JSON
func (f invoiceFlags) request() (bitpay.InvoiceRequest, error) {
	orderID := f.orderID
	if orderID == "" {
		orderID = bitpay.GenerateOrderID("")
	}

	req := bitpay.InvoiceRequest{
		OrderID: orderID,
		Price:   f.price,
		Options: bitpay.InvoiceOptions{
			Currency:         f.currency,
			ItemDesc:         f.itemDesc,
			NotificationURL:  f.notificationURL,
			RedirectURL:      f.redirectURL,
			TransactionSpeed: f.transactionSpeed,
		},
	}
	if f.posData != "" {
		if !json.Valid([]byte(f.posData)) {
			return bitpay.InvoiceRequest{}, fmt.Errorf("--pos-data is not valid JSON")
		}
		req.PosData = json.RawMessage(f.posData)
	}
	return req, nil
}

func invoiceGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get [id]",
		Short: "Fetch an invoice",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.Close()

			invoice, err := a.client.GetInvoice(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, invoice)
		},
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
