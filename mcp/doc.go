// Package mcp exposes the bitpay client as MCP (Model Context Protocol) tools.
//
// # Server Usage
//
//	client, _ := bphttp.NewClient(cfg)
//	server := mcp.NewServer(client)
//	if err := server.Run(ctx, &mcpsdk.StdioTransport{}); err != nil {
//	    log.Fatal(err)
//	}
//
// # Tools
//
//   - create_invoice: creates an invoice, posData is sealed with the API key
//   - get_invoice: fetches an invoice and unwraps its posData
//   - verify_notification: checks a raw notification body
//
// Tool failures are reported as results with IsError set, never as
// protocol errors, so the model sees the bitpay error code and message.
package mcp
