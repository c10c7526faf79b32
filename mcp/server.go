package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	bitpay "github.com/bitpay/bitpay-go"
)

// Tool names
const (
	ToolCreateInvoice      = "create_invoice"
	ToolGetInvoice         = "get_invoice"
	ToolVerifyNotification = "verify_notification"
)

// DefaultName and DefaultVersion identify the server to MCP clients
const (
	DefaultName    = "bitpay"
	DefaultVersion = "1.0.0"
)

// Server registers the bitpay tools on an MCP server
type Server struct {
	client   *bitpay.Client
	server   *mcpsdk.Server
	orderIDs func() string
}

// Option configures a Server
type Option func(*Server)

// WithImplementation overrides the name and version reported to clients
func WithImplementation(name, version string) Option {
	return func(s *Server) {
		s.server = mcpsdk.NewServer(&mcpsdk.Implementation{Name: name, Version: version}, nil)
	}
}

// WithOrderIDGenerator sets the generator used when create_invoice is
// called without order_id
func WithOrderIDGenerator(gen func() string) Option {
	return func(s *Server) {
		s.orderIDs = gen
	}
}

// NewServer creates an MCP server with the bitpay tools registered
func NewServer(client *bitpay.Client, opts ...Option) *Server {
	s := &Server{
		client: client,
		orderIDs: func() string {
			return bitpay.GenerateOrderID("")
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.server == nil {
		s.server = mcpsdk.NewServer(&mcpsdk.Implementation{
			Name:    DefaultName,
			Version: DefaultVersion,
		}, nil)
	}

	s.server.AddTool(&mcpsdk.Tool{
		Name:        ToolCreateInvoice,
		Description: "Create a BitPay invoice. pos_data is echoed back in notifications and must fit 100 characters once sealed.",
		InputSchema: map[string]interface{}{
			"type":     "object",
			"required": []string{"price"},
			"properties": map[string]interface{}{
				"price":              map[string]interface{}{"type": "number", "description": "Price in the invoice currency"},
				"currency":           map[string]interface{}{"type": "string", "description": "3 letter ISO currency code"},
				"order_id":           map[string]interface{}{"type": "string", "description": "Merchant order id, generated when omitted"},
				"pos_data":           map[string]interface{}{"description": "Any JSON value passed through to notifications"},
				"item_desc":          map[string]interface{}{"type": "string"},
				"notification_url":   map[string]interface{}{"type": "string"},
				"redirect_url":       map[string]interface{}{"type": "string"},
				"transaction_speed":  map[string]interface{}{"type": "string", "enum": []string{bitpay.SpeedHigh, bitpay.SpeedMedium, bitpay.SpeedLow}},
				"full_notifications": map[string]interface{}{"type": "boolean"},
			},
		},
	}, s.handleCreateInvoice)

	s.server.AddTool(&mcpsdk.Tool{
		Name:        ToolGetInvoice,
		Description: "Fetch a BitPay invoice by id",
		InputSchema: map[string]interface{}{
			"type":     "object",
			"required": []string{"id"},
			"properties": map[string]interface{}{
				"id": map[string]interface{}{"type": "string", "description": "Invoice id"},
			},
		},
	}, s.handleGetInvoice)

	s.server.AddTool(&mcpsdk.Tool{
		Name:        ToolVerifyNotification,
		Description: "Verify a raw BitPay notification body and return the invoice it carries",
		InputSchema: map[string]interface{}{
			"type":     "object",
			"required": []string{"body"},
			"properties": map[string]interface{}{
				"body": map[string]interface{}{"type": "string", "description": "The notification POST body"},
			},
		},
	}, s.handleVerifyNotification)

	return s
}

// MCPServer returns the underlying SDK server
func (s *Server) MCPServer() *mcpsdk.Server {
	return s.server
}

// Run serves the tools on transport until ctx is done or the client
// disconnects
func (s *Server) Run(ctx context.Context, transport mcpsdk.Transport) error {
	return s.server.Run(ctx, transport)
}

type createInvoiceArgs struct {
	Price             float64         `json:"price"`
	Currency          string          `json:"currency"`
	OrderID           string          `json:"order_id"`
	PosData           json.RawMessage `json:"pos_data"`
	ItemDesc          string          `json:"item_desc"`
	NotificationURL   string          `json:"notification_url"`
	RedirectURL       string          `json:"redirect_url"`
	TransactionSpeed  string          `json:"transaction_speed"`
	FullNotifications *bool           `json:"full_notifications"`
}

func (s *Server) handleCreateInvoice(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
	var args createInvoiceArgs
	if err := unmarshalArgs(req, &args); err != nil {
		return errorResult(err), nil
	}

	orderID := args.OrderID
	if orderID == "" {
		orderID = s.orderIDs()
	}

	invoiceReq := bitpay.InvoiceRequest{
		OrderID: orderID,
		Price:   args.Price,
		Options: bitpay.InvoiceOptions{
			Currency:          args.Currency,
			ItemDesc:          args.ItemDesc,
			NotificationURL:   args.NotificationURL,
			RedirectURL:       args.RedirectURL,
			TransactionSpeed:  args.TransactionSpeed,
			FullNotifications: args.FullNotifications,
		},
	}
	if len(args.PosData) > 0 && string(args.PosData) != "null" {
		invoiceReq.PosData = args.PosData
	}

	invoice, err := s.client.CreateInvoice(ctx, invoiceReq)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(invoice)
}

func (s *Server) handleGetInvoice(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
	var args struct {
		ID string `json:"id"`
	}
	if err := unmarshalArgs(req, &args); err != nil {
		return errorResult(err), nil
	}

	invoice, err := s.client.GetInvoice(ctx, args.ID)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(invoice)
}

func (s *Server) handleVerifyNotification(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
	var args struct {
		Body string `json:"body"`
	}
	if err := unmarshalArgs(req, &args); err != nil {
		return errorResult(err), nil
	}

	n, err := s.client.VerifyNotification([]byte(args.Body))
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(n)
}

func unmarshalArgs(req *mcpsdk.CallToolRequest, v any) error {
	if req.Params == nil || len(req.Params.Arguments) == 0 {
		return nil
	}
	if err := json.Unmarshal(req.Params.Arguments, v); err != nil {
		return fmt.Errorf("failed to unmarshal arguments: %w", err)
	}
	return nil
}

func jsonResult(v any) (*mcpsdk.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return errorResult(err), nil
	}
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(data)},
		},
	}, nil
}

func errorResult(err error) *mcpsdk.CallToolResult {
	text := err.Error()
	var bpErr *bitpay.Error
	if errors.As(err, &bpErr) {
		text = fmt.Sprintf("%s (%s): %s", bpErr.Code, bpErr.Kind, bpErr.Message)
	}
	return &mcpsdk.CallToolResult{
		IsError: true,
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: text},
		},
	}
}
