package mercadopago

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	domainErrors "github.com/agendasalud/payment-service/internal/domain/errors"
	"github.com/agendasalud/payment-service/internal/domain/provider"
)

const defaultBaseURL = "https://api.mercadopago.com"

// Client talks to the MercadoPago REST API. It implements
// provider.PaymentProvider.
type Client struct {
	baseURL     string
	accessToken string
	client      *http.Client
	logger      *zap.Logger
}

// NewClient creates a MercadoPago API client
func NewClient(accessToken, baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &Client{
		baseURL:     baseURL,
		accessToken: accessToken,
		client:      &http.Client{Timeout: timeout},
		logger:      logger,
	}
}

// do executes one API call and decodes the response into out. A nil out
// discards the body. notFound, when non-nil, is returned verbatim on 404.
func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}, notFound error) error {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return &provider.ProviderError{
				Code:    "MARSHAL_ERROR",
				Message: "Failed to prepare request",
				Details: err.Error(),
			}
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return &provider.ProviderError{
			Code:    "REQUEST_ERROR",
			Message: "Failed to create request",
			Details: err.Error(),
		}
	}

	httpReq.Header.Set("Authorization", "Bearer "+c.accessToken)
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		c.logger.Error("MercadoPago request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err))
		return &provider.ProviderError{
			Code:    "API_ERROR",
			Message: "MercadoPago API request failed",
			Details: err.Error(),
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &provider.ProviderError{
			Code:    "RESPONSE_ERROR",
			Message: "Failed to read response",
			Details: err.Error(),
		}
	}

	if resp.StatusCode == http.StatusNotFound && notFound != nil {
		return notFound
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errResp struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		json.Unmarshal(respBody, &errResp)

		c.logger.Error("MercadoPago API error",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status_code", resp.StatusCode),
			zap.String("response", string(respBody)))

		return &provider.ProviderError{
			Code:    errResp.Error,
			Message: errResp.Message,
			Details: string(respBody),
		}
	}

	if out == nil {
		return nil
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return &provider.ProviderError{
			Code:    "PARSE_ERROR",
			Message: "Failed to parse response",
			Details: err.Error(),
		}
	}

	return nil
}

type paymentResponse struct {
	ID                json.Number     `json:"id"`
	Status            string          `json:"status"`
	TransactionAmount decimal.Decimal `json:"transaction_amount"`
	CurrencyID        string          `json:"currency_id"`
	ExternalReference string          `json:"external_reference"`
}

// GetPayment fetches the authoritative payment record
// GET /v1/payments/{id}
func (c *Client) GetPayment(ctx context.Context, id string) (*provider.Payment, error) {
	var resp paymentResponse
	err := c.do(ctx, http.MethodGet, "/v1/payments/"+id, nil, &resp, domainErrors.ErrPaymentNotFound)
	if err != nil {
		return nil, err
	}

	return &provider.Payment{
		ID:                resp.ID.String(),
		Status:            resp.Status,
		TransactionAmount: resp.TransactionAmount,
		CurrencyID:        resp.CurrencyID,
		ExternalReference: resp.ExternalReference,
	}, nil
}

type preapprovalResponse struct {
	ID                string `json:"id"`
	Status            string `json:"status"`
	Reason            string `json:"reason"`
	NextPaymentDate   string `json:"next_payment_date"`
	PayerEmail        string `json:"payer_email"`
	ExternalReference string `json:"external_reference"`
	InitPoint         string `json:"init_point"`
}

func (r *preapprovalResponse) toDomain() *provider.Preapproval {
	pre := &provider.Preapproval{
		ID:                r.ID,
		Status:            r.Status,
		Reason:            r.Reason,
		PayerEmail:        r.PayerEmail,
		ExternalReference: r.ExternalReference,
		InitPoint:         r.InitPoint,
	}

	if r.NextPaymentDate != "" {
		if t, err := time.Parse(time.RFC3339, r.NextPaymentDate); err == nil {
			pre.NextPaymentDate = &t
		}
	}

	return pre
}

// GetPreapproval fetches the authoritative recurring mandate
// GET /preapproval/{id}
func (c *Client) GetPreapproval(ctx context.Context, id string) (*provider.Preapproval, error) {
	var resp preapprovalResponse
	err := c.do(ctx, http.MethodGet, "/preapproval/"+id, nil, &resp, domainErrors.ErrPreapprovalNotFound)
	if err != nil {
		return nil, err
	}
	return resp.toDomain(), nil
}

// preferenceItem is the wire form of a checkout item. Amounts go out as
// JSON numbers; decimal.Decimal would marshal as a quoted string, which
// the API rejects.
type preferenceItem struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	CurrencyID  string  `json:"currency_id"`
}

// CreatePreference creates a one-time checkout preference
// POST /checkout/preferences
func (c *Client) CreatePreference(ctx context.Context, req *provider.PreferenceRequest) (*provider.Preference, error) {
	items := make([]preferenceItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, preferenceItem{
			ID:          item.ID,
			Title:       item.Title,
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice.InexactFloat64(),
			CurrencyID:  item.CurrencyID,
		})
	}

	body := map[string]interface{}{
		"items":              items,
		"external_reference": req.ExternalReference,
	}
	if req.PayerEmail != "" {
		body["payer"] = map[string]string{
			"email": req.PayerEmail,
			"name":  req.PayerName,
		}
	}
	if len(req.BackURLs) > 0 {
		body["back_urls"] = req.BackURLs
		body["auto_return"] = "approved"
	}
	if req.NotificationURL != "" {
		body["notification_url"] = req.NotificationURL
	}
	if req.StatementDescriptor != "" {
		body["statement_descriptor"] = req.StatementDescriptor
	}

	var pref provider.Preference
	if err := c.do(ctx, http.MethodPost, "/checkout/preferences", body, &pref, nil); err != nil {
		return nil, err
	}

	c.logger.Info("Checkout preference created", zap.String("preference_id", pref.ID))
	return &pref, nil
}

// CreatePreapproval creates a recurring mandate in pending state; the
// payer authorizes it through the returned init point.
// POST /preapproval
func (c *Client) CreatePreapproval(ctx context.Context, req *provider.PreapprovalRequest) (*provider.Preapproval, error) {
	body := map[string]interface{}{
		"reason":             req.Reason,
		"payer_email":        req.PayerEmail,
		"back_url":           req.BackURL,
		"external_reference": req.ExternalReference,
		"status":             "pending",
		"auto_recurring": map[string]interface{}{
			"frequency":          req.FrequencyMonths,
			"frequency_type":     "months",
			"transaction_amount": req.TransactionAmount.InexactFloat64(),
			"currency_id":        req.CurrencyID,
			"start_date":         req.StartDate.Format(time.RFC3339),
		},
	}

	var resp preapprovalResponse
	if err := c.do(ctx, http.MethodPost, "/preapproval", body, &resp, nil); err != nil {
		return nil, err
	}

	c.logger.Info("Preapproval created", zap.String("preapproval_id", resp.ID))
	return resp.toDomain(), nil
}

// CancelPreapproval cancels a recurring mandate, stopping automatic charges
// PUT /preapproval/{id}
func (c *Client) CancelPreapproval(ctx context.Context, id string) error {
	body := map[string]string{"status": "cancelled"}

	err := c.do(ctx, http.MethodPut, "/preapproval/"+id, body, nil, domainErrors.ErrPreapprovalNotFound)
	if err != nil {
		return err
	}

	c.logger.Info("Preapproval cancelled", zap.String("preapproval_id", id))
	return nil
}

var _ provider.PaymentProvider = (*Client)(nil)
