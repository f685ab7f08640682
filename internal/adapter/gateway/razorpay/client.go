// Package razorpay is the domestic payment gateway: INR payment links paid
// out-of-band and confirmed by payment ID.
package razorpay

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/neomorfeo/tillpoint/internal/domain"
)

// DefaultBaseURL is the production API root.
const DefaultBaseURL = "https://api.razorpay.com"

// Compile-time check: Client implements domain.Gateway.
var _ domain.Gateway = (*Client)(nil)

// Config holds API credentials and where the payer returns after paying.
type Config struct {
	KeyID       string
	KeySecret   string
	BaseURL     string
	CallbackURL string
}

// Client talks to the payment links API.
type Client struct {
	cfg  Config
	http *http.Client
}

// New creates a client. A nil httpClient uses http.DefaultClient.
func New(cfg Config, httpClient *http.Client) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{cfg: cfg, http: httpClient}
}

type customer struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

type createLinkRequest struct {
	Amount         int64           `json:"amount"`
	Currency       string          `json:"currency"`
	Description    string          `json:"description,omitempty"`
	ReferenceID    string          `json:"reference_id"`
	Customer       customer        `json:"customer"`
	Notify         map[string]bool `json:"notify"`
	CallbackURL    string          `json:"callback_url,omitempty"`
	CallbackMethod string          `json:"callback_method,omitempty"`
}

type paymentLink struct {
	ID       string        `json:"id"`
	ShortURL string        `json:"short_url"`
	Status   string        `json:"status"`
	Payments []linkPayment `json:"payments"`
}

type linkPayment struct {
	PaymentID string `json:"payment_id"`
	Status    string `json:"status"`
}

type apiError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// CreateLink issues a payment link. Amounts are sent in the currency's minor
// unit (paise for INR).
func (c *Client) CreateLink(ctx context.Context, req domain.LinkRequest) (domain.Link, error) {
	body := createLinkRequest{
		Amount:      req.Amount.Shift(2).Round(0).IntPart(),
		Currency:    req.Currency,
		Description: req.Description,
		ReferenceID: req.Reference,
		Customer:    customer{Name: req.PayerName, Email: req.PayerEmail},
		Notify:      map[string]bool{"email": req.PayerEmail != ""},
	}
	if c.cfg.CallbackURL != "" {
		body.CallbackURL = c.cfg.CallbackURL
		body.CallbackMethod = "get"
	}

	var link paymentLink
	if err := c.do(ctx, "create link", http.MethodPost, "/v1/payment_links", body, &link); err != nil {
		return domain.Link{}, err
	}
	return domain.Link{ID: link.ID, URL: link.ShortURL}, nil
}

// Verify reports whether paymentID is a captured payment of a paid link.
func (c *Client) Verify(ctx context.Context, paymentID, linkID string) (bool, error) {
	var link paymentLink
	if err := c.do(ctx, "verify", http.MethodGet, "/v1/payment_links/"+url.PathEscape(linkID), nil, &link); err != nil {
		return false, err
	}
	if link.Status != "paid" {
		return false, nil
	}
	for _, p := range link.Payments {
		if p.PaymentID == paymentID && p.Status == "captured" {
			return true, nil
		}
	}
	return false, nil
}

// CallbackSignature computes the signature Razorpay appends to the payer's
// redirect after a payment link is completed.
func (c *Client) CallbackSignature(linkID, referenceID, status, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(c.cfg.KeySecret))
	mac.Write([]byte(linkID + "|" + referenceID + "|" + status + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// ValidCallback checks a redirect's signature in constant time.
func (c *Client) ValidCallback(linkID, referenceID, status, paymentID, signature string) bool {
	want := c.CallbackSignature(linkID, referenceID, status, paymentID)
	return hmac.Equal([]byte(want), []byte(strings.ToLower(signature)))
}

func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	var reqBody io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return c.fail(op, false, fmt.Errorf("encoding request: %w", err))
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reqBody)
	if err != nil {
		return c.fail(op, false, err)
	}
	req.SetBasicAuth(c.cfg.KeyID, c.cfg.KeySecret)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return c.fail(op, true, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return c.fail(op, true, fmt.Errorf("reading response: %w", err))
	}

	if resp.StatusCode >= 300 {
		var apiErr apiError
		msg := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error.Description != "" {
			msg = apiErr.Error.Code + ": " + apiErr.Error.Description
		}
		temporary := resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
		return c.fail(op, temporary, fmt.Errorf("status %d: %s", resp.StatusCode, msg))
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return c.fail(op, false, fmt.Errorf("decoding response: %w", err))
	}
	return nil
}

func (c *Client) fail(op string, temporary bool, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		temporary = true
	}
	return &domain.GatewayError{Method: domain.MethodRazorpay, Op: op, Temporary: temporary, Err: err}
}
