// Package billing is the boundary to the hosted payments platform:
// checkout/portal session creation, invoice listing, and the webhook sync
// that mirrors subscription state into the local store.
package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/LIAG-ORGANISATION/lupi-sub001/internal/models"
)

// Provider is the payment-platform surface this service consumes.
type Provider interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (RedirectSession, error)
	CreatePortalSession(ctx context.Context, customerRef, returnURL string) (RedirectSession, error)
	ListInvoices(ctx context.Context, customerRef string) ([]models.Invoice, error)
}

// CheckoutRequest describes a new checkout session.
type CheckoutRequest struct {
	CustomerRef string `json:"customer_ref"`
	PriceRef    string `json:"price_ref"`
	SuccessURL  string `json:"success_url"`
	CancelURL   string `json:"cancel_url"`
}

// RedirectSession is a provider-hosted page the client is sent to.
type RedirectSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Client talks to the provider's REST API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient constructs a provider client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// CreateCheckoutSession creates a hosted checkout page.
func (c *Client) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (RedirectSession, error) {
	var session RedirectSession
	err := c.post(ctx, "/v1/checkout/sessions", req, &session)
	return session, err
}

// CreatePortalSession creates a hosted customer-portal page.
func (c *Client) CreatePortalSession(ctx context.Context, customerRef, returnURL string) (RedirectSession, error) {
	var session RedirectSession
	err := c.post(ctx, "/v1/portal/sessions", map[string]string{
		"customer_ref": customerRef,
		"return_url":   returnURL,
	}, &session)
	return session, err
}

// ListInvoices returns the customer's invoices, newest first.
func (c *Client) ListInvoices(ctx context.Context, customerRef string) ([]models.Invoice, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/v1/invoices?customer_ref="+customerRef, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("provider returned status %d", resp.StatusCode)
	}

	var out struct {
		Invoices []models.Invoice `json:"invoices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out.Invoices, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("provider returned status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
