/**
 * @description
 * This package provides a client for interacting with the Plaid API. It
 * encapsulates the logic for making authenticated HTTP requests to the
 * endpoints the service needs for bank-account linkage: link token
 * creation, public token exchange, and liability retrieval.
 *
 * @dependencies
 * - bytes, context, encoding/json, fmt, io, net/http, time: Standard Go libraries.
 * - The service's internal domain package for Plaid request/response models.
 */
package plaidclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/loanapp/loan-service/internal/domain"
)

// plaidVersion pins the API version every request is made against.
const plaidVersion = "2020-09-14"

// Client is a client for the Plaid API.
type Client struct {
	baseURL    string
	clientID   string
	secret     string
	clientName string
	httpClient *http.Client
}

// NewClient creates a new Plaid API client. clientName is shown to the end
// user inside the Plaid Link flow.
func NewClient(baseURL, clientID, secret, clientName string) *Client {
	return &Client{
		baseURL:    baseURL,
		clientID:   clientID,
		secret:     secret,
		clientName: clientName,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// CreateLinkToken requests a link token for the given user. The scopes match
// what the intake flow needs: auth, liabilities and assets.
func (c *Client) CreateLinkToken(ctx context.Context, userID string) (*domain.PlaidLinkTokenCreateResponse, error) {
	req := domain.PlaidLinkTokenCreateRequest{
		ClientID:     c.clientID,
		Secret:       c.secret,
		User:         domain.PlaidLinkTokenUser{ClientUserID: userID},
		ClientName:   c.clientName,
		Products:     []string{"auth", "liabilities", "assets"},
		CountryCodes: []string{"US", "CA"},
		Language:     "en",
	}
	var resp domain.PlaidLinkTokenCreateResponse
	if err := c.do(ctx, "/link/token/create", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ExchangePublicToken swaps the public token produced by Plaid Link for the
// per-user access token and item id the service stores.
func (c *Client) ExchangePublicToken(ctx context.Context, publicToken string) (*domain.PlaidPublicTokenExchangeResponse, error) {
	req := domain.PlaidPublicTokenExchangeRequest{
		ClientID:    c.clientID,
		Secret:      c.secret,
		PublicToken: publicToken,
	}
	var resp domain.PlaidPublicTokenExchangeResponse
	if err := c.do(ctx, "/item/public_token/exchange", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetLiabilities fetches the liability report for a linked item.
func (c *Client) GetLiabilities(ctx context.Context, accessToken string) (*domain.PlaidLiabilitiesGetResponse, error) {
	req := domain.PlaidLiabilitiesGetRequest{
		ClientID:    c.clientID,
		Secret:      c.secret,
		AccessToken: accessToken,
	}
	var resp domain.PlaidLiabilitiesGetResponse
	if err := c.do(ctx, "/liabilities/get", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// do is a helper function to make HTTP requests to the Plaid API.
func (c *Client) do(ctx context.Context, path string, body, target interface{}) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Plaid-Version", plaidVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("plaid request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read plaid response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("plaid returned status %d for %s: %s", resp.StatusCode, path, string(respBody))
	}

	if target != nil {
		if err := json.Unmarshal(respBody, target); err != nil {
			return fmt.Errorf("failed to decode plaid response: %w", err)
		}
	}
	return nil
}
