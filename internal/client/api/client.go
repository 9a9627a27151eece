// Package api is the HTTP client for the wallet server. It speaks the
// JSON API under /api and translates transport and server failures into
// errors the CLI can branch on with errors.Is.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = errors.New("unauthorized")
)

// APIError carries the server-reported message for a non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// Profile is the public view of a wallet account.
type Profile struct {
	PhoneNumber   string  `json:"phoneNumber"`
	WalletAddress string  `json:"walletAddress"`
	IsActive      bool    `json:"isActive"`
	Frozen        bool    `json:"frozen"`
	CreatedAt     string  `json:"createdAt"`
	Balance       float64 `json:"balance"`
}

// Transaction mirrors the server's ledger record.
type Transaction struct {
	ID        string  `json:"id"`
	From      string  `json:"from"`
	To        string  `json:"to"`
	Amount    float64 `json:"amount"`
	Fee       float64 `json:"fee"`
	Total     float64 `json:"total"`
	Timestamp string  `json:"timestamp"`
	Status    string  `json:"status"`
	Type      string  `json:"type"`
	Reason    string  `json:"reason,omitempty"`
}

// TransferResult is the receipt for a completed transfer.
type TransferResult struct {
	Amount        float64 `json:"amount"`
	Fee           float64 `json:"fee"`
	Total         float64 `json:"total"`
	Recipient     string  `json:"recipient"`
	TransactionID string  `json:"transactionId"`
}

// LoginResult bundles the session token with the wallet snapshot the
// server returns on login.
type LoginResult struct {
	Token  string   `json:"token"`
	Wallet *Profile `json:"wallet"`
}

type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// SetToken installs the session token sent with subsequent requests.
func (c *Client) SetToken(token string) {
	c.token = token
}

func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/health", nil, nil)
}

func (c *Client) Register(ctx context.Context, phone string, password []byte) error {
	body := map[string]string{"phoneNumber": phone, "password": string(password)}
	return c.do(ctx, http.MethodPost, "/api/register", body, nil)
}

func (c *Client) Login(ctx context.Context, phone string, password []byte) (*LoginResult, error) {
	body := map[string]string{"phoneNumber": phone, "password": string(password)}
	var res LoginResult
	if err := c.do(ctx, http.MethodPost, "/api/login", body, &res); err != nil {
		return nil, err
	}
	c.token = res.Token
	return &res, nil
}

func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/api/logout", nil, nil)
	c.token = ""
	return err
}

func (c *Client) Wallet(ctx context.Context) (*Profile, error) {
	var p Profile
	if err := c.do(ctx, http.MethodGet, "/api/wallet", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) Transactions(ctx context.Context) ([]*Transaction, error) {
	var txs []*Transaction
	if err := c.do(ctx, http.MethodGet, "/api/transactions", nil, &txs); err != nil {
		return nil, err
	}
	return txs, nil
}

func (c *Client) Transfer(ctx context.Context, to string, amount float64, password []byte) (*TransferResult, error) {
	body := map[string]any{"to": to, "amount": amount, "password": string(password)}
	var res TransferResult
	if err := c.do(ctx, http.MethodPost, "/api/transfer", body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) Faucet(ctx context.Context, amount float64) (*Transaction, error) {
	body := map[string]any{"amount": amount}
	var tx Transaction
	if err := c.do(ctx, http.MethodPost, "/api/faucet", body, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

// do issues one request and decodes the response into out when non-nil.
// Connection failures map to ErrUnavailable, 401s to ErrUnauthorized and
// every other non-2xx status to an *APIError with the server's message.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body *bytes.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrUnavailable, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		var apiErr struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil || apiErr.Error == "" {
			apiErr.Error = resp.Status
		}
		return &APIError{Status: resp.StatusCode, Message: apiErr.Error}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return err
		}
	}
	return nil
}
