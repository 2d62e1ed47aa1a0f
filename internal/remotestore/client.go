// Package remotestore is the client for the spreadsheet-row backend. Each
// call is one HTTP round trip; nothing is retried here.
package remotestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kjannette/trahn-journal/internal/httputil"
	"github.com/kjannette/trahn-journal/internal/models"
)

// PlaceholderEndpoint is the value shipped in the sample configuration. An
// endpoint still set to it has not been configured.
const PlaceholderEndpoint = "YOUR_GOOGLE_APPS_SCRIPT_URL_HERE"

var (
	ErrNotConfigured = errors.New("remote store endpoint is not configured")
	ErrTransport     = errors.New("remote store request failed")
	ErrRemote        = errors.New("remote store reported an error")
)

// RemoteError is an application-level failure reported by the backend with
// status "error".
type RemoteError struct {
	Action  string
	Message string
}

func (e *RemoteError) Error() string {
	if e.Action == "" {
		return fmt.Sprintf("remote store: %s", e.Message)
	}
	return fmt.Sprintf("remote store %s: %s", e.Action, e.Message)
}

func (e *RemoteError) Is(target error) bool {
	return target == ErrRemote
}

// Configured reports whether endpoint is set to a real value.
func Configured(endpoint string) bool {
	endpoint = strings.TrimSpace(endpoint)
	return endpoint != "" && endpoint != PlaceholderEndpoint
}

// Action names the POST operations of the wire contract.
type Action string

const (
	ActionAdd    Action = "add"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Request is the POST body.
type Request struct {
	Action Action        `json:"action"`
	Trade  *models.Trade `json:"trade,omitempty"`
	ID     *int64        `json:"id,omitempty"`
}

// Ack is the backend's reply to a mutating call.
type Ack struct {
	Status  string        `json:"status"`
	Message string        `json:"message"`
	Trade   *models.Trade `json:"trade,omitempty"`
}

type listResponse struct {
	Trades  []models.Trade `json:"trades"`
	Status  string         `json:"status,omitempty"`
	Message string         `json:"message,omitempty"`
}

type Config struct {
	Endpoint string
	// Timeout bounds a single round trip. Zero leaves calls unbounded.
	Timeout    time.Duration
	HTTPClient *http.Client
}

type Client struct {
	endpoint   string
	httpClient *http.Client
}

func New(cfg Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		endpoint:   strings.TrimSpace(cfg.Endpoint),
		httpClient: hc,
	}
}

func (c *Client) Configured() bool {
	return Configured(c.endpoint)
}

func (c *Client) check() error {
	if !c.Configured() {
		return ErrNotConfigured
	}
	return nil
}

// List fetches every stored trade.
func (c *Client) List(ctx context.Context) ([]models.Trade, error) {
	if err := c.check(); err != nil {
		return nil, err
	}

	resp, err := httputil.Do(ctx, c.httpClient, httputil.NoRetry, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: list: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if err := statusErr("list", resp); err != nil {
		return nil, err
	}

	var out listResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: list: decode: %v", ErrTransport, err)
	}
	if out.Status == "error" {
		return nil, &RemoteError{Action: "list", Message: out.Message}
	}

	trades := out.Trades
	if trades == nil {
		trades = []models.Trade{}
	}
	for i := range trades {
		trades[i].Normalize()
	}
	return trades, nil
}

func (c *Client) Add(ctx context.Context, t models.Trade) (Ack, error) {
	return c.post(ctx, Request{Action: ActionAdd, Trade: &t})
}

func (c *Client) Update(ctx context.Context, t models.Trade) (Ack, error) {
	return c.post(ctx, Request{Action: ActionUpdate, Trade: &t})
}

func (c *Client) Delete(ctx context.Context, id int64) (Ack, error) {
	return c.post(ctx, Request{Action: ActionDelete, ID: &id})
}

func (c *Client) post(ctx context.Context, r Request) (Ack, error) {
	if err := c.check(); err != nil {
		return Ack{}, err
	}

	body, err := json.Marshal(r)
	if err != nil {
		return Ack{}, fmt.Errorf("marshal %s request: %w", r.Action, err)
	}

	resp, err := httputil.Do(ctx, c.httpClient, httputil.NoRetry, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		// Apps Script web apps only accept simple CORS requests.
		req.Header.Set("Content-Type", "text/plain;charset=utf-8")
		return req, nil
	})
	if err != nil {
		return Ack{}, fmt.Errorf("%w: %s: %v", ErrTransport, r.Action, err)
	}
	defer resp.Body.Close()

	if err := statusErr(string(r.Action), resp); err != nil {
		return Ack{}, err
	}

	var ack Ack
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return Ack{}, fmt.Errorf("%w: %s: decode: %v", ErrTransport, r.Action, err)
	}
	if ack.Status != "success" {
		msg := ack.Message
		if msg == "" {
			msg = "Unknown error"
		}
		return ack, &RemoteError{Action: string(r.Action), Message: msg}
	}
	return ack, nil
}

func statusErr(op string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("%w: %s: HTTP %d: %s", ErrTransport, op, resp.StatusCode, strings.TrimSpace(string(body)))
}
