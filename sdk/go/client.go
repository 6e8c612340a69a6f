// Copyright (C) 2025, Gridmine Labs. All rights reserved.
// See the file LICENSE for licensing terms.

// Package minersdk is the Go client for the minerd HTTP API.
package minersdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/gridmine/gridmine/pkg/ledger"
	"github.com/gridmine/gridmine/pkg/multicall"
	"github.com/gridmine/gridmine/pkg/sale"
)

// Client talks to one minerd node.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the node at baseURL (e.g. "http://localhost:8080").
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// APIError is a non-2xx response from the node.
type APIError struct {
	Status    int
	RequestID string `json:"request_id"`
	Message   string `json:"error"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s (request %s)", e.Status, e.Message, e.RequestID)
}

// MineRequest is one claim attempt against a slot.
type MineRequest struct {
	Caller      string          `json:"caller"`
	Index       int             `json:"index"`
	EpochID     uint64          `json:"epoch_id"`
	Deadline    int64           `json:"deadline"` // unix seconds
	QuotedPrice decimal.Decimal `json:"quoted_price"`
	Payment     decimal.Decimal `json:"payment"`
	URI         string          `json:"uri"`
	Referrer    string          `json:"referrer,omitempty"`
}

// BuyRequest is one purchase attempt against the standalone sale.
type BuyRequest struct {
	Caller      string          `json:"caller"`
	Deadline    int64           `json:"deadline"`
	QuotedPrice decimal.Decimal `json:"quoted_price"`
	Payment     decimal.Decimal `json:"payment"`
}

// GetSlot fetches one slot view.
func (c *Client) GetSlot(ctx context.Context, index int) (ledger.SlotView, error) {
	var view ledger.SlotView
	err := c.get(ctx, fmt.Sprintf("/slot/%d", index), &view)
	return view, err
}

// GetSlots fetches the inclusive index range [from, to].
func (c *Client) GetSlots(ctx context.Context, from, to int) ([]ledger.SlotView, error) {
	var views []ledger.SlotView
	err := c.get(ctx, fmt.Sprintf("/slots?from=%d&to=%d", from, to), &views)
	return views, err
}

// GetMiner fetches the aggregate view for one address.
func (c *Client) GetMiner(ctx context.Context, addr string) (multicall.MinerView, error) {
	var view multicall.MinerView
	err := c.get(ctx, "/miner/"+addr, &view)
	return view, err
}

// GetPrice fetches the live standalone sale price.
func (c *Client) GetPrice(ctx context.Context) (decimal.Decimal, error) {
	var body struct {
		UnitPrice decimal.Decimal `json:"unit_price"`
	}
	err := c.get(ctx, "/price", &body)
	return body.UnitPrice, err
}

// GetMultipliers fetches the live weight table.
func (c *Client) GetMultipliers(ctx context.Context) ([]decimal.Decimal, error) {
	var body struct {
		Multipliers []decimal.Decimal `json:"multipliers"`
	}
	err := c.get(ctx, "/multipliers", &body)
	return body.Multipliers, err
}

// Mine submits a claim.
func (c *Client) Mine(ctx context.Context, req MineRequest) (ledger.ClaimReceipt, error) {
	var receipt ledger.ClaimReceipt
	err := c.post(ctx, "/mine", req, &receipt)
	return receipt, err
}

// Buy submits a standalone sale purchase.
func (c *Client) Buy(ctx context.Context, req BuyRequest) (sale.PurchaseReceipt, error) {
	var receipt sale.PurchaseReceipt
	err := c.post(ctx, "/buy", req, &receipt)
	return receipt, err
}

// SetMultipliers replaces the weight table. Caller must be the admin.
func (c *Client) SetMultipliers(ctx context.Context, caller string, weights []decimal.Decimal) error {
	body := map[string]any{"caller": caller, "multipliers": weights}
	return c.post(ctx, "/admin/multipliers", body, nil)
}

// SetTreasury redirects future claim payments. Caller must be the admin.
func (c *Client) SetTreasury(ctx context.Context, caller, treasury string) error {
	body := map[string]any{"caller": caller, "treasury": treasury}
	return c.post(ctx, "/admin/treasury", body, nil)
}

// SubscribeEvents opens the node's event feed and delivers claim events until
// the context is canceled or the connection drops, then closes the channel.
func (c *Client) SubscribeEvents(ctx context.Context) (<-chan ledger.ClaimEvent, error) {
	wsURL := "ws" + strings.TrimPrefix(c.baseURL, "http") + "/ws"

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing event feed: %w", err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	out := make(chan ledger.ClaimEvent, 64)
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()
	go func() {
		defer close(out)
		defer close(done)
		defer conn.Close()
		for {
			var ev ledger.ClaimEvent
			if err := conn.ReadJSON(&ev); err != nil {
				return
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{Status: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil {
			apiErr.Message = resp.Status
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
