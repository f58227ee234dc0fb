package crafting

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/park285/epic-reminder-bot/internal/extract"
)

type request struct {
	Area      int               `json:"area"`
	Inventory extract.Inventory `json:"inventory"`
	Recipe    map[string]int    `json:"recipe,omitempty"`
}

type futureResponse struct {
	Logs int64 `json:"logs"`
}

type canCraftResponse struct {
	OK bool `json:"ok"`
}

type howManyResponse struct {
	Count int64            `json:"count"`
	Total map[string]int64 `json:"total"`
}

// Client calls a crafting engine over HTTP with JSON bodies.
type Client struct {
	baseURL string
	http    *fasthttp.Client
	timeout time.Duration
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &fasthttp.Client{ReadTimeout: 5 * time.Second, WriteTimeout: 5 * time.Second, MaxConnsPerHost: 8},
		timeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) FutureValue(ctx context.Context, area int, inv extract.Inventory) (int64, error) {
	var out futureResponse
	if err := c.post(ctx, "/future", request{Area: area, Inventory: inv}, &out); err != nil {
		return 0, err
	}
	return out.Logs, nil
}

func (c *Client) CanCraft(ctx context.Context, area int, recipe map[string]int, inv extract.Inventory) (bool, error) {
	var out canCraftResponse
	if err := c.post(ctx, "/can-craft", request{Area: area, Inventory: inv, Recipe: recipe}, &out); err != nil {
		return false, err
	}
	return out.OK, nil
}

func (c *Client) HowMany(ctx context.Context, area int, recipe map[string]int, inv extract.Inventory) (int64, map[string]int64, error) {
	var out howManyResponse
	if err := c.post(ctx, "/how-many", request{Area: area, Inventory: inv, Recipe: recipe}, &out); err != nil {
		return 0, nil, err
	}
	return out.Count, out.Total, nil
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(fasthttp.MethodPost)
	req.SetRequestURI(c.baseURL + path)
	req.Header.SetContentType("application/json")
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req.SetBody(payload)

	deadline := time.Now().Add(c.timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if status := resp.StatusCode(); status < 200 || status >= 300 {
		return fmt.Errorf("%w: status=%d", ErrUnavailable, status)
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
