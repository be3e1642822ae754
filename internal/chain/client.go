package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"solanaetl/internal/metrics"
)

// Config holds connection settings shared by every client of a job.
type Config struct {
	// URIs is the ordered provider list; later entries are fallbacks.
	URIs []string
	// Timeout bounds a single batched round trip. Zero disables it.
	Timeout time.Duration
	// RateLimit caps batched calls per second. Zero disables it.
	RateLimit float64
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
}

// ParseURIs splits a comma-separated provider list.
func ParseURIs(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Client issues batched JSON-RPC calls over go-ethereum's rpc transport.
type Client struct {
	uris    []string
	conns   []*rpc.Client
	timeout time.Duration
	limiter *rate.Limiter
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewClient dials every provider URI in cfg.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if len(cfg.URIs) == 0 {
		return nil, fmt.Errorf("at least one provider uri is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{
		uris:    cfg.URIs,
		timeout: cfg.Timeout,
		metrics: cfg.Metrics,
		logger:  logger,
	}
	if cfg.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	for _, uri := range cfg.URIs {
		conn, err := rpc.DialContext(ctx, uri)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("dial %s: %w", uri, err)
		}
		c.conns = append(c.conns, conn)
	}
	return c, nil
}

// NewClients dials n independent clients, one per executor worker.
func NewClients(ctx context.Context, cfg Config, n int) ([]*Client, error) {
	if n <= 0 {
		n = 1
	}
	clients := make([]*Client, 0, n)
	for i := 0; i < n; i++ {
		c, err := NewClient(ctx, cfg)
		if err != nil {
			CloseAll(clients)
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, nil
}

// CloseAll closes every client in clients.
func CloseAll(clients []*Client) {
	for _, c := range clients {
		c.Close()
	}
}

// Close closes the underlying RPC connections.
func (c *Client) Close() {
	for _, conn := range c.conns {
		conn.Close()
	}
}

// BatchCall sends reqs as one batch. Transport failures move on to the next
// provider URI; when every URI fails the last error is returned. Per-request
// errors are reported in the matching Response.
func (c *Client) BatchCall(ctx context.Context, reqs []Request) ([]Response, error) {
	if len(reqs) == 0 {
		return nil, nil
	}
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	method := reqs[0].Method
	var lastErr error
	for i, conn := range c.conns {
		results := make([]json.RawMessage, len(reqs))
		elems := make([]rpc.BatchElem, len(reqs))
		for j, req := range reqs {
			elems[j] = rpc.BatchElem{Method: req.Method, Args: req.Params, Result: &results[j]}
		}

		start := time.Now()
		err := c.call(ctx, conn, elems)
		duration := time.Since(start).Seconds()
		if err != nil {
			c.metrics.RecordRPCCall(method, "transport_error", len(reqs), duration)
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = classifyTransport(fmt.Errorf("%s batch via %s: %w", method, c.uris[i], err))
			if i+1 < len(c.conns) {
				c.logger.Warn("provider failed, trying next",
					zap.String("method", method),
					zap.String("uri", c.uris[i]),
					zap.Error(err),
				)
				c.metrics.RecordFallback(method)
			}
			continue
		}

		out := make([]Response, len(reqs))
		failed := 0
		for j := range elems {
			out[j] = Response{Result: results[j], Err: responseError(elems[j].Error)}
			if out[j].Err != nil {
				failed++
			}
		}
		c.metrics.RecordRPCCall(method, "ok", len(reqs)-failed, duration)
		if failed > 0 {
			c.metrics.RecordRPCCall(method, "error", failed, 0)
		}
		return out, nil
	}
	return nil, lastErr
}

// Call sends a single request and resolves its value.
func (c *Client) Call(ctx context.Context, req Request) (json.RawMessage, error) {
	resp, err := c.BatchCall(ctx, []Request{req})
	if err != nil {
		return nil, err
	}
	result, ok, err := resp[0].Value()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%s: no result", req.Method)
	}
	return result, nil
}

// LatestSlot returns the node's current slot.
func (c *Client) LatestSlot(ctx context.Context) (uint64, error) {
	raw, err := c.Call(ctx, GetSlot())
	if err != nil {
		return 0, err
	}
	var slot uint64
	if err := json.Unmarshal(raw, &slot); err != nil {
		return 0, fmt.Errorf("decode slot: %w", err)
	}
	return slot, nil
}

func (c *Client) call(ctx context.Context, conn *rpc.Client, elems []rpc.BatchElem) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return conn.BatchCallContext(ctx, elems)
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	r := c.limiter.Reserve()
	if !r.OK() {
		return fmt.Errorf("rate: cannot reserve token")
	}
	delay := r.Delay()
	if delay <= 0 {
		return nil
	}
	c.metrics.RecordRateLimitWait()
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		r.Cancel()
		return ctx.Err()
	}
}

// classifyTransport marks network failures, timeouts, throttling and server
// errors retriable. Other HTTP statuses stay fatal.
func classifyTransport(err error) error {
	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.StatusCode == http.StatusTooManyRequests || httpErr.StatusCode >= http.StatusInternalServerError {
			return Retriable(err)
		}
		return err
	}
	return Retriable(err)
}
