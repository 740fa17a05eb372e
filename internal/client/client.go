// Package client is the participant side of the relay: it keeps one websocket
// open, re-joins its rooms after every reconnect and hands received events to
// a handler. The relay never replays missed events, so every reconnect also
// triggers a resync hook through which the app refetches state from REST.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"

	"relay/internal/core/domain/model/event"
	"relay/internal/core/domain/model/kernel"
)

var ErrNotConnected = errors.New("not connected")

const writeWait = 10 * time.Second

// Frame is an event received from the relay.
type Frame struct {
	Type      event.Type      `json:"event"`
	Data      json.RawMessage `json:"data,omitempty"`
	EmittedAt time.Time       `json:"emittedAt"`
}

// Config describes one participant session.
type Config struct {
	// URL is the relay websocket endpoint, see Endpoint.
	URL string
	// Role is declared on connect. RoleUnknown declares nothing.
	Role kernel.Role
	// Joins are sent, in order, after every successful connect.
	Joins []event.Inbound
	// Backoff builds the reconnect policy. Defaults to an exponential backoff
	// that never gives up.
	Backoff func() backoff.BackOff
	// StableAfter is how long a session must last before the reconnect delay
	// starts over. Shorter sessions wait out the backoff before redialing.
	// Defaults to 30s.
	StableAfter time.Duration
}

// Client is a reconnecting relay connection.
type Client struct {
	cfg     Config
	dialer  *websocket.Dialer
	handler func(Frame)
	resync  func(context.Context)
	logger  *slog.Logger

	mu   sync.Mutex
	conn *websocket.Conn
}

// New creates a client. resync may be nil.
func New(cfg Config, handler func(Frame), resync func(context.Context), logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Backoff == nil {
		cfg.Backoff = func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.MaxInterval = 30 * time.Second
			b.MaxElapsedTime = 0
			return b
		}
	}
	if cfg.StableAfter <= 0 {
		cfg.StableAfter = 30 * time.Second
	}
	if resync == nil {
		resync = func(context.Context) {}
	}
	return &Client{
		cfg:     cfg,
		dialer:  websocket.DefaultDialer,
		handler: handler,
		resync:  resync,
		logger:  logger.With("component", "relay_client"),
	}
}

// Run connects and keeps reconnecting until ctx is done. A session that ends
// before StableAfter counts as a failed attempt, so a relay that accepts and
// immediately drops the socket is redialed with backoff.
func (c *Client) Run(ctx context.Context) error {
	target, err := c.target()
	if err != nil {
		return err
	}

	retry := backoff.WithContext(c.cfg.Backoff(), ctx)
	for {
		conn, err := c.connect(ctx, target)
		if err != nil {
			return err
		}

		started := time.Now()
		err = c.session(ctx, conn)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if time.Since(started) >= c.cfg.StableAfter {
			retry.Reset()
			c.logger.Warn("connection lost, reconnecting", "error", err)
			continue
		}

		wait := retry.NextBackOff()
		if wait == backoff.Stop {
			return fmt.Errorf("relay keeps dropping the connection: %w", err)
		}
		c.logger.Warn("connection lost, reconnecting", "error", err, "retryIn", wait)
		if err = sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Send writes one event on the current connection.
func (c *Client) Send(in event.Inbound) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}
	return c.writeLocked(in)
}

func (c *Client) target() (string, error) {
	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return "", fmt.Errorf("parse relay url: %w", err)
	}
	if c.cfg.Role != kernel.RoleUnknown {
		q := u.Query()
		q.Set("role", c.cfg.Role.String())
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func (c *Client) connect(ctx context.Context, target string) (*websocket.Conn, error) {
	var conn *websocket.Conn
	dial := func() error {
		ws, resp, err := c.dialer.DialContext(ctx, target, nil)
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		if err != nil {
			return err
		}
		conn = ws
		return nil
	}
	notify := func(err error, wait time.Duration) {
		c.logger.Warn("dial failed", "error", err, "retryIn", wait)
	}

	if err := backoff.RetryNotify(dial, backoff.WithContext(c.cfg.Backoff(), ctx), notify); err != nil {
		return nil, err
	}
	return conn, nil
}

func (c *Client) session(ctx context.Context, conn *websocket.Conn) error {
	c.mu.Lock()
	c.conn = conn
	for _, join := range c.cfg.Joins {
		if err := c.writeLocked(join); err != nil {
			c.conn = nil
			c.mu.Unlock()
			_ = conn.Close()
			return err
		}
	}
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		_ = conn.Close()
	}()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	c.logger.Info("connected", "rooms", len(c.cfg.Joins))
	c.resync(ctx)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var f Frame
		if err = json.Unmarshal(data, &f); err != nil {
			c.logger.Warn("undecodable frame", "error", err)
			continue
		}
		c.handler(f)
	}
}

func (c *Client) writeLocked(in event.Inbound) error {
	data, err := json.Marshal(in)
	if err != nil {
		return err
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck
	return c.conn.WriteMessage(websocket.TextMessage, data)
}
