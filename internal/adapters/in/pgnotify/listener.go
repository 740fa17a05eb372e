// Package pgnotify follows order changes published by the REST service's
// database with NOTIFY and routes them as system events.
package pgnotify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"relay/internal/core/application/router"
	"relay/internal/core/domain/model/event"
)

const (
	minReconnectInterval = time.Second
	maxReconnectInterval = time.Minute
	pingInterval         = 90 * time.Second
)

// Router routes decoded notifications.
type Router interface {
	Route(ctx context.Context, from router.Sender, in event.Inbound) error
}

// Source delivers notifications. A nil notification means the connection was
// re-established and notifications may have been lost.
type Source interface {
	Notifications() <-chan *pq.Notification
	Ping() error
	Close() error
}

// Listener routes every notification payload as a system event.
type Listener struct {
	source Source
	router Router
	logger *slog.Logger
}

func NewListener(source Source, r Router, logger *slog.Logger) *Listener {
	if logger == nil {
		logger = slog.Default()
	}
	return &Listener{
		source: source,
		router: r,
		logger: logger.With("component", "order_change_listener"),
	}
}

// Run blocks until ctx is done or the source closes its channel.
func (l *Listener) Run(ctx context.Context) error {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case n, ok := <-l.source.Notifications():
			if !ok {
				return nil
			}
			if n == nil {
				l.logger.Warn("listener reconnected, order changes may have been missed")
				continue
			}
			l.handle(ctx, n)
		case <-ticker.C:
			if err := l.source.Ping(); err != nil {
				l.logger.Warn("listener ping failed", "error", err)
			}
		}
	}
}

func (l *Listener) handle(ctx context.Context, n *pq.Notification) {
	in, err := event.DecodeFrame([]byte(n.Extra))
	if err != nil {
		l.logger.Warn("malformed notification", "channel", n.Channel, "error", err)
		return
	}
	if err = l.router.Route(ctx, router.System(), in); err != nil {
		l.logger.Warn("notification rejected",
			"channel", n.Channel, "event", string(in.Type), "code", router.Code(err), "error", err)
	}
}

// PQSource is a Source backed by a lib/pq listener connection.
type PQSource struct {
	listener *pq.Listener
}

// NewPQSource opens a dedicated connection and subscribes to channel.
func NewPQSource(dsn, channel string, logger *slog.Logger) (*PQSource, error) {
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "order_change_listener", "channel", channel)

	listener := pq.NewListener(dsn, minReconnectInterval, maxReconnectInterval,
		func(ev pq.ListenerEventType, err error) {
			switch ev {
			case pq.ListenerEventConnected:
				log.Info("listener connected")
			case pq.ListenerEventDisconnected:
				log.Warn("listener disconnected", "error", err)
			case pq.ListenerEventReconnected:
				log.Info("listener reconnected")
			case pq.ListenerEventConnectionAttemptFailed:
				log.Warn("listener connection attempt failed", "error", err)
			}
		})
	if err := listener.Listen(channel); err != nil {
		_ = listener.Close()
		return nil, fmt.Errorf("listen on %s: %w", channel, err)
	}
	return &PQSource{listener: listener}, nil
}

func (s *PQSource) Notifications() <-chan *pq.Notification { return s.listener.Notify }
func (s *PQSource) Ping() error                            { return s.listener.Ping() }
func (s *PQSource) Close() error                           { return s.listener.Close() }
