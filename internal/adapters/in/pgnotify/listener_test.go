package pgnotify_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"relay/internal/adapters/in/pgnotify"
	"relay/internal/core/application/router"
	"relay/internal/core/domain/model/event"
)

type MockRouter struct{ mock.Mock }

func (m *MockRouter) Route(ctx context.Context, from router.Sender, in event.Inbound) error {
	args := m.Called(ctx, from, in)
	return args.Error(0)
}

type fakeSource struct {
	ch chan *pq.Notification
}

func (s *fakeSource) Notifications() <-chan *pq.Notification { return s.ch }
func (s *fakeSource) Ping() error                            { return nil }
func (s *fakeSource) Close() error                           { return nil }

func TestListener_Run(t *testing.T) {
	t.Run("should route valid payloads as system events", func(t *testing.T) {
		source := &fakeSource{ch: make(chan *pq.Notification, 4)}
		r := &MockRouter{}
		r.On("Route", mock.Anything, router.System(), mock.MatchedBy(func(in event.Inbound) bool {
			return in.Type == event.StatusChanged
		})).Return(nil).Once()

		source.ch <- nil
		source.ch <- &pq.Notification{Channel: "order_changes", Extra: `{"event":"order:status_changed","data":{"orderId":"123","status":"preparing"}}`}
		source.ch <- &pq.Notification{Channel: "order_changes", Extra: `not json`}
		close(source.ch)

		err := pgnotify.NewListener(source, r, nil).Run(t.Context())

		require.NoError(t, err)
		r.AssertExpectations(t)
	})

	t.Run("should keep running after a rejected event", func(t *testing.T) {
		source := &fakeSource{ch: make(chan *pq.Notification, 2)}
		r := &MockRouter{}
		r.On("Route", mock.Anything, router.System(), mock.Anything).Return(errors.New("boom")).Twice()

		payload := `{"event":"order:status_changed","data":{"orderId":"123","status":"delivered"}}`
		source.ch <- &pq.Notification{Extra: payload}
		source.ch <- &pq.Notification{Extra: payload}
		close(source.ch)

		require.NoError(t, pgnotify.NewListener(source, r, nil).Run(t.Context()))
		r.AssertExpectations(t)
	})

	t.Run("should stop when the context is done", func(t *testing.T) {
		source := &fakeSource{ch: make(chan *pq.Notification)}
		ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
		defer cancel()

		err := pgnotify.NewListener(source, &MockRouter{}, nil).Run(ctx)

		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}
