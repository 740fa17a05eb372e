package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	httpin "relay/internal/adapters/in/http"
	"relay/internal/core/application/router"
	"relay/internal/core/application/usecases/queries"
	"relay/internal/core/domain/model/event"
	"relay/internal/core/domain/model/kernel"
	"relay/internal/core/domain/model/order"
	"relay/internal/core/domain/services"
	"relay/internal/hub"
	"relay/internal/pkg/errs"
)

type MockEventRouter struct{ mock.Mock }

func (m *MockEventRouter) Route(ctx context.Context, from router.Sender, in event.Inbound) error {
	args := m.Called(ctx, from, in)
	return args.Error(0)
}

type fixture struct {
	echo   *echo.Echo
	router *MockEventRouter
	orders *services.OrderStateMachine
	rooms  *hub.Directory
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		echo:   echo.New(),
		router: &MockEventRouter{},
		orders: services.NewOrderStateMachine(nil),
		rooms:  hub.NewDirectory(nil),
	}
	server, err := httpin.NewServer(f.router, f.rooms, queries.NewGetOrderQueryHandler(f.orders, nil))
	require.NoError(t, err)

	noop := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) })
	server.Register(f.echo, noop, noop)
	return f
}

func (f *fixture) do(method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	f.echo.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) httpin.Error {
	t.Helper()
	var body httpin.Error
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestServer_GetHealth(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Healthy", rec.Body.String())
}

func TestServer_PublishEvent(t *testing.T) {
	const body = `{"event":"order:status_changed","data":{"orderId":"123","status":"preparing"}}`

	t.Run("should route the event as system", func(t *testing.T) {
		f := newFixture(t)
		f.router.On("Route", mock.Anything, router.System(), mock.MatchedBy(func(in event.Inbound) bool {
			return in.Type == event.StatusChanged && strings.Contains(string(in.Data), `"preparing"`)
		})).Return(nil)

		rec := f.do(http.MethodPost, "/api/v1/events", body)

		assert.Equal(t, http.StatusAccepted, rec.Code)
		f.router.AssertExpectations(t)
	})

	t.Run("should reject bodies that are not json", func(t *testing.T) {
		f := newFixture(t)

		rec := f.do(http.MethodPost, "/api/v1/events", `{"event":`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, router.CodeMalformedEvent, decodeError(t, rec).Reason)
		f.router.AssertNotCalled(t, "Route", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("should reject bodies that break the envelope schema", func(t *testing.T) {
		f := newFixture(t)

		rec := f.do(http.MethodPost, "/api/v1/events", `{"event":"ping","extra":true}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		f.router.AssertNotCalled(t, "Route", mock.Anything, mock.Anything, mock.Anything)
	})

	cases := []struct {
		name   string
		err    error
		status int
		reason string
	}{
		{"invalid transition", fmt.Errorf("route: %w", order.ErrInvalidTransition), http.StatusConflict, router.CodeInvalidTransition},
		{"unknown order", errs.NewObjectNotFoundError("orderId", "123"), http.StatusNotFound, router.CodeNotFound},
		{"role", fmt.Errorf("%w: system may not emit cart:update", router.ErrRoleNotAllowed), http.StatusBadRequest, router.CodeRoleNotAllowed},
		{"malformed", fmt.Errorf("%w: missing status", router.ErrMalformedEvent), http.StatusBadRequest, router.CodeMalformedEvent},
		{"internal", assert.AnError, http.StatusInternalServerError, router.CodeInternal},
	}
	for _, tc := range cases {
		t.Run("should map "+tc.name+" errors", func(t *testing.T) {
			f := newFixture(t)
			f.router.On("Route", mock.Anything, router.System(), mock.Anything).Return(tc.err)

			rec := f.do(http.MethodPost, "/api/v1/events", body)

			assert.Equal(t, tc.status, rec.Code)
			got := decodeError(t, rec)
			assert.Equal(t, tc.status, got.Code)
			assert.Equal(t, tc.reason, got.Reason)
		})
	}
}

func TestServer_GetRooms(t *testing.T) {
	f := newFixture(t)
	f.rooms.Join(kernel.OrderRoom(kernel.MustEntityID("123")), hub.NewConnection(1, time.Now()))
	f.rooms.Join(kernel.AdminRoom, hub.NewConnection(1, time.Now()))

	rec := f.do(http.MethodGet, "/api/v1/rooms", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var stats []hub.RoomStat
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, []hub.RoomStat{{Key: "admin", Members: 1}, {Key: "order:123", Members: 1}}, stats)
}

func TestServer_GetOrder(t *testing.T) {
	t.Run("should return the cached snapshot", func(t *testing.T) {
		f := newFixture(t)
		placedAt := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
		o, err := order.NewOrder(kernel.MustEntityID("123"), kernel.MustEntityID("c1"), kernel.MustEntityID("v1"), placedAt)
		require.NoError(t, err)
		f.orders.Register(o)

		rec := f.do(http.MethodGet, "/api/v1/orders/123", "")

		require.Equal(t, http.StatusOK, rec.Code)
		var got queries.GetOrderQueryResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, "123", got.ID)
		assert.Equal(t, "confirmed", got.Status)
		assert.Equal(t, "v1", got.VendorID)
		assert.Nil(t, got.DriverID)
		assert.Nil(t, got.LastKnown)
	})

	t.Run("should report unknown orders", func(t *testing.T) {
		f := newFixture(t)

		rec := f.do(http.MethodGet, "/api/v1/orders/999", "")

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("should reject identifiers with a colon", func(t *testing.T) {
		f := newFixture(t)

		rec := f.do(http.MethodGet, "/api/v1/orders/order:1", "")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestServer_MountsTransportRoutes(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusTeapot, f.do(http.MethodGet, "/ws", "").Code)
	assert.Equal(t, http.StatusTeapot, f.do(http.MethodGet, "/metrics", "").Code)

	rec := f.do(http.MethodGet, "/swagger/doc.json", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Order Relay")
}
