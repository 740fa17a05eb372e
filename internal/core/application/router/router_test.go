package router_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relay/internal/auth"
	"relay/internal/cartsync"
	"relay/internal/core/application/router"
	"relay/internal/core/domain/model/event"
	"relay/internal/core/domain/model/kernel"
	"relay/internal/core/domain/model/order"
	"relay/internal/core/domain/services"
	"relay/internal/hub"
	"relay/internal/tracking"
)

type frame struct {
	Event string         `json:"event"`
	Data  map[string]any `json:"data"`
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type harness struct {
	registry *hub.Registry
	orders   *services.OrderStateMachine
	tracker  *tracking.Aggregator
	router   *router.Router
	clock    *clock
}

func newHarness(t *testing.T, verifier router.JoinVerifier) *harness {
	t.Helper()
	clk := &clock{now: time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)}
	registry := hub.NewRegistry(hub.NewDirectory(nil), nil, nil)
	orders := services.NewOrderStateMachine(nil)
	broadcaster := router.NewBroadcaster(registry.Rooms(), clk.Now, nil, nil)
	tracker := tracking.NewAggregator(orders, broadcaster, time.Second, nil, nil)

	deps := router.Dependencies{
		Registry:    registry,
		Orders:      orders,
		Tracker:     tracker,
		Carts:       cartsync.NewService(registry, clk.Now, nil),
		Broadcaster: broadcaster,
		Now:         clk.Now,
	}
	if verifier != nil {
		deps.Verifier = verifier
	}

	return &harness{
		registry: registry,
		orders:   orders,
		tracker:  tracker,
		router:   router.New(deps),
		clock:    clk,
	}
}

func (h *harness) connect(t *testing.T) *hub.Connection {
	t.Helper()
	c := hub.NewConnection(32, h.clock.Now())
	h.registry.Register(c)
	return c
}

func (h *harness) send(t *testing.T, c *hub.Connection, typ event.Type, data string) error {
	t.Helper()
	return h.router.Route(t.Context(), router.FromConnection(c), event.Inbound{Type: typ, Data: json.RawMessage(data)})
}

func (h *harness) system(t *testing.T, typ event.Type, data string) error {
	t.Helper()
	return h.router.Route(t.Context(), router.System(), event.Inbound{Type: typ, Data: json.RawMessage(data)})
}

func drain(t *testing.T, c *hub.Connection) []frame {
	t.Helper()
	var frames []frame
	for {
		select {
		case raw := <-c.Outbound():
			var f frame
			require.NoError(t, json.Unmarshal(raw, &f))
			frames = append(frames, f)
		default:
			return frames
		}
	}
}

func events(frames []frame) []string {
	names := make([]string, 0, len(frames))
	for _, f := range frames {
		names = append(names, f.Event)
	}
	return names
}

func TestRouter_RoomIsolation(t *testing.T) {
	h := newHarness(t, nil)
	customerA := h.connect(t)
	customerB := h.connect(t)
	vendor := h.connect(t)

	require.NoError(t, h.send(t, customerA, event.OrderTrack, `{"orderId":"123"}`))
	require.NoError(t, h.send(t, customerB, event.OrderTrack, `{"orderId":"456"}`))
	require.NoError(t, h.send(t, vendor, event.VendorJoin, `{"vendorId":"v1"}`))
	drain(t, customerA)
	drain(t, customerB)
	drain(t, vendor)

	require.NoError(t, h.system(t, event.OrderNew, `{"orderId":"123","vendorId":"v1","customerId":"cA"}`))
	require.NoError(t, h.system(t, event.OrderNew, `{"orderId":"456","vendorId":"v2","customerId":"cB"}`))
	require.NoError(t, h.system(t, event.StatusChanged, `{"orderId":"123","status":"preparing"}`))

	gotA := drain(t, customerA)
	require.Len(t, gotA, 1)
	assert.Equal(t, "order:status_changed", gotA[0].Event)
	assert.Equal(t, "123", gotA[0].Data["orderId"])
	assert.Equal(t, "preparing", gotA[0].Data["status"])

	assert.Empty(t, drain(t, customerB))
	assert.Equal(t, []string{"order:new", "order:status_changed"}, events(drain(t, vendor)))
}

func TestRouter_InvalidTransitionReportedToSenderOnly(t *testing.T) {
	h := newHarness(t, nil)
	customer := h.connect(t)
	vendor := h.connect(t)

	require.NoError(t, h.send(t, customer, event.OrderTrack, `{"orderId":"123"}`))
	require.NoError(t, h.send(t, vendor, event.VendorJoin, `{"vendorId":"v1"}`))
	require.NoError(t, h.system(t, event.OrderNew, `{"orderId":"123","vendorId":"v1","customerId":"c1"}`))
	for _, status := range []string{"preparing", "out_for_delivery", "delivered"} {
		require.NoError(t, h.send(t, vendor, event.StatusChanged, `{"orderId":"123","status":"`+status+`"}`))
	}
	drain(t, customer)
	drain(t, vendor)

	err := h.send(t, vendor, event.StatusChanged, `{"orderId":"123","status":"preparing"}`)

	require.ErrorIs(t, err, order.ErrInvalidTransition)
	assert.Empty(t, drain(t, customer))
	got := drain(t, vendor)
	require.Len(t, got, 1)
	assert.Equal(t, "error", got[0].Event)
	assert.Equal(t, router.CodeInvalidTransition, got[0].Data["code"])
	assert.Equal(t, "order:status_changed", got[0].Data["event"])

	cached, err := h.orders.Get(t.Context(), kernel.MustEntityID("123"))
	require.NoError(t, err)
	assert.Equal(t, order.Delivered, cached.Status())
}

func TestRouter_OneCopyPerConnection(t *testing.T) {
	h := newHarness(t, nil)
	admin := h.connect(t)

	require.NoError(t, h.send(t, admin, event.AdminJoin, `{}`))
	require.NoError(t, h.send(t, admin, event.OrderTrack, `{"orderId":"123"}`))
	assert.Equal(t, kernel.RoleAdmin, admin.Role())
	drain(t, admin)

	require.NoError(t, h.system(t, event.OrderNew, `{"orderId":"123","vendorId":"v1","customerId":"c1"}`))
	require.NoError(t, h.system(t, event.StatusChanged, `{"orderId":"123","status":"preparing"}`))

	assert.Equal(t, []string{"order:new", "order:status_changed"}, events(drain(t, admin)))
}

func TestRouter_DriverAssignedIsRoleShaped(t *testing.T) {
	h := newHarness(t, nil)
	customer := h.connect(t)
	driver := h.connect(t)
	admin := h.connect(t)
	vendor := h.connect(t)

	require.NoError(t, h.send(t, customer, event.OrderTrack, `{"orderId":"123"}`))
	require.NoError(t, h.send(t, driver, event.DriverJoin, `{"driverId":"d1"}`))
	require.NoError(t, h.send(t, admin, event.AdminJoin, `{}`))
	require.NoError(t, h.send(t, vendor, event.VendorJoin, `{"vendorId":"v1"}`))
	require.NoError(t, h.system(t, event.OrderNew, `{"orderId":"123","vendorId":"v1","customerId":"c1"}`))
	for _, c := range []*hub.Connection{customer, driver, admin, vendor} {
		drain(t, c)
	}

	require.NoError(t, h.send(t, vendor, event.DriverAssign,
		`{"orderId":"123","driverId":"d1","driver":{"name":"Sam","phone":"+100"},"orderDetails":{"items":3}}`))

	gotCustomer := drain(t, customer)
	require.Len(t, gotCustomer, 1)
	assert.Equal(t, map[string]any{
		"orderId": "123",
		"driver":  map[string]any{"name": "Sam", "phone": "+100"},
	}, gotCustomer[0].Data)

	for _, full := range []*hub.Connection{driver, admin} {
		got := drain(t, full)
		require.Len(t, got, 1)
		assert.Equal(t, "d1", got[0].Data["driverId"])
		assert.Equal(t, map[string]any{"items": float64(3)}, got[0].Data["orderDetails"])
	}

	assert.Empty(t, drain(t, vendor))

	cached, err := h.orders.Get(t.Context(), kernel.MustEntityID("123"))
	require.NoError(t, err)
	assert.True(t, cached.HasDriver(kernel.MustEntityID("d1")))
}

func TestRouter_LocationStream(t *testing.T) {
	h := newHarness(t, nil)
	customer := h.connect(t)
	driver := h.connect(t)
	admin := h.connect(t)

	require.NoError(t, h.send(t, customer, event.OrderTrack, `{"orderId":"123"}`))
	require.NoError(t, h.send(t, driver, event.DriverJoin, `{"driverId":"d1"}`))
	require.NoError(t, h.send(t, admin, event.AdminJoin, `{}`))
	require.NoError(t, h.system(t, event.OrderNew, `{"orderId":"123","vendorId":"v1","customerId":"c1"}`))
	require.NoError(t, h.system(t, event.DriverAssign, `{"orderId":"123","driverId":"d1"}`))
	require.NoError(t, h.system(t, event.StatusChanged, `{"orderId":"123","status":"preparing"}`))
	require.NoError(t, h.system(t, event.StatusChanged, `{"orderId":"123","status":"out_for_delivery"}`))
	for _, c := range []*hub.Connection{customer, driver, admin} {
		drain(t, c)
	}

	update := func(seq string) error {
		return h.send(t, driver, event.LocationInput,
			`{"driverId":"d1","orderId":"123","lat":52.52,"lng":13.405,"sequence":`+seq+`}`)
	}

	require.NoError(t, update("5"))
	h.clock.Advance(100 * time.Millisecond)
	require.NoError(t, update("3"), "stale samples are dropped silently")
	h.clock.Advance(100 * time.Millisecond)
	require.NoError(t, update("7"))
	h.tracker.Flush(h.clock.Now().Add(time.Second))

	gotCustomer := drain(t, customer)
	require.Len(t, gotCustomer, 2)
	assert.Equal(t, "driver:location", gotCustomer[0].Event)
	assert.NotContains(t, gotCustomer[0].Data, "driverId")
	assert.Equal(t, map[string]any{"lat": 52.52, "lng": 13.405}, gotCustomer[0].Data["location"])

	gotAdmin := drain(t, admin)
	require.Len(t, gotAdmin, 2)
	assert.Equal(t, "d1", gotAdmin[0].Data["driverId"])
	assert.InDelta(t, 5, gotAdmin[0].Data["sequence"], 0)
	assert.InDelta(t, 7, gotAdmin[1].Data["sequence"], 0)

	assert.Empty(t, drain(t, driver), "drivers are not in the order room")

	require.NoError(t, h.system(t, event.StatusChanged, `{"orderId":"123","status":"delivered"}`))
	_, ok := h.tracker.LastKnown(kernel.MustEntityID("123"))
	assert.False(t, ok, "leaving out_for_delivery forgets the stream")
}

func TestRouter_RoleChecks(t *testing.T) {
	t.Run("customer cannot change status", func(t *testing.T) {
		h := newHarness(t, nil)
		customer := h.connect(t)
		require.NoError(t, h.send(t, customer, event.OrderTrack, `{"orderId":"123"}`))
		drain(t, customer)

		err := h.send(t, customer, event.StatusChanged, `{"orderId":"123","status":"preparing"}`)

		require.ErrorIs(t, err, router.ErrRoleNotAllowed)
		got := drain(t, customer)
		require.Len(t, got, 1)
		assert.Equal(t, router.CodeRoleNotAllowed, got[0].Data["code"])
	})

	t.Run("first declared role wins", func(t *testing.T) {
		h := newHarness(t, nil)
		c := h.connect(t)
		require.NoError(t, h.send(t, c, event.OrderTrack, `{"orderId":"123"}`))

		err := h.send(t, c, event.VendorJoin, `{"vendorId":"v1"}`)

		require.ErrorIs(t, err, router.ErrRoleNotAllowed)
		assert.False(t, h.registry.Rooms().Exists(kernel.VendorRoom(kernel.MustEntityID("v1"))))
	})

	t.Run("location updates are driver only", func(t *testing.T) {
		h := newHarness(t, nil)
		err := h.system(t, event.LocationInput, `{"driverId":"d1","orderId":"1","lat":1,"lng":1,"sequence":1}`)
		require.ErrorIs(t, err, router.ErrRoleNotAllowed)
	})

	t.Run("system cannot join rooms", func(t *testing.T) {
		h := newHarness(t, nil)
		err := h.system(t, event.AdminJoin, `{}`)
		require.ErrorIs(t, err, router.ErrRoleNotAllowed)
	})
}

func TestRouter_MalformedEvents(t *testing.T) {
	h := newHarness(t, nil)
	c := h.connect(t)

	tests := []struct {
		typ  event.Type
		data string
	}{
		{event.OrderTrack, `{}`},
		{event.OrderTrack, `{"orderId":42}`},
		{event.StatusChanged, `{"orderId":"1","status":"teleported"}`},
		{event.DriverLocation, `{"orderId":"1"}`},
		{"nonsense", `{}`},
	}
	for _, tt := range tests {
		err := h.send(t, c, tt.typ, tt.data)
		require.ErrorIs(t, err, router.ErrMalformedEvent, "%s %s", tt.typ, tt.data)
	}

	got := drain(t, c)
	require.Len(t, got, len(tests))
	for _, f := range got {
		assert.Equal(t, router.CodeMalformedEvent, f.Data["code"])
	}
	assert.Equal(t, kernel.RoleUnknown, c.Role())
}

func TestRouter_UnknownOrder(t *testing.T) {
	h := newHarness(t, nil)

	err := h.system(t, event.StatusChanged, `{"orderId":"missing","status":"preparing"}`)

	assert.Equal(t, router.CodeNotFound, router.Code(err))
}

func TestRouter_JoinAckUntrackAndPing(t *testing.T) {
	h := newHarness(t, nil)
	c := h.connect(t)

	require.NoError(t, h.send(t, c, event.OrderTrack, `{"orderId":"123"}`))
	require.NoError(t, h.send(t, c, event.OrderTrack, `{"orderId":"123"}`))
	require.NoError(t, h.send(t, c, event.OrderUntrack, `{"orderId":"123"}`))
	require.NoError(t, h.send(t, c, event.Ping, ``))

	got := drain(t, c)
	assert.Equal(t, []string{"joined", "joined", "left", "pong"}, events(got))
	assert.Equal(t, "order:123", got[0].Data["room"])
	assert.False(t, h.registry.Rooms().Exists(kernel.OrderRoom(kernel.MustEntityID("123"))))
}

func TestRouter_CartUpdateIsNotEchoed(t *testing.T) {
	h := newHarness(t, nil)
	phone := h.connect(t)
	laptop := h.connect(t)
	require.NoError(t, h.send(t, phone, event.CartJoin, `{"cartId":"k1"}`))
	require.NoError(t, h.send(t, laptop, event.CartJoin, `{"cartId":"k1"}`))
	drain(t, phone)
	drain(t, laptop)

	require.NoError(t, h.send(t, phone, event.CartUpdate, `{"cartId":"k1","cartSnapshot":{"items":[]}}`))

	assert.Empty(t, drain(t, phone))
	got := drain(t, laptop)
	require.Len(t, got, 1)
	assert.Equal(t, "cart:update", got[0].Event)
	assert.Equal(t, map[string]any{"items": []any{}}, got[0].Data["cartSnapshot"])
}

func TestRouter_JoinCapabilities(t *testing.T) {
	caps := auth.NewCapabilityService("secret", time.Hour)
	h := newHarness(t, caps)
	c := h.connect(t)

	err := h.send(t, c, event.OrderTrack, `{"orderId":"123"}`)
	require.ErrorIs(t, err, auth.ErrInvalidToken)
	assert.Equal(t, kernel.RoleUnknown, c.Role(), "rejected joins declare no role")

	token, err := caps.Issue("c1", kernel.RoleCustomer, "order:123")
	require.NoError(t, err)

	err = h.router.Route(t.Context(), router.FromConnection(c), event.Inbound{
		Type:  event.OrderTrack,
		Data:  json.RawMessage(`{"orderId":"123"}`),
		Token: token,
	})
	require.NoError(t, err)

	got := drain(t, c)
	assert.Equal(t, []string{"error", "joined"}, events(got))
	assert.Equal(t, router.CodeUnauthorized, got[0].Data["code"])
}

// holdingCache parks the first accepted transition to hold until released.
type holdingCache struct {
	*services.OrderStateMachine
	hold     order.Status
	accepted chan struct{}
	release  chan struct{}
	once     sync.Once
}

func (c *holdingCache) Transition(
	ctx context.Context,
	id kernel.EntityID,
	next order.Status,
	at time.Time,
) (*order.Order, error) {
	o, err := c.OrderStateMachine.Transition(ctx, id, next, at)
	if err == nil && next == c.hold {
		c.once.Do(func() {
			close(c.accepted)
			<-c.release
		})
	}
	return o, err
}

func TestRouter_StatusBroadcastFollowsAcceptOrder(t *testing.T) {
	clk := &clock{now: time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)}
	registry := hub.NewRegistry(hub.NewDirectory(nil), nil, nil)
	cache := &holdingCache{
		OrderStateMachine: services.NewOrderStateMachine(nil),
		hold:              order.Preparing,
		accepted:          make(chan struct{}),
		release:           make(chan struct{}),
	}
	broadcaster := router.NewBroadcaster(registry.Rooms(), clk.Now, nil, nil)
	r := router.New(router.Dependencies{
		Registry:    registry,
		Orders:      cache,
		Tracker:     tracking.NewAggregator(cache.OrderStateMachine, broadcaster, time.Second, nil, nil),
		Carts:       cartsync.NewService(registry, clk.Now, nil),
		Broadcaster: broadcaster,
		Now:         clk.Now,
	})
	route := func(typ event.Type, data string) error {
		return r.Route(context.Background(), router.System(), event.Inbound{Type: typ, Data: json.RawMessage(data)})
	}

	customer := hub.NewConnection(32, clk.Now())
	registry.Register(customer)
	require.NoError(t, r.Route(t.Context(), router.FromConnection(customer), event.Inbound{
		Type: event.OrderTrack,
		Data: json.RawMessage(`{"orderId":"123"}`),
	}))
	require.NoError(t, route(event.OrderNew, `{"orderId":"123","vendorId":"v1","customerId":"c1"}`))
	drain(t, customer)

	first := make(chan error, 1)
	go func() { first <- route(event.StatusChanged, `{"orderId":"123","status":"preparing"}`) }()
	<-cache.accepted

	second := make(chan error, 1)
	go func() { second <- route(event.StatusChanged, `{"orderId":"123","status":"out_for_delivery"}`) }()

	select {
	case err := <-second:
		t.Fatalf("second transition finished while the first was still broadcasting: %v", err)
	case <-time.After(50 * time.Millisecond):
	}
	close(cache.release)

	require.NoError(t, <-first)
	require.NoError(t, <-second)

	got := drain(t, customer)
	statuses := make([]any, 0, len(got))
	for _, f := range got {
		statuses = append(statuses, f.Data["status"])
	}
	assert.Equal(t, []any{"preparing", "out_for_delivery"}, statuses)
}
