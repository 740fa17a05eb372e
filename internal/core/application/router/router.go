// Package router is the relay's event router. It validates every inbound event,
// checks that the sender's role may emit it, applies its effect to the order
// cache or the room directory, and fans role-shaped copies out to the
// destination rooms. Rejections are reported to the originating connection only.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"relay/internal/cartsync"
	"relay/internal/core/application/usecases/commands"
	"relay/internal/core/domain/model/event"
	"relay/internal/core/domain/model/kernel"
	"relay/internal/core/domain/model/location"
	"relay/internal/core/domain/model/order"
	"relay/internal/core/ports"
	"relay/internal/hub"
	"relay/internal/tracking"
)

// Sender identifies the origin of an event. Events injected by the REST system
// of record carry RoleSystem and no connection.
type Sender struct {
	ConnID kernel.UUID
	Role   kernel.Role
}

// System is the sender of events published over HTTP or database notifications.
func System() Sender {
	return Sender{Role: kernel.RoleSystem}
}

// FromConnection builds the sender for an event read off c.
func FromConnection(c *hub.Connection) Sender {
	return Sender{ConnID: c.ID(), Role: c.Role()}
}

func (s Sender) hasConnection() bool {
	return s.ConnID.Validate() == nil
}

// JoinVerifier checks join capabilities. A nil verifier trusts every join.
type JoinVerifier interface {
	VerifyJoin(token string, role kernel.Role, room kernel.RoomKey) error
}

// LocationIngester is the aggregator as seen by the router.
type LocationIngester interface {
	ports.LocationTracker
	Ingest(sample location.Sample) (tracking.Outcome, error)
}

// Observer counts routed and rejected events and dropped frames.
type Observer interface {
	EventRouted(eventType string)
	EventRejected(eventType, code string)
	FrameDropped()
}

type nopObserver struct{}

func (nopObserver) EventRouted(string)           {}
func (nopObserver) EventRejected(string, string) {}
func (nopObserver) FrameDropped()                {}

// Dependencies wires the router. Verifier, Observer, Now and Logger are optional.
type Dependencies struct {
	Registry    *hub.Registry
	Orders      ports.OrderCache
	Tracker     LocationIngester
	Carts       *cartsync.Service
	Broadcaster *Broadcaster
	Verifier    JoinVerifier
	Observer    Observer
	Now         func() time.Time
	Logger      *slog.Logger
}

type Router struct {
	registry    *hub.Registry
	orders      ports.OrderCache
	tracker     LocationIngester
	carts       *cartsync.Service
	broadcaster *Broadcaster
	verifier    JoinVerifier
	observer    Observer
	now         func() time.Time
	logger      *slog.Logger

	registerOrder commands.RegisterOrderCommandHandler
	changeStatus  commands.ChangeOrderStatusCommandHandler
	assignDriver  commands.AssignDriverCommandHandler

	orderLocks *orderLocks
}

func New(deps Dependencies) *Router {
	if deps.Observer == nil {
		deps.Observer = nopObserver{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Router{
		registry:      deps.Registry,
		orders:        deps.Orders,
		tracker:       deps.Tracker,
		carts:         deps.Carts,
		broadcaster:   deps.Broadcaster,
		verifier:      deps.Verifier,
		observer:      deps.Observer,
		now:           deps.Now,
		logger:        deps.Logger.With("component", "event_router"),
		registerOrder: commands.NewRegisterOrderCommandHandler(deps.Orders),
		changeStatus:  commands.NewChangeOrderStatusCommandHandler(deps.Orders, deps.Tracker),
		assignDriver:  commands.NewAssignDriverCommandHandler(deps.Orders),
		orderLocks:    newOrderLocks(),
	}
}

// Route handles one inbound event. A rejection is logged, sent back to the
// sender's connection as an error event, and returned.
func (r *Router) Route(ctx context.Context, from Sender, in event.Inbound) error {
	if err := r.route(ctx, from, in); err != nil {
		r.reject(from, in.Type, err)
		return err
	}
	r.observer.EventRouted(string(in.Type))
	return nil
}

func (r *Router) route(ctx context.Context, from Sender, in event.Inbound) error {
	if err := event.ValidateData(in.Type, in.Data); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedEvent, err)
	}

	if role, ok := getJoinRoles()[in.Type]; ok {
		return r.join(from, in, role)
	}

	switch in.Type {
	case event.OrderUntrack:
		return r.untrack(from, in)
	case event.CartLeave:
		return r.leaveCart(from, in)
	case event.Ping:
		r.reply(from, event.Pong, nil)
		return nil
	}

	if !CanEmit(from.Role, in.Type) {
		return fmt.Errorf("%w: %s may not emit %s", ErrRoleNotAllowed, from.Role, in.Type)
	}

	switch in.Type {
	case event.OrderNew:
		return r.newOrder(ctx, in)
	case event.StatusChanged:
		return r.statusChanged(ctx, in)
	case event.DriverAssign:
		return r.driverAssigned(ctx, in)
	case event.LocationInput:
		return r.locationUpdate(in)
	case event.DriverNearby:
		return r.driverNearby(ctx, in)
	case event.CartUpdate:
		return r.cartUpdate(from, in)
	}
	return fmt.Errorf("%w: %w: %q", ErrMalformedEvent, event.ErrUnknownType, in.Type)
}

func (r *Router) join(from Sender, in event.Inbound, role kernel.Role) error {
	if !from.hasConnection() {
		return fmt.Errorf("%w: %s cannot join rooms", ErrRoleNotAllowed, from.Role)
	}

	room, err := joinRoom(in)
	if err != nil {
		return err
	}

	// Admins may follow any order without becoming customers.
	if in.Type == event.OrderTrack && from.Role == kernel.RoleAdmin {
		role = kernel.RoleAdmin
	}

	if r.verifier != nil {
		if err = r.verifier.VerifyJoin(in.Token, role, room); err != nil {
			return err
		}
	}

	if err = r.registry.MarkRole(from.ConnID, role); err != nil {
		return fmt.Errorf("%w: %w", ErrRoleNotAllowed, err)
	}

	if in.Type == event.CartJoin {
		_, err = r.carts.Join(from.ConnID, room.ID())
	} else {
		err = r.registry.Join(from.ConnID, room)
	}
	if err != nil {
		return err
	}

	r.logger.Debug("joined room", "connection", from.ConnID.String(), "room", room.String(), "role", role.String())
	r.reply(from, event.Joined, event.RoomPayload{Room: room.String()})
	return nil
}

func joinRoom(in event.Inbound) (kernel.RoomKey, error) {
	switch in.Type {
	case event.OrderTrack:
		var p event.TrackOrderPayload
		id, err := decodeID(in.Data, &p, func() string { return p.OrderID }, "orderId")
		return kernel.OrderRoom(id), err
	case event.VendorJoin:
		var p event.VendorJoinPayload
		id, err := decodeID(in.Data, &p, func() string { return p.VendorID }, "vendorId")
		return kernel.VendorRoom(id), err
	case event.DriverJoin:
		var p event.DriverJoinPayload
		id, err := decodeID(in.Data, &p, func() string { return p.DriverID }, "driverId")
		return kernel.DriverRoom(id), err
	case event.CartJoin:
		var p event.CartJoinPayload
		id, err := decodeID(in.Data, &p, func() string { return p.CartID }, "cartId")
		return kernel.CartRoom(id), err
	case event.AdminJoin:
		return kernel.AdminRoom, nil
	}
	return kernel.RoomKey{}, fmt.Errorf("%w: %q is not a join", ErrMalformedEvent, in.Type)
}

func (r *Router) untrack(from Sender, in event.Inbound) error {
	var p event.TrackOrderPayload
	id, err := decodeID(in.Data, &p, func() string { return p.OrderID }, "orderId")
	if err != nil {
		return err
	}
	room := kernel.OrderRoom(id)
	if from.hasConnection() {
		r.registry.Leave(from.ConnID, room)
	}
	r.reply(from, event.Left, event.RoomPayload{Room: room.String()})
	return nil
}

func (r *Router) leaveCart(from Sender, in event.Inbound) error {
	var p event.CartJoinPayload
	id, err := decodeID(in.Data, &p, func() string { return p.CartID }, "cartId")
	if err != nil {
		return err
	}
	room := kernel.CartRoom(id)
	if from.hasConnection() {
		room = r.carts.Leave(from.ConnID, id)
	}
	r.reply(from, event.Left, event.RoomPayload{Room: room.String()})
	return nil
}

func (r *Router) newOrder(ctx context.Context, in event.Inbound) error {
	var p event.NewOrderPayload
	if err := decode(in.Data, &p); err != nil {
		return err
	}

	var ids idParser
	orderID := ids.parse("orderId", p.OrderID)
	customerID := ids.parse("customerId", p.CustomerID)
	vendorID := ids.parse("vendorId", p.VendorID)
	if err := ids.err(); err != nil {
		return err
	}

	cmd, err := commands.NewRegisterOrderCommand(orderID, customerID, vendorID, r.now())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedEvent, err)
	}

	unlock := r.orderLocks.lock(orderID)
	defer unlock()

	o, err := r.registerOrder.Handle(ctx, cmd)
	if err != nil {
		return err
	}

	r.broadcaster.Broadcast(
		[]kernel.RoomKey{kernel.VendorRoom(o.VendorID()), kernel.AdminRoom},
		nil, event.OrderNew, same(p),
	)
	return nil
}

func (r *Router) statusChanged(ctx context.Context, in event.Inbound) error {
	var p event.StatusChangedPayload
	id, err := decodeID(in.Data, &p, func() string { return p.OrderID }, "orderId")
	if err != nil {
		return err
	}

	status, err := order.ParseStatus(p.Status)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedEvent, err)
	}

	unlock := r.orderLocks.lock(id)
	defer unlock()

	cmd, err := commands.NewChangeOrderStatusCommand(id, status, r.now())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedEvent, err)
	}

	o, err := r.changeStatus.Handle(ctx, cmd)
	if err != nil {
		return err
	}

	payload := event.StatusChangedPayload{OrderID: o.ID().String(), Status: o.Status().String()}
	r.broadcaster.Broadcast(
		[]kernel.RoomKey{kernel.OrderRoom(o.ID()), kernel.VendorRoom(o.VendorID()), kernel.AdminRoom},
		nil, event.StatusChanged, same(payload),
	)
	return nil
}

func (r *Router) driverAssigned(ctx context.Context, in event.Inbound) error {
	var p event.DriverAssignedPayload
	if err := decode(in.Data, &p); err != nil {
		return err
	}

	var ids idParser
	orderID := ids.parse("orderId", p.OrderID)
	driverID := ids.parse("driverId", p.DriverID)
	if err := ids.err(); err != nil {
		return err
	}

	cmd, err := commands.NewAssignDriverCommand(orderID, driverID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedEvent, err)
	}

	unlock := r.orderLocks.lock(orderID)
	defer unlock()

	o, err := r.assignDriver.Handle(ctx, cmd)
	if err != nil {
		return err
	}

	r.broadcaster.Broadcast(
		[]kernel.RoomKey{kernel.OrderRoom(o.ID()), kernel.DriverRoom(cmd.DriverID()), kernel.AdminRoom},
		nil, event.DriverAssign, shapeDriverAssigned(p),
	)
	return nil
}

func (r *Router) locationUpdate(in event.Inbound) error {
	var p event.LocationUpdatePayload
	if err := decode(in.Data, &p); err != nil {
		return err
	}

	var ids idParser
	driverID := ids.parse("driverId", p.DriverID)
	orderID := ids.parse("orderId", p.OrderID)
	if err := ids.err(); err != nil {
		return err
	}

	pos, err := kernel.NewLocation(p.Lat, p.Lng)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedEvent, err)
	}
	sample, err := location.NewSample(driverID, orderID, pos, p.Sequence, r.now())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedEvent, err)
	}

	outcome, err := r.tracker.Ingest(sample)
	switch {
	case errors.Is(err, tracking.ErrStaleLocationSample), errors.Is(err, tracking.ErrSampleNotAccepted):
		r.logger.Debug("location sample dropped",
			"order", p.OrderID, "driver", p.DriverID, "sequence", p.Sequence, "reason", err)
		return nil
	case err != nil:
		return err
	}

	r.logger.Debug("location sample accepted", "order", p.OrderID, "sequence", p.Sequence, "outcome", outcome.String())
	return nil
}

func (r *Router) driverNearby(ctx context.Context, in event.Inbound) error {
	var p event.DriverNearbyPayload
	id, err := decodeID(in.Data, &p, func() string { return p.OrderID }, "orderId")
	if err != nil {
		return err
	}

	if _, err = r.orders.Get(ctx, id); err != nil {
		return err
	}

	r.broadcaster.Broadcast([]kernel.RoomKey{kernel.OrderRoom(id)}, nil, event.DriverNearby, same(p))
	return nil
}

func (r *Router) cartUpdate(from Sender, in event.Inbound) error {
	var p event.CartUpdatePayload
	id, err := decodeID(in.Data, &p, func() string { return p.CartID }, "cartId")
	if err != nil {
		return err
	}

	r.carts.Publish(id, from.ConnID, p.Cart)
	return nil
}

// reply sends a frame to the sender's connection only.
func (r *Router) reply(from Sender, typ event.Type, data any) {
	if !from.hasConnection() {
		return
	}
	c, ok := r.registry.Get(from.ConnID)
	if !ok {
		return
	}

	frame, err := encode(typ, data, r.now())
	if err != nil {
		r.logger.Error("failed to encode reply", "event", typ, "error", err)
		return
	}
	if !c.Enqueue(frame) {
		r.observer.FrameDropped()
	}
}

func (r *Router) reject(from Sender, typ event.Type, err error) {
	code := Code(err)
	r.observer.EventRejected(string(typ), code)

	level := slog.LevelWarn
	if code == CodeInternal {
		level = slog.LevelError
	}
	r.logger.Log(context.Background(), level, "event rejected",
		"event", typ, "role", from.Role.String(), "code", code, "error", err)

	r.reply(from, event.Error, event.ErrorPayload{Code: code, Message: err.Error(), Event: typ})
}

func decode(data json.RawMessage, dst any) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: missing data", ErrMalformedEvent)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedEvent, err)
	}
	return nil
}

// decodeID decodes data into dst and validates the identifier field picked by id.
func decodeID(data json.RawMessage, dst any, id func() string, paramName string) (kernel.EntityID, error) {
	if err := decode(data, dst); err != nil {
		return kernel.EntityID{}, err
	}
	parsed, err := kernel.NewEntityID(paramName, id())
	if err != nil {
		return kernel.EntityID{}, fmt.Errorf("%w: %w", ErrMalformedEvent, err)
	}
	return parsed, nil
}

// idParser collects every identifier error of a payload.
type idParser struct {
	errs []error
}

func (p *idParser) parse(paramName, raw string) kernel.EntityID {
	id, err := kernel.NewEntityID(paramName, raw)
	if err != nil {
		p.errs = append(p.errs, err)
	}
	return id
}

func (p *idParser) err() error {
	if err := errors.Join(p.errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedEvent, err)
	}
	return nil
}
