// Package event defines the relay's event catalog: the names exchanged on the wire
// and the payload shapes carried by each of them.
package event

import (
	"encoding/json"
	"time"
)

// Type is the event name carried in every frame.
type Type string

const (
	OrderTrack    Type = "order:track"
	OrderUntrack  Type = "order:untrack"
	VendorJoin    Type = "vendor:join"
	DriverJoin    Type = "driver:join"
	AdminJoin     Type = "admin:join"
	CartJoin      Type = "cart:join"
	CartLeave     Type = "cart:leave"
	Ping          Type = "ping"
	OrderNew      Type = "order:new"
	StatusChanged Type = "order:status_changed"
	DriverAssign  Type = "driver:assigned"
	LocationInput Type = "driver:location_update"
	DriverNearby  Type = "driver:nearby"
	CartUpdate    Type = "cart:update"

	// Emitted by the relay only.
	DriverLocation Type = "driver:location"
	Joined         Type = "joined"
	Left           Type = "left"
	Pong           Type = "pong"
	Error          Type = "error"
)

// Inbound is a decoded client frame. Data is decoded by the router according to Type.
type Inbound struct {
	Type  Type            `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
	Token string          `json:"token,omitempty"`
}

// Outbound is a frame produced by the relay. Data already carries the role-shaped payload.
type Outbound struct {
	Type      Type      `json:"event"`
	Data      any       `json:"data,omitempty"`
	EmittedAt time.Time `json:"emittedAt"`
}

type TrackOrderPayload struct {
	OrderID    string `json:"orderId"`
	CustomerID string `json:"customerId,omitempty"`
}

type VendorJoinPayload struct {
	VendorID string `json:"vendorId"`
}

type DriverJoinPayload struct {
	DriverID string `json:"driverId"`
}

type CartJoinPayload struct {
	CartID string `json:"cartId"`
}

type NewOrderPayload struct {
	OrderID      string          `json:"orderId"`
	VendorID     string          `json:"vendorId"`
	CustomerID   string          `json:"customerId"`
	OrderDetails json.RawMessage `json:"orderDetails,omitempty"`
}

type StatusChangedPayload struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
}

// DriverContact is the public part of a driver's profile a customer may see.
type DriverContact struct {
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type DriverAssignedPayload struct {
	OrderID      string          `json:"orderId"`
	DriverID     string          `json:"driverId"`
	Driver       DriverContact   `json:"driver"`
	OrderDetails json.RawMessage `json:"orderDetails,omitempty"`
}

type LocationUpdatePayload struct {
	DriverID string  `json:"driverId"`
	OrderID  string  `json:"orderId"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Sequence int64   `json:"sequence"`
}

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type DriverLocationPayload struct {
	OrderID    string      `json:"orderId"`
	DriverID   string      `json:"driverId,omitempty"`
	Location   Coordinates `json:"location"`
	Sequence   int64       `json:"sequence,omitempty"`
	RecordedAt time.Time   `json:"recordedAt"`
}

type DriverNearbyPayload struct {
	OrderID string `json:"orderId"`
	EtaHint string `json:"etaHint,omitempty"`
}

type CartUpdatePayload struct {
	CartID string          `json:"cartId"`
	Cart   json.RawMessage `json:"cartSnapshot"`
}

type RoomPayload struct {
	Room string `json:"room"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Event   Type   `json:"event,omitempty"`
}
