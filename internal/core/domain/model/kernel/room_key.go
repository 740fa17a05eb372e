package kernel

import (
	"fmt"
	"strings"

	"relay/internal/pkg/errs"
)

// RoomKind is the prefix of a room key.
type RoomKind string

const (
	RoomOrder  RoomKind = "order"
	RoomVendor RoomKind = "vendor"
	RoomDriver RoomKind = "driver"
	RoomAdmin  RoomKind = "admin"
	RoomCart   RoomKind = "cart"
)

// RoomKey names a multicast group. All keys except the admin room carry an EntityID.
type RoomKey struct {
	kind RoomKind
	id   EntityID
}

// AdminRoom is the single room every admin dashboard joins.
var AdminRoom = RoomKey{kind: RoomAdmin}

func OrderRoom(id EntityID) RoomKey  { return RoomKey{kind: RoomOrder, id: id} }
func VendorRoom(id EntityID) RoomKey { return RoomKey{kind: RoomVendor, id: id} }
func DriverRoom(id EntityID) RoomKey { return RoomKey{kind: RoomDriver, id: id} }
func CartRoom(id EntityID) RoomKey   { return RoomKey{kind: RoomCart, id: id} }

// ParseRoomKey parses "kind:id" (or "admin").
func ParseRoomKey(s string) (RoomKey, error) {
	if s == string(RoomAdmin) {
		return AdminRoom, nil
	}
	kind, rawID, ok := strings.Cut(s, ":")
	if !ok {
		return RoomKey{}, errs.NewValueIsInvalidErrorWithCause("room", fmt.Errorf("%q has no kind prefix", s))
	}
	switch RoomKind(kind) {
	case RoomOrder, RoomVendor, RoomDriver, RoomCart:
	default:
		return RoomKey{}, errs.NewValueIsInvalidErrorWithCause("room", fmt.Errorf("unknown room kind %q", kind))
	}
	id, err := NewEntityID("room id", rawID)
	if err != nil {
		return RoomKey{}, err
	}
	return RoomKey{kind: RoomKind(kind), id: id}, nil
}

func (k RoomKey) Kind() RoomKind { return k.kind }
func (k RoomKey) ID() EntityID   { return k.id }

// String returns the wire form used in frames and logs.
func (k RoomKey) String() string {
	if k.kind == RoomAdmin {
		return string(RoomAdmin)
	}
	return string(k.kind) + ":" + k.id.String()
}

// Validate fails for the zero key and for non-admin keys without an id.
func (k RoomKey) Validate() error {
	if k.kind == "" {
		return errs.NewValueIsRequiredError("room")
	}
	if k.kind != RoomAdmin {
		return k.id.Validate()
	}
	return nil
}
