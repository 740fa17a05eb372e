package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrUnknownType is returned for event names clients are not allowed to send.
var ErrUnknownType = errors.New("unknown event type")

type schemaRegistry struct {
	once    sync.Once
	initErr error
	frame   *jsonschema.Schema
	data    map[Type]*jsonschema.Schema
}

var schemas schemaRegistry

func initSchemas() error {
	schemas.once.Do(func() {
		frame, err := jsonschema.CompileString("relay_frame", frameSchema)
		if err != nil {
			schemas.initErr = err
			return
		}
		schemas.frame = frame

		sources := map[Type]string{
			OrderTrack:    trackOrderSchema,
			OrderUntrack:  trackOrderSchema,
			VendorJoin:    vendorJoinSchema,
			DriverJoin:    driverJoinSchema,
			AdminJoin:     emptySchema,
			CartJoin:      cartJoinSchema,
			CartLeave:     cartJoinSchema,
			Ping:          emptySchema,
			OrderNew:      newOrderSchema,
			StatusChanged: statusChangedSchema,
			DriverAssign:  driverAssignedSchema,
			LocationInput: locationUpdateSchema,
			DriverNearby:  driverNearbySchema,
			CartUpdate:    cartUpdateSchema,
		}

		schemas.data = make(map[Type]*jsonschema.Schema, len(sources))
		for name, source := range sources {
			compiled, err := jsonschema.CompileString(resourceName(name), source)
			if err != nil {
				schemas.initErr = err
				return
			}
			schemas.data[name] = compiled
		}
	})
	return schemas.initErr
}

// resourceName turns an event name into a schema URL. A colon in the first
// path segment would be parsed as a URL scheme.
func resourceName(t Type) string {
	return "relay_data_" + strings.ReplaceAll(string(t), ":", "_")
}

// Accepts reports whether clients may send events of type t.
func Accepts(t Type) bool {
	if err := initSchemas(); err != nil {
		return false
	}
	_, ok := schemas.data[t]
	return ok
}

// DecodeFrame validates a raw client frame and its data against the schema of
// its event type, then decodes it.
func DecodeFrame(raw []byte) (Inbound, error) {
	if err := initSchemas(); err != nil {
		return Inbound{}, err
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Inbound{}, err
	}
	if err := schemas.frame.Validate(doc); err != nil {
		return Inbound{}, err
	}

	var in Inbound
	if err := json.Unmarshal(raw, &in); err != nil {
		return Inbound{}, err
	}
	if err := ValidateData(in.Type, in.Data); err != nil {
		return Inbound{}, err
	}
	return in, nil
}

// ValidateData checks data against the schema registered for t.
func ValidateData(t Type, data json.RawMessage) error {
	if err := initSchemas(); err != nil {
		return err
	}

	schema, ok := schemas.data[t]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownType, t)
	}

	var doc any
	if len(data) == 0 || string(data) == "null" {
		doc = map[string]any{}
	} else if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	return schema.Validate(doc)
}

const frameSchema = `{
  "type": "object",
  "required": ["event"],
  "properties": {
    "event": { "type": "string", "minLength": 1 },
    "data": {},
    "token": { "type": "string" }
  },
  "additionalProperties": false
}`

const emptySchema = `{
  "type": "object",
  "additionalProperties": true
}`

const idPattern = `"type": "string", "minLength": 1, "maxLength": 128, "pattern": "^[^:\\s]+$"`

var trackOrderSchema = `{
  "type": "object",
  "required": ["orderId"],
  "properties": {
    "orderId": { ` + idPattern + ` },
    "customerId": { ` + idPattern + ` }
  },
  "additionalProperties": true
}`

var vendorJoinSchema = `{
  "type": "object",
  "required": ["vendorId"],
  "properties": {
    "vendorId": { ` + idPattern + ` }
  },
  "additionalProperties": true
}`

var driverJoinSchema = `{
  "type": "object",
  "required": ["driverId"],
  "properties": {
    "driverId": { ` + idPattern + ` }
  },
  "additionalProperties": true
}`

var cartJoinSchema = `{
  "type": "object",
  "required": ["cartId"],
  "properties": {
    "cartId": { ` + idPattern + ` }
  },
  "additionalProperties": true
}`

var newOrderSchema = `{
  "type": "object",
  "required": ["orderId", "vendorId", "customerId"],
  "properties": {
    "orderId": { ` + idPattern + ` },
    "vendorId": { ` + idPattern + ` },
    "customerId": { ` + idPattern + ` },
    "orderDetails": {}
  },
  "additionalProperties": true
}`

var statusChangedSchema = `{
  "type": "object",
  "required": ["orderId", "status"],
  "properties": {
    "orderId": { ` + idPattern + ` },
    "status": { "enum": ["confirmed", "preparing", "out_for_delivery", "delivered", "cancelled"] }
  },
  "additionalProperties": true
}`

var driverAssignedSchema = `{
  "type": "object",
  "required": ["orderId", "driverId"],
  "properties": {
    "orderId": { ` + idPattern + ` },
    "driverId": { ` + idPattern + ` },
    "driver": {
      "type": "object",
      "properties": {
        "name": { "type": "string" },
        "phone": { "type": "string" }
      },
      "additionalProperties": true
    },
    "orderDetails": {}
  },
  "additionalProperties": true
}`

var locationUpdateSchema = `{
  "type": "object",
  "required": ["driverId", "orderId", "lat", "lng", "sequence"],
  "properties": {
    "driverId": { ` + idPattern + ` },
    "orderId": { ` + idPattern + ` },
    "lat": { "type": "number", "minimum": -90, "maximum": 90 },
    "lng": { "type": "number", "minimum": -180, "maximum": 180 },
    "sequence": { "type": "integer", "minimum": 0 }
  },
  "additionalProperties": true
}`

var driverNearbySchema = `{
  "type": "object",
  "required": ["orderId"],
  "properties": {
    "orderId": { ` + idPattern + ` },
    "etaHint": { "type": "string" }
  },
  "additionalProperties": true
}`

var cartUpdateSchema = `{
  "type": "object",
  "required": ["cartId", "cartSnapshot"],
  "properties": {
    "cartId": { ` + idPattern + ` },
    "cartSnapshot": {}
  },
  "additionalProperties": true
}`
