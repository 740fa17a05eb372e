// Package kernel contains the shared value objects of the relay domain.
//
// The package includes:
//   - UUID: relay-generated identifiers (connection ids), wrapping github.com/google/uuid
//   - EntityID: opaque identifiers issued by the REST system of record (orders, vendors, drivers, carts)
//   - Role: the participant role a connection declares (customer, vendor, driver, admin)
//   - RoomKey: the logical multicast group key ("order:<id>", "vendor:<id>", "driver:<id>", "admin", "cart:<id>")
//   - Location: a validated WGS84 coordinate pair
//
// All value objects are immutable and their zero values fail Validate.
package kernel
