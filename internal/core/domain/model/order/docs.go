// Package order models the order aggregate as the relay caches it and the status
// state machine that guards its transitions.
//
// The package includes:
//   - Order: the cached aggregate (ids, status, driver assignment, last transition time)
//   - Status: the transition table confirmed -> preparing -> out_for_delivery -> delivered,
//     with cancelled reachable from confirmed and preparing
//
// Key business rules:
//   - Any transition missing from the table is rejected and leaves the order unchanged
//   - Delivered and cancelled are terminal
//   - A driver can be assigned in any non-terminal status, independently of status changes
//
// The REST service stays the system of record; this package only validates.
package order
