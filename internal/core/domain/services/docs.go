// Package services provides domain services that coordinate order aggregates
// beyond a single instance.
//
// The package includes:
//   - OrderStateMachine: the relay's concurrent cache of live orders, enforcing
//     the order status transition table and filling misses from the system of
//     record through ports.OrderReader
package services
