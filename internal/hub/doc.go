// Package hub implements the relay's shared membership state: the Connection
// Registry, which owns every live connection and its declared role, and the Room
// Directory, which maps room keys to the connections that joined them.
//
// Membership changes go through the Registry so that a connection's own set of
// joined rooms and the Directory never disagree. Unregistering a connection
// cascades into every room it joined and deletes rooms left empty.
//
// Fan-out takes the per-room locks of every destination room in key order, so two
// fan-outs that share a room reach all of its members in the same relative order.
// Delivery into a connection is a non-blocking enqueue on its bounded outbound
// buffer; a slow reader loses messages instead of stalling the room.
package hub
