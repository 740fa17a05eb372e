// Package commands contains the operations that change the relay's order cache.
// Every command follows the same shape: a constructor that validates its input
// behind a constructor guard, and a handler that applies it to ports.OrderCache
// and returns the resulting order snapshot for fan-out.
package commands
