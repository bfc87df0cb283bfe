// Package tx defines the transaction boundary used by domain services.
// The postgres and memory stores both implement Manager.
package tx

import (
	"context"
)

// Manager runs a unit of work atomically.
//
// If fn returns an error every write made through ctx is discarded,
// otherwise all of them become visible together. Nested calls reuse the
// transaction already carried by ctx.
type Manager interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Func adapts a plain function to Manager.
type Func func(ctx context.Context, fn func(ctx context.Context) error) error

// RunInTransaction implements Manager.
func (f Func) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return f(ctx, fn)
}
