package mocks

import (
	"context"
	"hotel/infras/otel"
)

type noopOtel struct{}

// NewOtel returns a tracer whose scopes do nothing.
func NewOtel() otel.Otel {
	return noopOtel{}
}

func (noopOtel) NewScope(ctx context.Context, _, _ string) (context.Context, otel.Scope) {
	return ctx, NewScope()
}

func (noopOtel) Shutdown(context.Context) error {
	return nil
}
