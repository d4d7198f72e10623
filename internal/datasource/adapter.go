package datasource

import "context"

// Adapter is the uniform contract every backend kind implements. Connect and
// Query fail with ErrNotConnected when invoked before a successful Connect;
// Test must use a short-lived probe connection that never touches the
// adapter's primary pool.
type Adapter interface {
	Connect(ctx context.Context, cfg Config) error
	Disconnect() error
	Test(ctx context.Context, cfg Config) TestResult
	Query(ctx context.Context, q Query) (*Result, error)
}

// Factory builds a fresh, unconnected adapter instance. The registry holds
// one factory per kind and one adapter instance per logical data-source id,
// so two sources of the same kind never share a connection pool.
type Factory func() Adapter
