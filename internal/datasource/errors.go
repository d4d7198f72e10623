package datasource

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedKind means no adapter factory is registered for the
	// requested backend kind. A caller-configuration error, never swallowed.
	ErrUnsupportedKind = errors.New("unsupported backend kind")

	// ErrNotConnected means an adapter operation ran before a successful
	// Connect. Also a caller-configuration error.
	ErrNotConnected = errors.New("data source not connected")

	// ErrTimeout means the operation exceeded its configured deadline.
	ErrTimeout = errors.New("data source operation timed out")
)

// wrapQueryErr tags backend failures with the adapter kind and elapsed time,
// translating context deadline expiry into ErrTimeout.
func wrapQueryErr(kind string, elapsedMs int64, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: query after %dms: %w", kind, elapsedMs, ErrTimeout)
	}
	return fmt.Errorf("%s: query after %dms: %w", kind, elapsedMs, err)
}

func wrapConnectErr(kind string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: connect: %w", kind, ErrTimeout)
	}
	return fmt.Errorf("%s: connect: %w", kind, err)
}
