package observability

import (
	"context"
	"fmt"
	"time"
)

// DefaultShutdownTimeout is used by Shutdown when timeout is not positive.
const DefaultShutdownTimeout = 10 * time.Second

// Shutdown flushes and stops provider within timeout. A nil provider is a no-op.
func Shutdown(provider Provider, timeout time.Duration) error {
	if provider == nil {
		return nil
	}
	if timeout <= 0 {
		timeout = DefaultShutdownTimeout
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := provider.ForceFlush(ctx); err != nil {
		return fmt.Errorf("observability flush failed: %w", err)
	}
	if err := provider.Shutdown(ctx); err != nil {
		return fmt.Errorf("observability shutdown failed: %w", err)
	}
	return nil
}
