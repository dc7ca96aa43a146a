package upstream

import (
	"context"
	"fmt"

	"notification-bridge/internal/bridgeerr"
)

// Bounded runs call on its own goroutine and returns when the call does or
// when ctx is done, whichever is first. A call that ignores ctx cannot hold
// the caller past its deadline; its late result is discarded. A panic in
// call is returned as a *bridgeerr.PanicError.
func Bounded(ctx context.Context, method string, call func(context.Context) error) error {
	result := make(chan error, 1)

	go func() {
		defer func() {
			if recovered := recover(); recovered != nil {
				result <- &bridgeerr.PanicError{Op: method, Value: recovered}
			}
		}()
		result <- call(ctx)
	}()

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return fmt.Errorf("%s did not return: %w", method, ctx.Err())
	}
}
