// Context helpers shared by the pools and the command line tools.
package context2

import (
	"context"
	"os"
	"os/signal"
)

type identityKey struct{}

// Returns a child context carrying the identity of the logical caller
// (worker, request, task, ...).  ThreadMappedPool keys connections by it.
// The identity must be comparable.
func WithIdentity(ctx context.Context, identity interface{}) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// Returns the identity attached by WithIdentity, and whether there was one.
func IdentityFromContext(ctx context.Context) (interface{}, bool) {
	identity := ctx.Value(identityKey{})
	return identity, identity != nil
}

// The first time the process receives any of the given signals, cancels the
// returned context and deregisters the signal handler.  Calling the returned
// cancel func releases the handler as well.
func WithCancelOnSignal(
	ctx context.Context,
	signals ...os.Signal) (context.Context, context.CancelFunc) {

	ctx, cancel := context.WithCancel(ctx)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, signals...)
	go func() {
		select {
		case <-ctx.Done():
		case <-sigChan:
			cancel()
		}
		signal.Stop(sigChan)
	}()
	return ctx, cancel
}
