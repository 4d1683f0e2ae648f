// Package shutdown turns SIGINT and SIGTERM into context cancellation and
// runs registered hooks before the context is canceled.
package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/amp-labs/usm/logger"
)

// HookTimeout bounds the context handed to hooks.
const HookTimeout = 5 * time.Second

var (
	mut     sync.Mutex                  //nolint:gochecknoglobals
	hooks   []func(ctx context.Context) //nolint:gochecknoglobals
	trigger chan os.Signal              //nolint:gochecknoglobals
)

// BeforeShutdown registers a function to be called before the context
// returned by SetupHandler is canceled. Hooks run in registration order and
// receive a context that outlives the canceled one by up to HookTimeout.
func BeforeShutdown(h func(ctx context.Context)) {
	mut.Lock()
	defer mut.Unlock()

	hooks = append(hooks, h)
}

// Shutdown triggers the shutdown process programmatically. It does nothing
// if no handler is installed or a shutdown is already underway.
func Shutdown() {
	mut.Lock()
	defer mut.Unlock()

	if trigger == nil {
		return
	}

	select {
	case trigger <- os.Interrupt:
	default:
	}
}

// SetupHandler installs a handler for SIGINT and SIGTERM and returns a
// context that is canceled once the hooks have run.
func SetupHandler(parent context.Context) context.Context {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)

	mut.Lock()
	trigger = ch
	mut.Unlock()

	ctx, cancel := context.WithCancel(parent)

	go func() {
		defer cancel()

		select {
		case sig := <-ch:
			logger.Get(ctx).Warn("Received " + sig.String() + ", shutting down...")
		case <-parent.Done():
		}

		signal.Stop(ch)

		mut.Lock()
		if trigger == ch {
			trigger = nil
		}
		mut.Unlock()

		RunHooks(ctx)
	}()

	return ctx
}

// RunHooks runs and clears the registered hooks. Programs that exit normally
// call it to get the same cleanup a signal would have triggered.
func RunHooks(ctx context.Context) {
	mut.Lock()
	pending := hooks
	hooks = nil
	mut.Unlock()

	if len(pending) == 0 {
		return
	}

	hookCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), HookTimeout)
	defer cancel()

	for _, h := range pending {
		h(hookCtx)
	}
}
