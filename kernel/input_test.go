package kernel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vektra/neko"
)

func TestInputRouter(t *testing.T) {
	n := neko.Modern(t)

	n.It("promotes foreground registrations and demotes the previous owner", func(t *testing.T) {
		r := NewInputRouter()

		r.Register(1, AttachForeground)
		require.Equal(t, 1, r.Foreground())

		r.Register(2, AttachForeground)
		require.Equal(t, 2, r.Foreground())
	})

	n.It("leaves background registrations detached", func(t *testing.T) {
		r := NewInputRouter()

		r.Register(1, AttachForeground)
		r.Register(2, AttachBackground)

		require.Equal(t, 1, r.Foreground())
	})

	n.It("skips registration entirely for AttachNone", func(t *testing.T) {
		r := NewInputRouter()

		r.Register(1, AttachNone)

		require.Error(t, r.BringToForeground(1))
	})

	n.It("promotes a registered pid on demand", func(t *testing.T) {
		r := NewInputRouter()

		r.Register(1, AttachForeground)
		r.Register(2, AttachBackground)

		require.NoError(t, r.BringToForeground(2))
		require.Equal(t, 2, r.Foreground())
	})

	n.It("rejects promoting an unregistered pid", func(t *testing.T) {
		r := NewInputRouter()

		require.Error(t, r.BringToForeground(9))
	})

	n.It("clears the foreground when the owner unregisters", func(t *testing.T) {
		r := NewInputRouter()

		r.Register(1, AttachForeground)
		r.Unregister(1)

		require.NotEqual(t, 1, r.Foreground())
	})

	n.Meow()
}

func TestWaitForForeground(t *testing.T) {
	n := neko.Modern(t)

	n.It("returns immediately for the current foreground owner", func(t *testing.T) {
		r := NewInputRouter()

		r.Register(1, AttachForeground)

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		require.NoError(t, r.WaitForForeground(ctx, 1))
	})

	n.It("blocks a background pid until it is promoted", func(t *testing.T) {
		r := NewInputRouter()

		r.Register(1, AttachForeground)
		r.Register(2, AttachBackground)

		done := make(chan error, 1)

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()

			done <- r.WaitForForeground(ctx, 2)
		}()

		select {
		case err := <-done:
			t.Fatalf("wait returned before promotion: %v", err)
		case <-time.After(50 * time.Millisecond):
		}

		require.NoError(t, r.BringToForeground(2))
		require.NoError(t, <-done)
	})

	n.It("gives up when the context is cancelled", func(t *testing.T) {
		r := NewInputRouter()

		r.Register(1, AttachForeground)
		r.Register(2, AttachBackground)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		err := r.WaitForForeground(ctx, 2)
		require.Error(t, err)
	})

	n.It("fails for pids that never registered", func(t *testing.T) {
		r := NewInputRouter()

		ctx := context.Background()

		err := r.WaitForForeground(ctx, 5)
		require.Error(t, err)
	})

	n.Meow()
}
