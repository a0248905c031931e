package kernel

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/imxcstar/mini-os/log"
)

var ErrNotAttached = errors.New("process not attached for input")

// AttachMode selects how a spawned process relates to the terminal's input
// stream.
type AttachMode int

const (
	// AttachNone skips input registration entirely.
	AttachNone AttachMode = iota

	// AttachForeground promotes the process and demotes the previous owner.
	AttachForeground

	// AttachBackground registers the process detached; it must be promoted
	// before its input builtins make progress.
	AttachBackground
)

func (m AttachMode) String() string {
	switch m {
	case AttachForeground:
		return "foreground"
	case AttachBackground:
		return "background"
	default:
		return "none"
	}
}

type inputEntry struct {
	promoted chan struct{}
}

// InputRouter arbitrates which single pid owns the terminal's input stream.
// Exactly one pid is foreground at any instant; promoting B while A owns the
// terminal always demotes A first.
type InputRouter struct {
	mu         sync.Mutex
	foreground int
	entries    map[int]*inputEntry
}

func NewInputRouter() *InputRouter {
	return &InputRouter{
		entries: make(map[int]*inputEntry),
	}
}

func (r *InputRouter) Register(pid int, mode AttachMode) {
	if mode == AttachNone {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e := &inputEntry{promoted: make(chan struct{})}
	r.entries[pid] = e

	if mode == AttachForeground {
		r.promote(pid, e)
	}

	log.L.Trace("input-register", "pid", pid, "mode", mode)
}

// promote assumes r.mu is held.
func (r *InputRouter) promote(pid int, e *inputEntry) {
	if r.foreground == pid {
		return
	}

	if prev, ok := r.entries[r.foreground]; ok {
		prev.promoted = make(chan struct{})
	}

	r.foreground = pid
	close(e.promoted)
}

func (r *InputRouter) Unregister(pid int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[pid]; !ok {
		return
	}

	delete(r.entries, pid)

	if r.foreground == pid {
		r.foreground = 0
	}

	log.L.Trace("input-unregister", "pid", pid)
}

func (r *InputRouter) Foreground() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.foreground
}

func (r *InputRouter) BringToForeground(pid int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[pid]
	if !ok {
		return errors.Wrapf(ErrNotAttached, "pid %d", pid)
	}

	r.promote(pid, e)
	log.L.Trace("input-foreground", "pid", pid)
	return nil
}

func (r *InputRouter) SendToBackground(pid int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.foreground != pid {
		return
	}

	if e, ok := r.entries[pid]; ok {
		e.promoted = make(chan struct{})
	}

	r.foreground = 0
	log.L.Trace("input-background", "pid", pid)
}

// WaitForForeground blocks until pid owns the terminal. A backgrounded
// process that needs a line of input stalls here until an fg-style promotion
// happens.
func (r *InputRouter) WaitForForeground(ctx context.Context, pid int) error {
	for {
		r.mu.Lock()

		e, ok := r.entries[pid]
		if !ok {
			r.mu.Unlock()
			return errors.Wrapf(ErrNotAttached, "pid %d", pid)
		}

		if r.foreground == pid {
			r.mu.Unlock()
			return nil
		}

		ch := e.promoted
		r.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
