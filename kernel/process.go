package kernel

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/imxcstar/mini-os/heap"
	"github.com/imxcstar/mini-os/log"
	"github.com/imxcstar/mini-os/vfs"
)

var ErrUnknownProcess = errors.New("unknown process")

type ProcessState int

const (
	Ready ProcessState = iota
	Running
	Exited
	Stopped // terminated via cancellation
)

func (s ProcessState) String() string {
	switch s {
	case Ready:
		return "ready"
	case Running:
		return "running"
	case Exited:
		return "exited"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// ExitCancelled is reported when a process is torn down by Kill rather than
// by returning from main.
const ExitCancelled = 130

// Entry is the body of a spawned process. The returned int becomes the exit
// code unless the process was cancelled first.
type Entry func(ctx context.Context, task *Task) int

type SpawnOptions struct {
	Args      []string
	Cwd       *vfs.Node
	Attach    AttachMode
	HeapBytes int32

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Process is the kernel's record of one running program: the PCB.
type Process struct {
	Pid  int
	Name string

	kernel *Kernel

	mu        sync.Mutex
	state     ProcessState
	exitCode  int
	cancelled bool
	cancel    context.CancelFunc
	cwd       *vfs.Node
	startedAt time.Time
	endedAt   time.Time

	heap  *heap.Heap
	files *FileTable
	args  []string

	done chan struct{}
}

func (p *Process) Kernel() *Kernel { return p.kernel }

func (p *Process) Heap() *heap.Heap { return p.heap }

func (p *Process) Args() []string { return p.args }

func (p *Process) State() ProcessState {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.state
}

func (p *Process) ExitCode() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.exitCode
}

func (p *Process) Cwd() *vfs.Node {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.cwd
}

func (p *Process) Chdir(n *vfs.Node) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.cwd = n
}

func (p *Process) StartedAt() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.startedAt
}

// Cancelled reports whether Kill was requested. The evaluator polls this once
// per statement; cancellation is cooperative, never forced.
func (p *Process) Cancelled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.cancelled
}

func (p *Process) setState(s ProcessState) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.state = s
}

// Stdout returns the fd 1 writer, or a discarding writer when fd 1 is gone.
func (p *Process) Stdout() io.Writer {
	if h, ok := p.files.Get(1); ok {
		return handleWriter{h}
	}
	return io.Discard
}

func (p *Process) Stderr() io.Writer {
	if h, ok := p.files.Get(2); ok {
		return handleWriter{h}
	}
	return io.Discard
}

type handleWriter struct {
	h Handle
}

func (w handleWriter) Write(b []byte) (int, error) {
	return w.h.Write(b)
}

// Wait blocks until the process finishes and returns its exit code.
func (p *Process) Wait(ctx context.Context) (int, error) {
	select {
	case <-p.done:
		return p.ExitCode(), nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Spawn builds a PCB, registers it with the input router and launches entry
// as an independently scheduled task.
func (k *Kernel) Spawn(name string, entry Entry, opts SpawnOptions) (*Process, error) {
	cwd := opts.Cwd
	if cwd == nil {
		cwd = k.FS.Root()
	}

	p := &Process{
		Name:   name,
		kernel: k,
		state:  Ready,
		cwd:    cwd,
		heap:   heap.New(opts.HeapBytes),
		files:  NewFileTable(opts.Stdin, opts.Stdout, opts.Stderr),
		args:   opts.Args,
		done:   make(chan struct{}),
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel

	k.Processes.add(p)
	k.Input.Register(p.Pid, opts.Attach)

	log.L.Trace("process-spawn", "pid", p.Pid, "name", name, "attach", opts.Attach)

	go p.run(ctx, entry)

	return p, nil
}

func (p *Process) run(ctx context.Context, entry Entry) {
	p.mu.Lock()
	p.state = Running
	p.startedAt = time.Now()
	p.mu.Unlock()

	code := func() (code int) {
		defer func() {
			if r := recover(); r != nil {
				log.L.Error("process-panic", "pid", p.Pid, "name", p.Name, "panic", r)
				fmt.Fprintf(p.Stderr(), "%s: %v\n", p.Name, r)
				code = 1
			}
		}()

		return entry(ctx, &Task{p})
	}()

	p.mu.Lock()
	// Only an entry that reported cancellation counts as stopped. A kill that
	// lands after the entry already finished keeps the real exit code.
	if p.cancelled && code == ExitCancelled {
		p.state = Stopped
	} else {
		p.state = Exited
	}
	p.exitCode = code
	p.endedAt = time.Now()
	p.mu.Unlock()

	p.kernel.Input.Unregister(p.Pid)
	p.files.Dispose()
	p.cancel()

	log.L.Trace("process-exit", "pid", p.Pid, "code", p.ExitCode())

	close(p.done)
}

// Kill requests cooperative termination. It never force-stops the task; the
// evaluator observes the flag and unwinds.
func (k *Kernel) Kill(pid int) error {
	p, ok := k.Processes.Get(pid)
	if !ok {
		return ErrUnknownProcess
	}

	p.mu.Lock()
	p.cancelled = true
	cancel := p.cancel
	p.mu.Unlock()

	log.L.Trace("process-kill", "pid", pid)

	cancel()
	return nil
}

// HostTask builds an unscheduled PCB used when syscalls run with no process
// bound: the shell/host context. It has pid 0 and is not in the process
// table.
func (k *Kernel) HostTask(stdin io.Reader, stdout, stderr io.Writer) *Task {
	p := &Process{
		Name:      "host",
		kernel:    k,
		state:     Running,
		cwd:       k.FS.Root(),
		heap:      heap.New(0),
		files:     NewFileTable(stdin, stdout, stderr),
		done:      make(chan struct{}),
		cancel:    func() {},
		startedAt: time.Now(),
	}

	return &Task{p}
}

// ProcessManager assigns pids and keeps the table of every process the
// session has spawned. Pids increase monotonically and are never reused.
type ProcessManager struct {
	mu      sync.Mutex
	nextPid int
	procs   map[int]*Process
}

func NewProcessManager() *ProcessManager {
	return &ProcessManager{
		nextPid: 1,
		procs:   make(map[int]*Process),
	}
}

func (m *ProcessManager) add(p *Process) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p.Pid = m.nextPid
	m.nextPid++
	m.procs[p.Pid] = p
}

func (m *ProcessManager) Get(pid int) (*Process, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.procs[pid]
	return p, ok
}

// Snapshot returns every known process ordered by pid. Finished processes
// stay in the table so their exit codes remain collectable.
func (m *ProcessManager) Snapshot() []*Process {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*Process, 0, len(m.procs))
	for _, p := range m.procs {
		out = append(out, p)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Pid < out[j].Pid
	})

	return out
}
