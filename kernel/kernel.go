// Package kernel owns process lifecycle: the scheduler, the per-process file
// descriptor table, and terminal input arbitration. Everything a running
// MiniC program touches through a syscall resolves through a *Task here.
package kernel

import (
	"github.com/imxcstar/mini-os/vfs"
)

// Kernel is one session's object graph: the shared filesystem, the process
// table and the input router. Construct one per session and inject it;
// nothing in this package is a global.
type Kernel struct {
	FS        *vfs.FS
	Processes *ProcessManager
	Input     *InputRouter
	Console   Console
}

func NewKernel(fs *vfs.FS, console Console) (*Kernel, error) {
	if fs == nil {
		fs = vfs.New()
	}

	if console == nil {
		console = NopConsole{}
	}

	k := &Kernel{
		FS:        fs,
		Processes: NewProcessManager(),
		Input:     NewInputRouter(),
		Console:   console,
	}

	return k, nil
}

// Task is the identity of the currently running process, threaded explicitly
// through the evaluator and syscall dispatcher.
type Task struct {
	*Process
}
