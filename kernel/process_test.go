package kernel

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vektra/neko"
)

func testKernel(t *testing.T) *Kernel {
	t.Helper()

	k, err := NewKernel(nil, nil)
	require.NoError(t, err)
	return k
}

func TestSpawn(t *testing.T) {
	n := neko.Modern(t)

	n.It("runs the entry and reports its exit code", func(t *testing.T) {
		k := testKernel(t)

		p, err := k.Spawn("t", func(ctx context.Context, task *Task) int {
			return 7
		}, SpawnOptions{})
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		code, err := p.Wait(ctx)
		require.NoError(t, err)
		require.Equal(t, 7, code)
		require.Equal(t, Exited, p.State())
	})

	n.It("assigns pids monotonically and never reuses them", func(t *testing.T) {
		k := testKernel(t)

		entry := func(ctx context.Context, task *Task) int { return 0 }

		a, err := k.Spawn("a", entry, SpawnOptions{})
		require.NoError(t, err)

		ctx := context.Background()
		a.Wait(ctx)

		b, err := k.Spawn("b", entry, SpawnOptions{})
		require.NoError(t, err)

		require.Equal(t, a.Pid+1, b.Pid)
	})

	n.It("keeps finished processes in the table for wait", func(t *testing.T) {
		k := testKernel(t)

		p, err := k.Spawn("t", func(ctx context.Context, task *Task) int {
			return 3
		}, SpawnOptions{})
		require.NoError(t, err)

		ctx := context.Background()
		p.Wait(ctx)

		got, ok := k.Processes.Get(p.Pid)
		require.True(t, ok)

		code, err := got.Wait(ctx)
		require.NoError(t, err)
		require.Equal(t, 3, code)
	})

	n.It("turns a panicking entry into exit code 1", func(t *testing.T) {
		k := testKernel(t)

		var errOut bytes.Buffer

		p, err := k.Spawn("boom", func(ctx context.Context, task *Task) int {
			panic("kaput")
		}, SpawnOptions{Stderr: &errOut})
		require.NoError(t, err)

		code, err := p.Wait(context.Background())
		require.NoError(t, err)
		require.Equal(t, 1, code)
		require.Contains(t, errOut.String(), "kaput")
	})

	n.It("resolves waits with each process's own code regardless of order", func(t *testing.T) {
		k := testKernel(t)

		release := make(chan struct{})

		slow, err := k.Spawn("slow", func(ctx context.Context, task *Task) int {
			<-release
			return 11
		}, SpawnOptions{})
		require.NoError(t, err)

		fast, err := k.Spawn("fast", func(ctx context.Context, task *Task) int {
			return 22
		}, SpawnOptions{})
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		code, err := fast.Wait(ctx)
		require.NoError(t, err)
		require.Equal(t, 22, code)

		close(release)

		code, err = slow.Wait(ctx)
		require.NoError(t, err)
		require.Equal(t, 11, code)
	})

	n.Meow()
}

func TestKill(t *testing.T) {
	n := neko.Modern(t)

	n.It("reports a cancelled process as stopped with code 130", func(t *testing.T) {
		k := testKernel(t)

		started := make(chan struct{})

		p, err := k.Spawn("loop", func(ctx context.Context, task *Task) int {
			close(started)
			<-ctx.Done()
			return ExitCancelled
		}, SpawnOptions{})
		require.NoError(t, err)

		<-started
		require.NoError(t, k.Kill(p.Pid))

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		code, err := p.Wait(ctx)
		require.NoError(t, err)
		require.Equal(t, ExitCancelled, code)
		require.Equal(t, Stopped, p.State())
		require.True(t, p.Cancelled())
	})

	n.It("keeps the exit code of an entry that finishes despite a kill", func(t *testing.T) {
		k := testKernel(t)

		started := make(chan struct{})
		release := make(chan struct{})

		p, err := k.Spawn("busy", func(ctx context.Context, task *Task) int {
			close(started)
			<-release
			return 7
		}, SpawnOptions{})
		require.NoError(t, err)

		<-started
		require.NoError(t, k.Kill(p.Pid))
		close(release)

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		code, err := p.Wait(ctx)
		require.NoError(t, err)
		require.Equal(t, 7, code)
		require.Equal(t, Exited, p.State())
	})

	n.It("rejects unknown pids", func(t *testing.T) {
		k := testKernel(t)

		require.Equal(t, ErrUnknownProcess, k.Kill(42))
	})

	n.Meow()
}

func TestFileTable(t *testing.T) {
	n := neko.Modern(t)

	n.It("prebinds stdio and hands out fds from 3 up", func(t *testing.T) {
		k := testKernel(t)

		var out bytes.Buffer
		task := k.HostTask(nil, &out, nil)

		for fd := 0; fd <= 2; fd++ {
			_, ok := task.GetFile(fd)
			require.True(t, ok)
		}

		_, err := k.FS.Create(k.FS.Root(), "/a")
		require.NoError(t, err)

		fd1, err := task.OpenFile("/a", FlagRead)
		require.NoError(t, err)
		require.Equal(t, 3, fd1)

		fd2, err := task.OpenFile("/a", FlagRead)
		require.NoError(t, err)
		require.Equal(t, 4, fd2)

		// Closed descriptors are never reissued.
		require.NoError(t, task.CloseFile(fd1))

		fd3, err := task.OpenFile("/a", FlagRead)
		require.NoError(t, err)
		require.Equal(t, 5, fd3)
	})

	n.It("fails on unknown descriptors", func(t *testing.T) {
		k := testKernel(t)
		task := k.HostTask(nil, nil, nil)

		_, ok := task.GetFile(99)
		require.False(t, ok)

		require.Error(t, task.CloseFile(99))
	})

	n.It("round-trips a file through open, write, close, reopen", func(t *testing.T) {
		k := testKernel(t)
		task := k.HostTask(nil, nil, nil)

		fd, err := task.OpenFile("/notes.txt", FlagWrite|FlagCreate)
		require.NoError(t, err)

		h, ok := task.GetFile(fd)
		require.True(t, ok)

		_, err = h.Write([]byte("remember"))
		require.NoError(t, err)
		require.NoError(t, task.CloseFile(fd))

		fd, err = task.OpenFile("/notes.txt", FlagRead)
		require.NoError(t, err)

		h, ok = task.GetFile(fd)
		require.True(t, ok)

		buf := make([]byte, 16)
		n, err := h.Read(buf)
		require.NoError(t, err)
		require.Equal(t, "remember", string(buf[:n]))
	})

	n.It("appends when the flag says so", func(t *testing.T) {
		k := testKernel(t)
		task := k.HostTask(nil, nil, nil)

		fd, err := task.OpenFile("/log", FlagWrite|FlagCreate)
		require.NoError(t, err)

		h, _ := task.GetFile(fd)
		h.Write([]byte("one"))
		task.CloseFile(fd)

		fd, err = task.OpenFile("/log", FlagWrite|FlagAppend)
		require.NoError(t, err)

		h, _ = task.GetFile(fd)
		h.Write([]byte("two"))

		node, err := k.FS.Lookup(k.FS.Root(), "/log")
		require.NoError(t, err)

		data, err := k.FS.ReadFile(node)
		require.NoError(t, err)
		require.Equal(t, "onetwo", string(data))
	})

	n.It("iterates directory entries through a dir handle", func(t *testing.T) {
		k := testKernel(t)
		task := k.HostTask(nil, nil, nil)

		_, err := k.FS.Mkdir(k.FS.Root(), "/d")
		require.NoError(t, err)
		_, err = k.FS.Create(k.FS.Root(), "/d/x")
		require.NoError(t, err)
		_, err = k.FS.Create(k.FS.Root(), "/d/y")
		require.NoError(t, err)

		fd, err := task.OpenFile("/d", FlagRead)
		require.NoError(t, err)

		h, ok := task.GetFile(fd)
		require.True(t, ok)

		dh, ok := h.(DirHandle)
		require.True(t, ok)

		e, more := dh.ReadEntry()
		require.True(t, more)
		require.Equal(t, "x", e.Name)

		e, more = dh.ReadEntry()
		require.True(t, more)
		require.Equal(t, "y", e.Name)

		_, more = dh.ReadEntry()
		require.False(t, more)

		dh.Rewind()
		e, more = dh.ReadEntry()
		require.True(t, more)
		require.Equal(t, "x", e.Name)
	})

	n.Meow()
}
