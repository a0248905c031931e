package main

import (
	"context"
	"fmt"
	"os"
	"sync"

	"golang.org/x/term"

	"github.com/imxcstar/mini-os/kernel"
)

// termConsole renders console builtins onto the host terminal with ANSI
// escapes. Cursor position is tracked from our own moves, not queried back
// from the terminal.
type termConsole struct {
	mu  sync.Mutex
	col int
	row int
}

func newTermConsole() *termConsole {
	return &termConsole{}
}

func (c *termConsole) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprint(os.Stdout, "\x1b[2J\x1b[H")
	c.col = 0
	c.row = 0
}

func (c *termConsole) SetCursor(col, row int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// ANSI rows and columns are 1-based.
	fmt.Fprintf(os.Stdout, "\x1b[%d;%dH", row+1, col+1)
	c.col = col
	c.row = row
}

func (c *termConsole) CursorCol() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.col
}

func (c *termConsole) CursorRow() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.row
}

func (c *termConsole) Width() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return 80
	}
	return w
}

func (c *termConsole) Height() int {
	_, h, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || h <= 0 {
		return 25
	}
	return h
}

func (c *termConsole) ShowCursor(visible bool) {
	if visible {
		fmt.Fprint(os.Stdout, "\x1b[?25h")
	} else {
		fmt.Fprint(os.Stdout, "\x1b[?25l")
	}
}

// ReadKey switches stdin to raw mode for one key press. Escape sequences for
// arrows and editing keys collapse to the kernel's Key* codes.
func (c *termConsole) ReadKey(ctx context.Context) (int, error) {
	fd := int(os.Stdin.Fd())

	if !term.IsTerminal(fd) {
		var b [1]byte
		n, err := os.Stdin.Read(b[:])
		if err != nil || n == 0 {
			return -1, nil
		}
		return int(b[0]), nil
	}

	old, err := term.MakeRaw(fd)
	if err != nil {
		return -1, err
	}
	defer term.Restore(fd, old)

	type result struct {
		key int
		err error
	}

	ch := make(chan result, 1)

	go func() {
		key, err := readRawKey()
		ch <- result{key, err}
	}()

	select {
	case r := <-ch:
		return r.key, r.err
	case <-ctx.Done():
		return -1, ctx.Err()
	}
}

func readRawKey() (int, error) {
	var b [1]byte

	if _, err := os.Stdin.Read(b[:]); err != nil {
		return -1, err
	}

	if b[0] != 0x1b {
		if b[0] == '\r' {
			return kernel.KeyEnter, nil
		}
		if b[0] == 0x7f {
			return kernel.KeyBackspace, nil
		}
		return int(b[0]), nil
	}

	// Escape alone or the start of a CSI sequence.
	var seq [2]byte
	if _, err := os.Stdin.Read(seq[:1]); err != nil {
		return kernel.KeyEscape, nil
	}
	if seq[0] != '[' {
		return kernel.KeyEscape, nil
	}
	if _, err := os.Stdin.Read(seq[1:]); err != nil {
		return kernel.KeyEscape, nil
	}

	switch seq[1] {
	case 'A':
		return kernel.KeyUp, nil
	case 'B':
		return kernel.KeyDown, nil
	case 'C':
		return kernel.KeyRight, nil
	case 'D':
		return kernel.KeyLeft, nil
	case 'H':
		return kernel.KeyHome, nil
	case 'F':
		return kernel.KeyEnd, nil
	case '3':
		drainTilde()
		return kernel.KeyDelete, nil
	case '2':
		drainTilde()
		return kernel.KeyInsert, nil
	case '5':
		drainTilde()
		return kernel.KeyPageUp, nil
	case '6':
		drainTilde()
		return kernel.KeyPageDown, nil
	}

	return kernel.KeyEscape, nil
}

func drainTilde() {
	var b [1]byte
	os.Stdin.Read(b[:])
}
