package kernel

import "context"

// Console is the presentation surface the syscall layer calls into. The core
// never renders; hosts provide an implementation (terminal, browser) and
// tests use NopConsole.
type Console interface {
	Clear()
	SetCursor(col, row int)
	CursorCol() int
	CursorRow() int
	Width() int
	Height() int
	ShowCursor(visible bool)

	// ReadKey blocks for one key press and returns its ASCII value, or one
	// of the Key* codes for special keys.
	ReadKey(ctx context.Context) (int, error)
}

// Special key values returned by ReadKey and exposed to programs through the
// keycode builtin.
const (
	KeyUp        = 1000
	KeyDown      = 1001
	KeyLeft      = 1002
	KeyRight     = 1003
	KeyHome      = 1004
	KeyEnd       = 1005
	KeyPageUp    = 1006
	KeyPageDown  = 1007
	KeyDelete    = 1008
	KeyInsert    = 1009
	KeyEscape    = 27
	KeyEnter     = 13
	KeyBackspace = 8
	KeyTab       = 9
)

var keycodes = map[string]int{
	"up":        KeyUp,
	"down":      KeyDown,
	"left":      KeyLeft,
	"right":     KeyRight,
	"home":      KeyHome,
	"end":       KeyEnd,
	"pgup":      KeyPageUp,
	"pgdn":      KeyPageDown,
	"delete":    KeyDelete,
	"insert":    KeyInsert,
	"esc":       KeyEscape,
	"enter":     KeyEnter,
	"backspace": KeyBackspace,
	"tab":       KeyTab,
}

// Keycode maps a symbolic key name to the value ReadKey reports for it.
// Unknown names yield -1.
func Keycode(name string) int {
	if v, ok := keycodes[name]; ok {
		return v
	}
	return -1
}

// NopConsole is the do-nothing console used when no host is attached.
type NopConsole struct{}

func (NopConsole) Clear()             {}
func (NopConsole) SetCursor(_, _ int) {}
func (NopConsole) CursorCol() int     { return 0 }
func (NopConsole) CursorRow() int     { return 0 }
func (NopConsole) Width() int         { return 80 }
func (NopConsole) Height() int        { return 25 }
func (NopConsole) ShowCursor(_ bool)  {}

func (NopConsole) ReadKey(ctx context.Context) (int, error) {
	return -1, nil
}
