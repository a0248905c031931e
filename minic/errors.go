package minic

import "fmt"

// CompileError is fatal to compilation. It carries the file and line the
// front end was looking at when it gave up.
type CompileError struct {
	File    string
	Line    int
	Message string
}

func (e *CompileError) Error() string {
	if e.File == "" {
		return e.Message
	}
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.File, e.Message)
}

func errf(file string, line int, format string, args ...interface{}) *CompileError {
	return &CompileError{
		File:    file,
		Line:    line,
		Message: fmt.Sprintf(format, args...),
	}
}
