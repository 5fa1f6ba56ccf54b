// Copyright © 2018 The ELPS authors

package dispatch

import (
	"bytes"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/luthersystems/macrodispatch/parser/token"
)

// internalPrefix is the qualified name prefix of functions in this package.
const internalPrefix = "github.com/luthersystems/macrodispatch/dispatch."

// CallStack is a trace of the calls active when a macro failed.  Frames are
// ordered from the outermost call to the most recent one.
type CallStack struct {
	Frames []CallFrame
}

// CallFrame is one frame in a CallStack.
type CallFrame struct {
	Source *token.Location
	Module string
	Name   string
	Arity  int // -1 when unknown

	// Marker is the invocation environment captured by the frame, if any.
	// The outermost frame of a macro body captures the Caller it was
	// invoked with.
	Marker *Caller

	// Internal frames belong to the resolver itself.
	Internal bool

	// Synthetic frames stand in for pruned frames and identify the macro
	// call that failed.
	Synthetic bool
}

// QualifiedFunName returns the name of the frame's function qualified by its
// module, with the arity appended when it is known.
func (f *CallFrame) QualifiedFunName() string {
	if f == nil {
		return ""
	}
	var buf bytes.Buffer
	if f.Module != "" {
		buf.WriteString(f.Module)
		buf.WriteString(".")
	}
	buf.WriteString(f.Name)
	if f.Arity >= 0 {
		fmt.Fprintf(&buf, "/%d", f.Arity)
	}
	return buf.String()
}

func (f *CallFrame) String() string {
	if f.Source != nil {
		return fmt.Sprintf("%s: %s", f.Source, f.desc())
	}
	return f.desc()
}

func (f *CallFrame) desc() string {
	var mod bytes.Buffer
	if f.Synthetic {
		mod.WriteString(" [macro call]")
	}
	if f.Internal {
		mod.WriteString(" [internal]")
	}
	return f.QualifiedFunName() + mod.String()
}

// Copy creates a copy of the stack.
func (s *CallStack) Copy() *CallStack {
	if s == nil {
		return &CallStack{}
	}
	frames := make([]CallFrame, len(s.Frames))
	copy(frames, s.Frames)
	return &CallStack{Frames: frames}
}

// Top returns the CallFrame at the top of the stack or nil if none exists.
func (s *CallStack) Top() *CallFrame {
	if s == nil || len(s.Frames) == 0 {
		return nil
	}
	return &s.Frames[len(s.Frames)-1]
}

// Bottom returns the outermost CallFrame or nil if none exists.
func (s *CallStack) Bottom() *CallFrame {
	if s == nil || len(s.Frames) == 0 {
		return nil
	}
	return &s.Frames[0]
}

// DebugPrint prints s
func (s *CallStack) DebugPrint(w io.Writer) (int, error) {
	n, err := fmt.Fprintf(w, "Stack Trace [%d frames -- entrypoint last]:\n", len(s.Frames))
	if err != nil {
		return n, err
	}
	indent := "  "
	for i := len(s.Frames) - 1; i >= 0; i-- {
		fstr := s.Frames[i].String()
		_n, err := fmt.Fprintf(w, "%sheight %d: %s\n", indent, i, fstr)
		n += _n
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// PruneTrace sanitizes the trace of a failed macro invocation.  Walking from
// the most recent frame, the first frame that captured marker or that is
// internal to the resolver is replaced, along with every frame beneath it,
// by synthetic.  When no frame matches synthetic is placed beneath the whole
// trace.  The result always has exactly one synthetic frame, at the bottom.
func PruneTrace(trace *CallStack, marker *Caller, synthetic CallFrame) *CallStack {
	synthetic.Synthetic = true
	var frames []CallFrame
	if trace != nil {
		frames = trace.Frames
	}
	cut := 0
	for i := len(frames) - 1; i >= 0; i-- {
		f := &frames[i]
		if (marker != nil && f.Marker == marker) || f.Internal {
			cut = i + 1
			break
		}
	}
	pruned := make([]CallFrame, 0, len(frames)-cut+1)
	pruned = append(pruned, synthetic)
	for _, f := range frames[cut:] {
		if f.Synthetic {
			// A synthetic frame left by a nested expansion is demoted so
			// that only the outermost one identifies this call.
			f.Synthetic = false
		}
		pruned = append(pruned, f)
	}
	return &CallStack{Frames: pruned}
}

// TraceError is an error raised by macro logic along with the trace of the
// calls that raised it.
type TraceError struct {
	Err   error
	Stack *CallStack
}

func (e *TraceError) Error() string {
	return e.Err.Error()
}

func (e *TraceError) Unwrap() error {
	return e.Err
}

// PanicError is the error produced when macro logic panics.
type PanicError struct {
	Value interface{}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// goStack captures the Go call stack of a recovered panic.  It must be called
// from the deferred function that recovered.  Frames up to and including
// the runtime's panic machinery are dropped.
func goStack() *CallStack {
	pcs := make([]uintptr, 64)
	n := runtime.Callers(1, pcs)
	iter := runtime.CallersFrames(pcs[:n])
	var recent []runtime.Frame
	for {
		f, more := iter.Next()
		recent = append(recent, f)
		if !more {
			break
		}
	}
	start := 0
	for i, f := range recent {
		if f.Function == "runtime.gopanic" {
			start = i + 1
			break
		}
	}
	for start < len(recent) && strings.HasPrefix(recent[start].Function, "runtime.") {
		start++
	}
	recent = recent[start:]
	stack := &CallStack{Frames: make([]CallFrame, 0, len(recent))}
	for i := len(recent) - 1; i >= 0; i-- {
		f := recent[i]
		stack.Frames = append(stack.Frames, CallFrame{
			Source:   &token.Location{File: f.File, Line: f.Line, Pos: -1},
			Name:     f.Function,
			Arity:    -1,
			Internal: strings.HasPrefix(f.Function, internalPrefix),
		})
	}
	return stack
}
