// Copyright © 2024 The ELPS authors

// Package diagnostic renders resolver errors as annotated source snippets.
package diagnostic

import (
	"errors"

	"github.com/luthersystems/macrodispatch/dispatch"
	"github.com/luthersystems/macrodispatch/parser/token"
)

// Severity indicates the severity level of a diagnostic.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityNote
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityNote:
		return "note"
	default:
		return "unknown"
	}
}

// Span identifies a region of source code to highlight in the diagnostic.
type Span struct {
	File   string // path for reading source; display name if unreadable
	Line   int    // 1-based line number
	Col    int    // 1-based start column, 0 when only the line is known
	EndCol int    // 1-based end column (0 = auto-detect from source)
	Label  string // text shown under the underline
}

// Diagnostic is a single error, warning, or note with optional source
// annotations and trailing notes.
type Diagnostic struct {
	Severity Severity
	// Code is the condition of the error, shown next to the severity.
	Code    string
	Message string
	Spans   []Span
	Notes   []string
}

// FromError converts err to a Diagnostic.  Resolver errors are attributed to
// their call site, and the trace of a failed macro invocation becomes a list
// of notes, most recent call first.
func FromError(err error) Diagnostic {
	d := Diagnostic{
		Severity: SeverityError,
		Message:  err.Error(),
	}
	var derr dispatch.Error
	if !errors.As(err, &derr) {
		var lerr *token.LocationError
		if errors.As(err, &lerr) {
			d.Spans = append(d.Spans, spanAt(lerr.Source))
		}
		return d
	}
	d.Code = derr.Condition()
	if loc := derr.Location(); loc != nil && loc.Line > 0 {
		d.Spans = append(d.Spans, spanAt(loc))
	}
	var ierr *dispatch.MacroInvocationError
	if errors.As(err, &ierr) && ierr.Stack != nil {
		for i := len(ierr.Stack.Frames) - 1; i >= 0; i-- {
			d.Notes = append(d.Notes, frameNote(&ierr.Stack.Frames[i]))
		}
	}
	var uerr *dispatch.UnrequiredModuleError
	if errors.As(err, &uerr) {
		d.Notes = append(d.Notes, "add `"+uerr.Module+"` to the requires of the unit")
	}
	return d
}

func spanAt(loc *token.Location) Span {
	if loc == nil {
		return Span{}
	}
	file := loc.File
	if loc.Path != "" {
		file = loc.Path
	}
	return Span{File: file, Line: loc.Line, Col: loc.Col}
}

func frameNote(f *dispatch.CallFrame) string {
	switch {
	case f.Synthetic:
		return "in macro call " + f.QualifiedFunName() + " at " + f.Source.String()
	case f.Source != nil:
		return "in " + f.QualifiedFunName() + " at " + f.Source.String()
	default:
		return "in " + f.QualifiedFunName()
	}
}
