// Copyright © 2018 The ELPS authors

// Package token describes source positions attached to call-expression trees.
package token

import "fmt"

// Location identifies a position in a source stream.  A negative Pos marks a
// synthetic location, one that was produced by a macro expansion rather than
// read from source text.
type Location struct {
	File string // a name representing the source stream
	Path string // a physical location which may differ from File
	Pos  int
	Line int // line number (starting at 1 when tracked)
	Col  int // line column number (starting at 1 when tracked)
}

// Synthetic returns a location with no position in file.
func Synthetic(file string) *Location {
	return &Location{File: file, Pos: -1}
}

// IsSynthetic reports whether loc was not read from source text.
func (loc *Location) IsSynthetic() bool {
	return loc == nil || loc.Pos < 0
}

// AtLine returns a copy of loc moved to line.  The column is dropped because
// it no longer refers to the text on the new line.
func (loc *Location) AtLine(line int) *Location {
	if loc == nil {
		return &Location{Pos: -1, Line: line}
	}
	cp := *loc
	cp.Line = line
	cp.Col = 0
	return &cp
}

func (loc *Location) String() string {
	switch {
	case loc == nil:
		return "<unknown>"
	case loc.Pos < 0 && loc.Line == 0:
		return loc.File
	case loc.Line == 0:
		return fmt.Sprintf("%s[%d]", loc.File, loc.Pos)
	case loc.Col == 0:
		return fmt.Sprintf("%s:%d", loc.File, loc.Line)
	default:
		return fmt.Sprintf("%s:%d:%d", loc.File, loc.Line, loc.Col)
	}
}

type LocationError struct {
	Err    error
	Source *Location
}

func (err *LocationError) Error() string {
	return fmt.Sprintf("%s: %s", err.Source, err.Err)
}

func (err *LocationError) Unwrap() error {
	return err.Err
}
