package querylang

import "fmt"

// ParseError reports malformed predicate text.
//
// Pos is the byte offset in Input where the problem was found. Expected
// describes what the parser would have accepted there and Found what it saw.
type ParseError struct {
	Pos      int
	Expected string
	Found    string
	Reason   string // optional detail, e.g. why a literal does not fit
	Input    string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	msg := fmt.Sprintf("parse error at offset %d: expected %s, found %s", e.Pos, e.Expected, e.Found)
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	return msg
}

// Context returns the input with a caret under the error position, for
// terminal output.
func (e *ParseError) Context() string {
	pos := e.Pos
	if pos > len(e.Input) {
		pos = len(e.Input)
	}
	caret := make([]byte, pos)
	for i := range caret {
		caret[i] = ' '
		if e.Input[i] == '\t' {
			caret[i] = '\t'
		}
	}
	return e.Input + "\n" + string(caret) + "^"
}
