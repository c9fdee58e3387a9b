package ini

import (
	"errors"
	"fmt"
)

// ErrSyntax is the sentinel wrapped by every ParseError.
var ErrSyntax = errors.New("ini: syntax error")

// ParseError reports the first line the parser could not classify.
type ParseError struct {
	Line      int    // 1-based line number
	Offset    int    // byte offset of the line start in the input
	Text      string // offending line without its terminator
	Reason    string
	Remaining string // unparsed input starting at Offset
}

func (e *ParseError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("ini: line %d (offset %d): %s: %q", e.Line, e.Offset, e.Reason, e.Text)
}

func (e *ParseError) Unwrap() error {
	return ErrSyntax
}
