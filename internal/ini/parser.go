package ini

import (
	"strings"
)

// Entry is a single key=value line.
type Entry struct {
	Key   string
	Value string
}

// Section is a named group of entries in file order.
type Section struct {
	Name    string
	Entries []Entry
}

// Get returns the value of the first entry with the given key.
func (s Section) Get(key string) (string, bool) {
	for _, e := range s.Entries {
		if e.Key == key {
			return e.Value, true
		}
	}
	return "", false
}

// Values returns every value recorded for key, in file order.
func (s Section) Values(key string) []string {
	var out []string
	for _, e := range s.Entries {
		if e.Key == key {
			out = append(out, e.Value)
		}
	}
	return out
}

type lineKind int

const (
	lineInvalid lineKind = iota
	lineBlank
	lineComment
	lineHeader
	lineKeyValue
)

const utf8BOM = "\ufeff"

// ParseBytes parses raw file contents, dropping a leading UTF-8 byte order mark.
func ParseBytes(data []byte) ([]Section, error) {
	return Parse(strings.TrimPrefix(string(data), utf8BOM))
}

// Parse parses text into sections.
// Lines may end in "\n" or "\r\n"; the last line may end at EOF.
func Parse(text string) ([]Section, error) {
	var (
		sections []Section
		current  = -1
		offset   int
		lineNo   int
	)

	for offset < len(text) {
		lineNo++
		line, next := nextLine(text, offset)

		kind, a, b, reason := classify(line)
		switch kind {
		case lineBlank, lineComment:
			// skipped everywhere
		case lineHeader:
			sections = append(sections, Section{Name: a})
			current = len(sections) - 1
		case lineKeyValue:
			if current < 0 {
				return nil, newParseError(text, offset, lineNo, line, "entry outside of any section")
			}
			sections[current].Entries = append(sections[current].Entries, Entry{Key: a, Value: b})
		default:
			return nil, newParseError(text, offset, lineNo, line, reason)
		}

		offset = next
	}

	return sections, nil
}

// nextLine returns the line starting at offset without its terminator,
// and the offset of the following line.
func nextLine(text string, offset int) (string, int) {
	rest := text[offset:]
	idx := strings.IndexByte(rest, '\n')
	if idx < 0 {
		return rest, len(text)
	}
	line := rest[:idx]
	line = strings.TrimSuffix(line, "\r")
	return line, offset + idx + 1
}

// classify returns the kind of line and, for headers, the section name in a,
// or for key-value lines the key in a and the value in b.
func classify(line string) (kind lineKind, a, b, reason string) {
	trimmed := strings.TrimLeft(line, " \t")
	if trimmed == "" {
		return lineBlank, "", "", ""
	}
	if trimmed[0] == ';' || trimmed[0] == '#' {
		return lineComment, "", "", ""
	}

	headerReason := ""
	if trimmed[0] == '[' {
		name, ok, why := parseHeader(trimmed)
		if ok {
			return lineHeader, name, "", ""
		}
		headerReason = why
	}

	key, value, ok, why := parseKeyValue(trimmed)
	if ok {
		return lineKeyValue, key, value, ""
	}
	if headerReason != "" {
		return lineInvalid, "", "", headerReason
	}
	return lineInvalid, "", "", why
}

func parseHeader(s string) (string, bool, string) {
	end := strings.IndexByte(s, ']')
	if end < 0 {
		return "", false, "unterminated section header"
	}
	name := s[1:end]
	if name == "" {
		return "", false, "empty section name"
	}
	if strings.ContainsRune(name, '\r') {
		return "", false, "carriage return in section name"
	}
	if strings.TrimRight(s[end+1:], " \t") != "" {
		return "", false, "unexpected text after section header"
	}
	return name, true, ""
}

func parseKeyValue(s string) (string, string, bool, string) {
	end := strings.IndexAny(s, "= \t\r")
	if end == 0 {
		return "", "", false, "missing key"
	}
	if end < 0 {
		return "", "", false, "missing '='"
	}
	key := s[:end]
	rest := strings.TrimLeft(s[end:], " \t")
	if rest == "" || rest[0] != '=' {
		return "", "", false, "missing '='"
	}
	value := strings.TrimLeft(rest[1:], " \t")
	if strings.ContainsRune(value, '\r') {
		return "", "", false, "carriage return in value"
	}
	return key, value, true, ""
}

func newParseError(text string, offset, lineNo int, line, reason string) *ParseError {
	return &ParseError{
		Line:      lineNo,
		Offset:    offset,
		Text:      line,
		Reason:    reason,
		Remaining: text[offset:],
	}
}
