// Package ini parses the line-oriented INI dialect used by host editor
// catalogs such as aviutl2.ini.
//
// The parser is deliberately strict inside sections: a line that is not
// blank, a comment, a section header or a key=value pair is an error
// rather than being silently dropped. Sections and entries are returned
// in file order and duplicate keys are preserved.
//
//	sections, err := ini.Parse(text)
//	for _, s := range sections {
//	    label, ok := s.Get("label")
//	}
package ini
