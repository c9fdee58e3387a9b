package ini

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestParseBasic(t *testing.T) {
	text := "; catalog\r\n\r\n[Effect.Fire_A]\r\nlabel=Fire Effect Alpha\r\n# note\r\n[Effect.Water_B]\r\nlabel = Water Effect Beta\r\n"

	sections, err := Parse(text)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	want := []Section{
		{Name: "Effect.Fire_A", Entries: []Entry{{Key: "label", Value: "Fire Effect Alpha"}}},
		{Name: "Effect.Water_B", Entries: []Entry{{Key: "label", Value: "Water Effect Beta"}}},
	}
	if !reflect.DeepEqual(sections, want) {
		t.Errorf("Parse() = %+v, want %+v", sections, want)
	}
}

func TestParseLineClassification(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    []Section
		wantErr bool
	}{
		{
			name: "empty input",
			text: "",
			want: nil,
		},
		{
			name: "only comments and blanks",
			text: "; a\n   \n\t# b\n",
			want: nil,
		},
		{
			name: "no trailing newline",
			text: "[s]\nk=v",
			want: []Section{{Name: "s", Entries: []Entry{{Key: "k", Value: "v"}}}},
		},
		{
			name: "empty value",
			text: "[s]\nlabel=\n",
			want: []Section{{Name: "s", Entries: []Entry{{Key: "label", Value: ""}}}},
		},
		{
			name: "value keeps trailing whitespace and inner equals",
			text: "[s]\n  k  =  a=b  \n",
			want: []Section{{Name: "s", Entries: []Entry{{Key: "k", Value: "a=b  "}}}},
		},
		{
			name: "duplicate keys preserved",
			text: "[s]\nk=1\nk=2\n",
			want: []Section{{Name: "s", Entries: []Entry{{Key: "k", Value: "1"}, {Key: "k", Value: "2"}}}},
		},
		{
			name: "indented header with trailing spaces",
			text: "  [s]  \n",
			want: []Section{{Name: "s"}},
		},
		{
			name: "empty section followed by another",
			text: "[a]\n[b]\nx=y\n",
			want: []Section{{Name: "a"}, {Name: "b", Entries: []Entry{{Key: "x", Value: "y"}}}},
		},
		{
			// A line that is not a valid header is still tried as a
			// key-value line; '[' and ']' are ordinary key characters.
			name: "bracketed key after failed header",
			text: "[s]\n[a]x=1\n",
			want: []Section{{Name: "s", Entries: []Entry{{Key: "[a]x", Value: "1"}}}},
		},
		{
			name:    "bracketed line without equals",
			text:    "[s]\n[a]x\n",
			wantErr: true,
		},
		{
			name:    "malformed key line",
			text:    "[s]\nthis is not a pair\n",
			wantErr: true,
		},
		{
			name:    "entry before first section",
			text:    "k=v\n[s]\n",
			wantErr: true,
		},
		{
			name:    "missing key",
			text:    "[s]\n=v\n",
			wantErr: true,
		},
		{
			name:    "text after header",
			text:    "[s] trailing\n",
			wantErr: true,
		},
		{
			name:    "empty header",
			text:    "[]\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.text)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got sections %+v", got)
				}
				if !errors.Is(err, ErrSyntax) {
					t.Errorf("error %v does not wrap ErrSyntax", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Parse() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseErrorLocation(t *testing.T) {
	text := "[s]\nk=v\nbroken line\nk2=v2\n"

	_, err := Parse(text)
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *ParseError, got %v", err)
	}
	if pe.Line != 3 {
		t.Errorf("Line = %d, want 3", pe.Line)
	}
	if pe.Offset != strings.Index(text, "broken") {
		t.Errorf("Offset = %d, want %d", pe.Offset, strings.Index(text, "broken"))
	}
	if pe.Text != "broken line" {
		t.Errorf("Text = %q, want %q", pe.Text, "broken line")
	}
	if pe.Remaining != "broken line\nk2=v2\n" {
		t.Errorf("Remaining = %q", pe.Remaining)
	}
	if !strings.Contains(pe.Error(), "line 3") {
		t.Errorf("Error() = %q, want line number", pe.Error())
	}
}

func TestParseBytesStripsBOM(t *testing.T) {
	sections, err := ParseBytes([]byte("\ufeff[s]\nk=v\n"))
	if err != nil {
		t.Fatalf("ParseBytes failed: %v", err)
	}
	if len(sections) != 1 || sections[0].Name != "s" {
		t.Errorf("ParseBytes() = %+v", sections)
	}
}

func TestSectionGet(t *testing.T) {
	s := Section{Name: "s", Entries: []Entry{{"label", "first"}, {"label", "second"}, {"x", "y"}}}

	if v, ok := s.Get("label"); !ok || v != "first" {
		t.Errorf("Get(label) = %q, %v; want first, true", v, ok)
	}
	if _, ok := s.Get("missing"); ok {
		t.Error("Get(missing) reported found")
	}
	if got := s.Values("label"); !reflect.DeepEqual(got, []string{"first", "second"}) {
		t.Errorf("Values(label) = %v", got)
	}
}
