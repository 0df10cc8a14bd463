package scan

import (
	"fmt"
	"strings"
)

// FlatFile is a line-oriented view of a TOML-style table file. It only
// understands what registration entries need: [table] headers, key = value
// lines, basic/literal strings and (possibly multi-line) string arrays.
// Lines it does not touch are written back unchanged.
type FlatFile struct {
	lines []string
}

// Table is one [header] section. Start is the header line index and End the
// index of the next header (or the line count).
type Table struct {
	Name   string
	Start  int
	End    int
	Array  bool // [[name]] array-of-tables entry
	Values map[string]string
}

// ParseFlat splits data into lines. A trailing newline is implied on output.
func ParseFlat(data []byte) *FlatFile {
	text := string(data)
	if text == "" {
		return &FlatFile{}
	}
	text = strings.TrimSuffix(text, "\n")
	return &FlatFile{lines: strings.Split(text, "\n")}
}

// Bytes renders the file with a single trailing newline.
func (f *FlatFile) Bytes() []byte {
	if len(f.lines) == 0 {
		return nil
	}
	return []byte(strings.Join(f.lines, "\n") + "\n")
}

// Tables returns every table in file order. Lines inside multi-line strings
// and arrays are never taken for headers.
func (f *FlatFile) Tables() []Table {
	cont := f.continued()
	var tables []Table
	for i, line := range f.lines {
		if cont[i] {
			continue
		}
		name, array, ok := headerName(line)
		if !ok {
			continue
		}
		if n := len(tables); n > 0 {
			tables[n-1].End = i
		}
		tables = append(tables, Table{Name: name, Start: i, End: len(f.lines), Array: array})
	}
	for i := range tables {
		tables[i].Values = f.values(tables[i], cont)
	}
	return tables
}

// Table looks up a table by its dotted name. Quoted and bare header segments
// compare equal, so [a."b"] matches "a.b".
func (f *FlatFile) Table(name string) (Table, bool) {
	want := normalizeName(name)
	for _, t := range f.Tables() {
		if t.Name == want && !t.Array {
			return t, true
		}
	}
	return Table{}, false
}

// Replace removes the named table together with its sub-tables and inserts
// body in its place, or appends it when the table is absent. The header line
// is generated from name.
func (f *FlatFile) Replace(name string, body []string) {
	pos := f.remove(name)
	block := append([]string{"[" + name + "]"}, body...)

	if pos < 0 || pos >= len(f.lines) {
		if n := len(f.lines); n > 0 && strings.TrimSpace(f.lines[n-1]) != "" {
			f.lines = append(f.lines, "")
		}
		f.lines = append(f.lines, block...)
		return
	}

	block = append(block, "")
	lines := make([]string, 0, len(f.lines)+len(block))
	lines = append(lines, f.lines[:pos]...)
	lines = append(lines, block...)
	lines = append(lines, f.lines[pos:]...)
	f.lines = lines
}

// Remove deletes the named table and its sub-tables. It reports whether
// anything was removed.
func (f *FlatFile) Remove(name string) bool {
	pos := f.remove(name)
	if pos < 0 {
		return false
	}
	for len(f.lines) > 0 && strings.TrimSpace(f.lines[len(f.lines)-1]) == "" {
		f.lines = f.lines[:len(f.lines)-1]
	}
	return true
}

// remove deletes matching tables and returns the line index of the first
// removed header, or -1.
func (f *FlatFile) remove(name string) int {
	want := normalizeName(name)
	first := -1
	for {
		var target *Table
		for _, t := range f.Tables() {
			if !t.Array && (t.Name == want || strings.HasPrefix(t.Name, want+".")) {
				t := t
				target = &t
				break
			}
		}
		if target == nil {
			return first
		}
		if first < 0 || target.Start < first {
			first = target.Start
		}
		f.lines = append(f.lines[:target.Start], f.lines[target.End:]...)
	}
}

func (f *FlatFile) values(t Table, cont []bool) map[string]string {
	values := map[string]string{}
	for i := t.Start + 1; i < t.End; i++ {
		if cont[i] {
			continue
		}
		line := strings.TrimSpace(strings.TrimSuffix(f.lines[i], "\r"))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = unquote(strings.TrimSpace(key))

		array := strings.HasPrefix(strings.TrimSpace(value), "[")
		if array {
			value = stripComment(value)
		}
		for i+1 < t.End && cont[i+1] {
			i++
			next := strings.TrimSuffix(f.lines[i], "\r")
			if array {
				value += " " + stripComment(next)
			} else {
				value += "\n" + next
			}
		}
		if !array {
			value = stripComment(value)
		}
		values[key] = value
	}
	return values
}

// continued marks the lines that start inside a multi-line string or an
// unclosed array.
func (f *FlatFile) continued() []bool {
	marks := make([]bool, len(f.lines))
	var st lexState
	for i, line := range f.lines {
		marks[i] = st.open()
		st = st.scan(line)
	}
	return marks
}

// lexState is what is still open at the end of a line.
type lexState struct {
	delim string // """ or ''' of an unterminated multi-line string
	depth int    // unclosed [ brackets
}

func (s lexState) open() bool {
	return s.delim != "" || s.depth > 0
}

func (s lexState) scan(line string) lexState {
	for i := 0; i < len(line); {
		if s.delim != "" {
			end := closeDelim(line, i, s.delim)
			if end < 0 {
				return s
			}
			i, s.delim = end, ""
			continue
		}
		switch c := line[i]; {
		case c == '#':
			return s
		case strings.HasPrefix(line[i:], `"""`), strings.HasPrefix(line[i:], `'''`):
			s.delim = line[i : i+3]
			i += 3
		case c == '"' || c == '\'':
			i = skipQuoted(line, i)
		case c == '[':
			s.depth++
			i++
		case c == ']':
			if s.depth > 0 {
				s.depth--
			}
			i++
		default:
			i++
		}
	}
	return s
}

// closeDelim returns the index just past delim in line, starting at i, or -1.
// Up to two quotes directly before the delimiter belong to the string.
func closeDelim(line string, i int, delim string) int {
	for i < len(line) {
		if delim == `"""` && line[i] == '\\' {
			i += 2
			continue
		}
		if strings.HasPrefix(line[i:], delim) {
			end := i + 3
			for n := 0; n < 2 && end < len(line) && line[end] == delim[0]; n++ {
				end++
			}
			return end
		}
		i++
	}
	return -1
}

// skipQuoted returns the index just past the single-line string at i.
func skipQuoted(line string, i int) int {
	q := line[i]
	for j := i + 1; j < len(line); j++ {
		if q == '"' && line[j] == '\\' {
			j++
			continue
		}
		if line[j] == q {
			return j + 1
		}
	}
	return len(line)
}

func headerName(line string) (name string, array, ok bool) {
	line = strings.TrimSpace(strings.TrimSuffix(line, "\r"))
	if !strings.HasPrefix(line, "[") {
		return "", false, false
	}
	from := 1
	if strings.HasPrefix(line, "[[") {
		from, array = 2, true
	}
	end := closingBracket(line, from)
	if end < 0 {
		return "", false, false
	}
	return normalizeName(line[from:end]), array, true
}

// closingBracket finds the ] that closes a header, skipping quoted segments.
func closingBracket(line string, from int) int {
	var quote byte
	for i := from; i < len(line); i++ {
		c := line[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == ']':
			return i
		}
	}
	return -1
}

func normalizeName(name string) string {
	var (
		parts   []string
		current strings.Builder
		quote   byte
	)
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
				continue
			}
			current.WriteByte(c)
		case c == '"' || c == '\'':
			quote = c
		case c == '.':
			parts = append(parts, strings.TrimSpace(current.String()))
			current.Reset()
		case c == ' ' || c == '\t':
		default:
			current.WriteByte(c)
		}
	}
	parts = append(parts, strings.TrimSpace(current.String()))
	return strings.Join(parts, ".")
}

// stripComment drops a trailing # comment that sits outside any string.
func stripComment(value string) string {
	var quote byte
	for i := 0; i < len(value); i++ {
		c := value[i]
		switch {
		case quote != 0:
			if c == '\\' && quote == '"' {
				i++
				continue
			}
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '#':
			return strings.TrimSpace(value[:i])
		}
	}
	return strings.TrimSpace(value)
}

// StringValue decodes a basic ("...") or literal ('...') string value.
func StringValue(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if len(raw) < 2 {
		return "", false
	}
	switch raw[0] {
	case '\'':
		if raw[len(raw)-1] != '\'' {
			return "", false
		}
		return raw[1 : len(raw)-1], true
	case '"':
		value, rest, ok := readBasic(raw)
		if !ok || strings.TrimSpace(rest) != "" {
			return "", false
		}
		return value, true
	}
	return "", false
}

// ArrayValue decodes an array of strings.
func ArrayValue(raw string) ([]string, bool) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "[") || !strings.HasSuffix(raw, "]") {
		return nil, false
	}
	body := strings.TrimSpace(raw[1 : len(raw)-1])
	values := []string{}
	for body != "" {
		var (
			value string
			ok    bool
		)
		switch body[0] {
		case '"':
			value, body, ok = readBasic(body)
		case '\'':
			end := strings.IndexByte(body[1:], '\'')
			if end >= 0 {
				value, body, ok = body[1:end+1], body[end+2:], true
			}
		}
		if !ok {
			return nil, false
		}
		values = append(values, value)
		body = strings.TrimSpace(body)
		body = strings.TrimSpace(strings.TrimPrefix(body, ","))
	}
	return values, true
}

// readBasic decodes a leading basic string and returns the remainder.
func readBasic(s string) (string, string, bool) {
	var b strings.Builder
	for i := 1; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"':
			return b.String(), s[i+1:], true
		case '\\':
			if i+1 >= len(s) {
				return "", "", false
			}
			i++
			switch s[i] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case '"', '\\':
				b.WriteByte(s[i])
			default:
				b.WriteByte('\\')
				b.WriteByte(s[i])
			}
		default:
			b.WriteByte(c)
		}
	}
	return "", "", false
}

// Quote renders s as a basic string.
func Quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"', '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		default:
			if r < 0x20 {
				fmt.Fprintf(&b, `\u%04X`, r)
				continue
			}
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// QuoteArray renders values as an inline array of basic strings.
func QuoteArray(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = Quote(v)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
