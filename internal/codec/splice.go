package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/jsonc"
)

// Edits to structured files are spliced into the original bytes. Members
// that are not touched keep their layout and comments exactly as written.

var errNotObject = errors.New("not an object")

// member is one key/value pair of an object, as byte offsets into the
// document.
type member struct {
	key        string
	keyStart   int
	valueStart int
	valueEnd   int
	comma      int // -1 when no comma follows the value
}

// span is an object in the document: the offsets of its braces and members.
type span struct {
	open    int
	close   int
	members []member
}

func (s span) index(key string) (int, bool) {
	for i, m := range s.members {
		if m.key == key {
			return i, true
		}
	}
	return -1, false
}

// inline reports whether the object keeps its members on the opening line.
func (s span) inline(data []byte) bool {
	return len(s.members) > 0 && !bytes.ContainsRune(data[s.open:s.members[0].keyStart], '\n')
}

// validate rejects anything that is not a well-formed JSONC object.
func validate(data []byte) error {
	var doc any
	if err := json.Unmarshal(jsonc.ToJSON(data), &doc); err != nil {
		return err
	}
	if _, ok := doc.(map[string]any); !ok {
		return fmt.Errorf("top level is not an object")
	}
	return nil
}

// skipSpace advances past whitespace and comments.
func skipSpace(data []byte, i int) int {
	for i < len(data) {
		switch c := data[i]; {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '/' && i+1 < len(data) && data[i+1] == '/':
			for i < len(data) && data[i] != '\n' {
				i++
			}
		case c == '/' && i+1 < len(data) && data[i+1] == '*':
			end := bytes.Index(data[i+2:], []byte("*/"))
			if end < 0 {
				return len(data)
			}
			i += end + 4
		default:
			return i
		}
	}
	return i
}

func scanString(data []byte, i int) (int, error) {
	for j := i + 1; j < len(data); j++ {
		switch data[j] {
		case '\\':
			j++
		case '"':
			return j + 1, nil
		}
	}
	return 0, fmt.Errorf("unterminated string at offset %d", i)
}

// scanValue returns the offset just past the value starting at i.
func scanValue(data []byte, i int) (int, error) {
	if i >= len(data) {
		return 0, errors.New("unexpected end of document")
	}
	switch data[i] {
	case '"':
		return scanString(data, i)
	case '{', '[':
		depth := 0
		for j := i; j < len(data); {
			switch data[j] {
			case '"':
				end, err := scanString(data, j)
				if err != nil {
					return 0, err
				}
				j = end
				continue
			case '/':
				next := skipSpace(data, j)
				if next == j {
					return 0, fmt.Errorf("unexpected '/' at offset %d", j)
				}
				j = next
				continue
			case '{', '[':
				depth++
			case '}', ']':
				depth--
				if depth == 0 {
					return j + 1, nil
				}
			}
			j++
		}
		return 0, fmt.Errorf("unterminated value at offset %d", i)
	default:
		j := i
		for j < len(data) && strings.IndexByte(",}] \t\r\n/", data[j]) < 0 {
			j++
		}
		if j == i {
			return 0, fmt.Errorf("unexpected %q at offset %d", data[i], i)
		}
		return j, nil
	}
}

// objectAt scans the object whose opening brace is at open.
func objectAt(data []byte, open int) (span, error) {
	if open >= len(data) || data[open] != '{' {
		return span{}, fmt.Errorf("offset %d: %w", open, errNotObject)
	}
	s := span{open: open}
	i := skipSpace(data, open+1)
	for i < len(data) {
		if data[i] == '}' {
			s.close = i
			return s, nil
		}
		if data[i] != '"' {
			return span{}, fmt.Errorf("expected a key at offset %d", i)
		}
		keyEnd, err := scanString(data, i)
		if err != nil {
			return span{}, err
		}
		var key string
		if err := json.Unmarshal(data[i:keyEnd], &key); err != nil {
			return span{}, fmt.Errorf("key at offset %d: %w", i, err)
		}
		colon := skipSpace(data, keyEnd)
		if colon >= len(data) || data[colon] != ':' {
			return span{}, fmt.Errorf("expected ':' after %q", key)
		}
		start := skipSpace(data, colon+1)
		end, err := scanValue(data, start)
		if err != nil {
			return span{}, fmt.Errorf("%q: %w", key, err)
		}
		m := member{key: key, keyStart: i, valueStart: start, valueEnd: end, comma: -1}
		i = skipSpace(data, end)
		if i < len(data) && data[i] == ',' {
			m.comma = i
			i = skipSpace(data, i+1)
		}
		s.members = append(s.members, m)
	}
	return span{}, errors.New("unterminated object")
}

// descend follows path from the root object. It returns the deepest object
// reached and the segments that are missing or null below it.
func descend(data []byte, path []string) (span, []string, error) {
	obj, err := objectAt(data, skipSpace(data, 0))
	if err != nil {
		return span{}, nil, err
	}
	for i, seg := range path {
		idx, ok := obj.index(seg)
		if !ok {
			return obj, path[i:], nil
		}
		m := obj.members[idx]
		if isNull(data[m.valueStart:m.valueEnd]) {
			return obj, path[i:], nil
		}
		if data[m.valueStart] != '{' {
			return span{}, nil, fmt.Errorf("%s: %w", strings.Join(path[:i+1], "."), errNotObject)
		}
		if obj, err = objectAt(data, m.valueStart); err != nil {
			return span{}, nil, err
		}
	}
	return obj, nil, nil
}

// layout is the indentation style new members are rendered in.
type layout struct {
	unit      string
	multiline bool
}

func detectLayout(data []byte) layout {
	root, err := objectAt(data, skipSpace(data, 0))
	if err != nil || len(root.members) == 0 {
		return layout{unit: "  ", multiline: true}
	}
	if root.inline(data) {
		return layout{}
	}
	unit := lineIndent(data, root.members[0].keyStart)
	if unit == "" {
		unit = "  "
	}
	return layout{unit: unit, multiline: true}
}

func (l layout) value(raw []byte, prefix string, inline bool) ([]byte, error) {
	var buf bytes.Buffer
	if !l.multiline || inline {
		if err := json.Compact(&buf, raw); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	if err := json.Indent(&buf, raw, prefix, l.unit); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (l layout) member(key string, raw []byte, prefix string, inline bool) ([]byte, error) {
	v, err := l.value(raw, prefix, inline)
	if err != nil {
		return nil, err
	}
	sep := ": "
	if !l.multiline {
		sep = ":"
	}
	return concat(quoteKey(key), []byte(sep), v), nil
}

// set writes key=raw into the object at path, creating missing containers.
func (l layout) set(data []byte, path []string, key string, raw []byte) ([]byte, error) {
	obj, rest, err := descend(data, path)
	if err != nil {
		return nil, err
	}
	if len(rest) > 0 {
		key, raw = rest[0], nest(rest[1:], key, raw)
	}
	if i, ok := obj.index(key); ok {
		return l.replace(data, obj, obj.members[i], raw)
	}
	return l.insert(data, obj, key, raw)
}

func (l layout) replace(data []byte, obj span, m member, raw []byte) ([]byte, error) {
	if sameJSON(data[m.valueStart:m.valueEnd], raw) {
		return data, nil
	}
	v, err := l.value(raw, lineIndent(data, m.keyStart), obj.inline(data))
	if err != nil {
		return nil, err
	}
	return splice(data, m.valueStart, m.valueEnd, v), nil
}

func (l layout) insert(data []byte, obj span, key string, raw []byte) ([]byte, error) {
	if len(obj.members) == 0 {
		if !l.multiline {
			m, err := l.member(key, raw, "", true)
			if err != nil {
				return nil, err
			}
			return splice(data, obj.close, obj.close, m), nil
		}
		outer := lineIndent(data, obj.open)
		indent := outer + l.unit
		m, err := l.member(key, raw, indent, false)
		if err != nil {
			return nil, err
		}
		at := obj.close
		for at > obj.open+1 && (data[at-1] == ' ' || data[at-1] == '\t') {
			at--
		}
		if data[at-1] == '\n' {
			return splice(data, at, obj.close, concat([]byte(indent), m, []byte("\n"+outer))), nil
		}
		return splice(data, obj.close, obj.close, concat([]byte("\n"+indent), m, []byte("\n"+outer))), nil
	}

	last := obj.members[len(obj.members)-1]
	if obj.inline(data) {
		m, err := l.member(key, raw, "", true)
		if err != nil {
			return nil, err
		}
		space := ""
		if l.multiline {
			space = " "
		}
		if last.comma >= 0 {
			return splice(data, last.comma+1, last.comma+1, concat([]byte(space), m, []byte(","))), nil
		}
		return splice(data, last.valueEnd, last.valueEnd, concat([]byte(","+space), m)), nil
	}

	indent := lineIndent(data, last.keyStart)
	m, err := l.member(key, raw, indent, false)
	if err != nil {
		return nil, err
	}
	if last.comma >= 0 {
		at := lineEnd(data, last.comma+1)
		return splice(data, at, at, concat([]byte("\n"+indent), m, []byte(","))), nil
	}
	at := lineEnd(data, last.valueEnd)
	return concat(data[:last.valueEnd], []byte(","), data[last.valueEnd:at], []byte("\n"+indent), m, data[at:]), nil
}

// strip deletes every member named in keys from the object at path. A
// missing, null or non-object container has nothing to strip.
func strip(data []byte, path, keys []string) ([]byte, bool, error) {
	changed := false
	for _, key := range keys {
		for {
			obj, rest, err := descend(data, path)
			if errors.Is(err, errNotObject) || len(rest) > 0 {
				return data, changed, nil
			}
			if err != nil {
				return nil, false, err
			}
			i, ok := obj.index(key)
			if !ok {
				break
			}
			data = removeMember(data, obj, i)
			changed = true
		}
	}
	return data, changed, nil
}

func removeMember(data []byte, obj span, i int) []byte {
	m := obj.members[i]
	start := m.keyStart
	for start > obj.open+1 && isSpace(data[start-1]) {
		start--
	}
	if m.comma >= 0 {
		return splice(data, start, m.comma+1, nil)
	}
	out := splice(data, start, m.valueEnd, nil)
	if i > 0 && obj.members[i-1].comma >= 0 {
		prev := obj.members[i-1].comma
		return splice(out, prev, prev+1, nil)
	}
	if len(obj.members) == 1 {
		closeAt := obj.close - (m.valueEnd - start)
		if len(bytes.TrimSpace(out[obj.open+1:closeAt])) == 0 {
			return splice(out, obj.open+1, closeAt, nil)
		}
	}
	return out
}

// nest wraps key=raw in one object per path segment.
func nest(path []string, key string, raw []byte) []byte {
	out := wrap(key, raw)
	for i := len(path) - 1; i >= 0; i-- {
		out = wrap(path[i], out)
	}
	return out
}

func wrap(key string, raw []byte) []byte {
	return concat([]byte("{"), quoteKey(key), []byte(":"), raw, []byte("}"))
}

func sameJSON(existing, raw []byte) bool {
	var a, b bytes.Buffer
	if json.Compact(&a, jsonc.ToJSON(existing)) != nil || json.Compact(&b, raw) != nil {
		return false
	}
	return bytes.Equal(a.Bytes(), b.Bytes())
}

// lineIndent returns the leading whitespace of the line containing pos.
func lineIndent(data []byte, pos int) string {
	start := bytes.LastIndexByte(data[:pos], '\n') + 1
	end := start
	for end < pos && (data[end] == ' ' || data[end] == '\t') {
		end++
	}
	return string(data[start:end])
}

// lineEnd skips a trailing line comment after i so insertions land below it.
func lineEnd(data []byte, i int) int {
	j := i
	for j < len(data) && (data[j] == ' ' || data[j] == '\t') {
		j++
	}
	if !bytes.HasPrefix(data[j:], []byte("//")) {
		return i
	}
	if nl := bytes.IndexByte(data[j:], '\n'); nl >= 0 {
		return j + nl
	}
	return len(data)
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func splice(data []byte, from, to int, insert []byte) []byte {
	return concat(data[:from], insert, data[to:])
}

func concat(parts ...[]byte) []byte {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	out := make([]byte, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func quoteKey(key string) []byte {
	b, _ := marshalNoEscape(key)
	return b
}

func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func isNull(raw []byte) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
