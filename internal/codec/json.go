package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jmespath/go-jmespath"
	"github.com/tidwall/jsonc"

	"mcpreg/internal/clients"
	"mcpreg/internal/registration"
	"mcpreg/internal/scan"
)

// urlFields are accepted on read; the descriptor picks the one written.
var urlFields = []string{"url", "serverUrl"}

// JSON handles clients that keep registrations in a JSON (or JSONC) object.
// Writes touch only this client's entries; the rest of the file is kept
// byte for byte.
type JSON struct {
	desc clients.Descriptor
}

func NewJSON(d clients.Descriptor) *JSON {
	if d.URLField == "" {
		d.URLField = "url"
	}
	return &JSON{desc: d}
}

func (c *JSON) Extract(data []byte) (registration.Extracted, error) {
	ext := registration.Extracted{ArtifactExists: true}
	if len(bytes.TrimSpace(data)) == 0 {
		return ext, nil
	}

	var doc any
	if err := json.Unmarshal(jsonc.ToJSON(data), &doc); err != nil {
		return ext, err
	}
	if _, ok := doc.(map[string]any); !ok {
		return ext, fmt.Errorf("top level is not an object")
	}

	for _, location := range c.desc.Locations {
		for _, key := range c.desc.Keys() {
			found, err := jmespath.Search(entryExpression(location, key), doc)
			if err != nil {
				return ext, fmt.Errorf("locate %s.%s: %w", location, key, err)
			}
			entry, ok := found.(map[string]any)
			if !ok {
				continue
			}
			ext.EntryExists = true
			ext.Key = key
			fillFromEntry(&ext, entry)
			return ext, nil
		}
	}
	return ext, nil
}

// entryExpression builds a JMESPath expression with every segment quoted,
// e.g. "mcp"."servers"."JungleMCP".
func entryExpression(location, key string) string {
	segments := append(strings.Split(location, "."), key)
	quoted := make([]string, len(segments))
	for i, s := range segments {
		b, _ := json.Marshal(s)
		quoted[i] = string(b)
	}
	return strings.Join(quoted, ".")
}

func fillFromEntry(ext *registration.Extracted, entry map[string]any) {
	for _, field := range urlFields {
		if url, ok := entry[field].(string); ok && strings.TrimSpace(url) != "" {
			ext.URL = url
			ext.Transport = registration.TransportHTTP
			break
		}
	}
	if cmd, ok := entry["command"].(string); ok {
		ext.Command = cmd
	}
	if rawArgs, ok := entry["args"].([]any); ok {
		args := make([]string, 0, len(rawArgs))
		for _, a := range rawArgs {
			if s, ok := a.(string); ok {
				args = append(args, s)
			}
		}
		ext.Args = args
		if ext.URL == "" {
			ext.Transport = registration.TransportStdio
		}
		if src, ok := scan.FromArgs(args); ok {
			ext.PackageSource = src
		}
	}
}

func (c *JSON) Merge(data []byte, target registration.Target) ([]byte, error) {
	entry, err := c.entry(target)
	if err != nil {
		return nil, err
	}

	fresh := len(bytes.TrimSpace(data)) == 0
	if fresh {
		data = []byte("{}")
	} else if err := validate(data); err != nil {
		return nil, err
	}

	keys := c.desc.Keys()
	for _, location := range c.desc.Locations[1:] {
		if data, _, err = strip(data, strings.Split(location, "."), keys); err != nil {
			return nil, err
		}
	}
	primary := strings.Split(c.desc.Locations[0], ".")
	if data, _, err = strip(data, primary, keys[1:]); err != nil {
		return nil, err
	}
	out, err := detectLayout(data).set(data, primary, c.desc.Key, entry)
	if err != nil {
		return nil, err
	}
	if fresh {
		out = append(out, '\n')
	}
	return out, nil
}

func (c *JSON) Strip(data []byte) ([]byte, bool, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return data, false, nil
	}
	if err := validate(data); err != nil {
		return nil, false, err
	}
	out, changed := data, false
	for _, location := range c.desc.Locations {
		next, removed, err := strip(out, strings.Split(location, "."), c.desc.Keys())
		if err != nil {
			return nil, false, err
		}
		out, changed = next, changed || removed
	}
	return out, changed, nil
}

// entry renders the registration object for target with a stable key order.
func (c *JSON) entry(target registration.Target) ([]byte, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}
	var fields [][]byte
	put := func(key string, v any) error {
		raw, err := marshalNoEscape(v)
		if err != nil {
			return err
		}
		fields = append(fields, concat(quoteKey(key), []byte(":"), raw))
		return nil
	}

	if c.desc.TypeField {
		if err := put("type", string(target.Transport)); err != nil {
			return nil, err
		}
	}
	switch target.Transport {
	case registration.TransportHTTP:
		if err := put(c.desc.URLField, target.URL); err != nil {
			return nil, err
		}
	case registration.TransportStdio:
		if err := put("command", target.Launch.Executable); err != nil {
			return nil, err
		}
		if err := put("args", target.Launch.Args()); err != nil {
			return nil, err
		}
	}
	return concat([]byte("{"), bytes.Join(fields, []byte(",")), []byte("}")), nil
}
