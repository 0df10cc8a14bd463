package codec

import (
	"fmt"

	"mcpreg/internal/clients"
	"mcpreg/internal/registration"
	"mcpreg/internal/scan"
)

// Flat handles clients whose configuration is a TOML-style table file. It
// works on lines through scan.FlatFile so comments and unrelated tables are
// kept verbatim.
type Flat struct {
	desc clients.Descriptor
}

func NewFlat(d clients.Descriptor) *Flat {
	return &Flat{desc: d}
}

func (c *Flat) tableName(key string) string {
	return c.desc.Locations[0] + "." + key
}

func (c *Flat) Extract(data []byte) (registration.Extracted, error) {
	ext := registration.Extracted{ArtifactExists: true}
	f := scan.ParseFlat(data)

	for _, key := range c.desc.Keys() {
		tbl, ok := f.Table(c.tableName(key))
		if !ok {
			continue
		}
		ext.EntryExists = true
		ext.Key = key

		for _, field := range urlFields {
			raw, ok := tbl.Values[field]
			if !ok {
				continue
			}
			url, ok := scan.StringValue(raw)
			if !ok {
				return ext, fmt.Errorf("[%s] %s: expected a string", tbl.Name, field)
			}
			ext.URL = url
			ext.Transport = registration.TransportHTTP
			break
		}
		if raw, ok := tbl.Values["command"]; ok {
			cmd, ok := scan.StringValue(raw)
			if !ok {
				return ext, fmt.Errorf("[%s] command: expected a string", tbl.Name)
			}
			ext.Command = cmd
		}
		if raw, ok := tbl.Values["args"]; ok {
			args, ok := scan.ArrayValue(raw)
			if !ok {
				return ext, fmt.Errorf("[%s] args: expected an array of strings", tbl.Name)
			}
			ext.Args = args
			if ext.URL == "" {
				ext.Transport = registration.TransportStdio
			}
			if src, ok := scan.FromArgs(args); ok {
				ext.PackageSource = src
			}
		}
		return ext, nil
	}
	return ext, nil
}

func (c *Flat) Merge(data []byte, target registration.Target) ([]byte, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}
	f := scan.ParseFlat(data)
	for _, key := range c.desc.Keys()[1:] {
		f.Remove(c.tableName(key))
	}

	var body []string
	switch target.Transport {
	case registration.TransportHTTP:
		body = []string{"url = " + scan.Quote(target.URL)}
	case registration.TransportStdio:
		body = []string{
			"command = " + scan.Quote(target.Launch.Executable),
			"args = " + scan.QuoteArray(target.Launch.Args()),
		}
	}
	f.Replace(c.tableName(c.desc.Key), body)
	return f.Bytes(), nil
}

func (c *Flat) Strip(data []byte) ([]byte, bool, error) {
	f := scan.ParseFlat(data)
	changed := false
	for _, key := range c.desc.Keys() {
		changed = f.Remove(c.tableName(key)) || changed
	}
	if !changed {
		return data, false, nil
	}
	return f.Bytes(), true, nil
}
