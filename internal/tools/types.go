package tools

// Status captures the resolved state of a client tool.
type Status struct {
	Tool      string   `json:"tool"`
	Version   string   `json:"version,omitempty"`
	Minimum   string   `json:"minimum,omitempty"`
	Path      string   `json:"path,omitempty"`
	Satisfied bool     `json:"satisfied"`
	Error     string   `json:"error,omitempty"`
	Notes     []string `json:"notes,omitempty"`
}

// Definition contains metadata required to probe a tool.
type Definition struct {
	Name           string
	Executable     string
	MinimumVersion string
	VersionSwitch  string
	// UsedFor names what the tool is needed for in doctor output.
	UsedFor string
}
