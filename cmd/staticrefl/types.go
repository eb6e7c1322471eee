package main

// CLIResult is the top-level JSON envelope for all query commands.
type CLIResult struct {
	Command    string `json:"command"`
	Results    any    `json:"results"`
	TotalCount *int   `json:"total_count,omitempty"`
	Error      string `json:"error,omitempty"`
}

// CLIWhere is the answer of the resolver chain for one class.
type CLIWhere struct {
	Class string `json:"class"`
	Path  string `json:"path"`
}

// CLIClass is a JSON-friendly indexed declaration.
type CLIClass struct {
	Name       string   `json:"name"`
	Kind       string   `json:"kind"`
	Modifiers  []string `json:"modifiers,omitempty"`
	Parent     string   `json:"parent,omitempty"`
	Interfaces []string `json:"interfaces,omitempty"`
	File       string   `json:"file"`
	StartLine  int      `json:"start_line"`
	EndLine    int      `json:"end_line"`
}

// CLIReflection is a reflected class with its merged members.
type CLIReflection struct {
	Name       string         `json:"name"`
	Kind       string         `json:"kind"`
	Modifiers  []string       `json:"modifiers,omitempty"`
	Parent     string         `json:"parent,omitempty"`
	Interfaces []string       `json:"interfaces,omitempty"`
	Constants  map[string]any `json:"constants"`
	Methods    []CLIMethod    `json:"methods"`
	Properties []CLIProperty  `json:"properties"`
}

type CLIMethod struct {
	Name           string         `json:"name"`
	DeclaringClass string         `json:"declaring_class"`
	Modifiers      []string       `json:"modifiers,omitempty"`
	Parameters     []CLIParameter `json:"parameters,omitempty"`
}

type CLIParameter struct {
	Name     string `json:"name"`
	Position int    `json:"position"`
	Type     string `json:"type,omitempty"`
	ByRef    bool   `json:"by_ref,omitempty"`
	Optional bool   `json:"optional,omitempty"`
	Default  any    `json:"default,omitempty"`
}

type CLIProperty struct {
	Name           string   `json:"name"`
	DeclaringClass string   `json:"declaring_class,omitempty"`
	Modifiers      []string `json:"modifiers,omitempty"`
	Default        any      `json:"default,omitempty"`
}
