package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario is a sequence of store operations with expectations.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Schemas bind CUE files to path prefixes for payload validation.
	// Files are relative to the scenario file.
	Schemas []SchemaRef `yaml:"schemas,omitempty"`

	// Steps run in order against one store.
	Steps []Step `yaml:"steps"`

	// Assertions check the final state of the tree.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// SchemaRef binds a CUE file to a prefix.
type SchemaRef struct {
	Prefix string `yaml:"prefix"`
	File   string `yaml:"file"`
}

// Step is one store operation.
type Step struct {
	Op    string         `yaml:"op"`
	Path  string         `yaml:"path"`
	Data  map[string]any `yaml:"data,omitempty"`
	Query string         `yaml:"query,omitempty"`
	Top   string         `yaml:"top,omitempty"`

	// Expect is checked against the outcome. If nil the step must succeed.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect describes a step outcome. Only the fields that are set are checked.
type Expect struct {
	// Error is the expected error code (e.g. NOT_FOUND, PARSE_ERROR).
	Error string `yaml:"error,omitempty"`

	Created *bool          `yaml:"created,omitempty"`
	Deleted *int64         `yaml:"deleted,omitempty"`
	Exists  *bool          `yaml:"exists,omitempty"`
	Paths   []string       `yaml:"paths,omitempty"`
	Data    map[string]any `yaml:"data,omitempty"`
}

// Step operations.
const (
	OpSave    = "save"
	OpGet     = "get"
	OpExists  = "exists"
	OpLs      = "ls"
	OpParents = "parents"
	OpFind    = "find"
	OpRm      = "rm"
	OpCd      = "cd"
)

// Assertion types.
const (
	AssertExists  = "exists"
	AssertMissing = "missing"
	AssertCount   = "count"
	AssertData    = "data"
)

// Assertion checks the final tree.
type Assertion struct {
	Type   string         `yaml:"type"`
	Path   string         `yaml:"path"`
	Count  int64          `yaml:"count,omitempty"`
	Expect map[string]any `yaml:"expect,omitempty"`
}

// LoadScenario reads and validates a scenario file. Schema files are
// resolved relative to the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var s Scenario
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	for i := range s.Schemas {
		if f := s.Schemas[i].File; f != "" && !filepath.IsAbs(f) {
			s.Schemas[i].File = filepath.Join(dir, f)
		}
	}

	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}
	return &s, nil
}

// LoadScenarios loads every *.yaml file in dir, sorted by file name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	scenarios := make([]*Scenario, 0, len(files))
	for _, f := range files {
		s, err := LoadScenario(f)
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("at least one step is required")
	}
	for i, sc := range s.Schemas {
		if sc.Prefix == "" || sc.File == "" {
			return fmt.Errorf("schemas[%d]: prefix and file are required", i)
		}
	}
	for i := range s.Steps {
		if err := validateStep(i, &s.Steps[i]); err != nil {
			return err
		}
	}
	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, st *Step) error {
	switch st.Op {
	case OpSave, OpGet, OpExists, OpLs, OpParents, OpFind, OpRm, OpCd:
	case "":
		return fmt.Errorf("steps[%d]: op is required", index)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, st.Op)
	}
	if st.Query != "" && st.Op != OpFind {
		return fmt.Errorf("steps[%d]: query is only valid for find", index)
	}
	if st.Data != nil && st.Op != OpSave {
		return fmt.Errorf("steps[%d]: data is only valid for save", index)
	}
	if st.Top != "" && st.Op != OpParents {
		return fmt.Errorf("steps[%d]: top is only valid for parents", index)
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	if a.Path == "" {
		return fmt.Errorf("assertions[%d]: path is required", index)
	}
	switch a.Type {
	case AssertExists, AssertMissing:
	case AssertCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertData:
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for data", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
