package api

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/mitchellh/mapstructure"
)

// GrammarRequest is the request passed to [Client.Grammar].
type GrammarRequest struct {
	// Schema is the JSON schema to compile.
	Schema json.RawMessage `json:"schema"`

	// Options lists compiler options. See [Options].
	Options map[string]any `json:"options,omitempty"`
}

// GrammarResponse is the response returned by [Client.Grammar].
type GrammarResponse struct {
	// Root is the name of the production for the root schema.
	Root string `json:"root"`

	// Grammar is the GBNF text of the compiled grammar.
	Grammar string `json:"grammar"`

	// Productions is the number of productions in Grammar, excluding root.
	Productions int `json:"productions"`
}

// CheckRequest is the request passed to [Client.Check]. Each instance is
// matched against the grammar compiled from Schema and validated against
// Schema itself.
type CheckRequest struct {
	Schema    json.RawMessage `json:"schema"`
	Options   map[string]any  `json:"options,omitempty"`
	Instances []string        `json:"instances"`
}

type CheckResponse struct {
	Root    string        `json:"root"`
	Results []CheckResult `json:"results"`
}

// CheckResult reports one instance. Accepted is whether the grammar matches
// the instance text; Valid is whether the instance validates against the
// schema. A sound grammar never accepts an invalid instance.
type CheckResult struct {
	Accepted bool   `json:"accepted"`
	Valid    bool   `json:"valid"`
	Error    string `json:"error,omitempty"`
}

type VersionResponse struct {
	Version string `json:"version"`
}

// Options are the compiler options accepted in request option maps.
type Options struct {
	// RootName names the root production.
	RootName string `json:"root_name,omitempty"`

	// Whitespace is one of "single", "none" or "flexible".
	Whitespace string `json:"whitespace,omitempty"`
}

// FromMap decodes m into o. Unknown keys are an error.
func (o *Options) FromMap(m map[string]any) error {
	var md mapstructure.Metadata
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Metadata: &md,
		Result:   o,
		TagName:  "json",
	})
	if err != nil {
		return err
	}

	if err := dec.Decode(m); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}

	if len(md.Unused) > 0 {
		slices.Sort(md.Unused)
		return fmt.Errorf("invalid option %q", md.Unused[0])
	}
	return nil
}
