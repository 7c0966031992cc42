// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package mode

import (
	"fmt"
	"io"
	"os"

	"go.yaml.in/yaml/v3"
)

// profileFile is the on-disk shape of an importable set of profiles.
type profileFile struct {
	Modes []yaml.Node `yaml:"modes"`
}

// Decode reads profiles from YAML. Each entry starts from the All preset,
// so a file only needs the keys it changes.
func Decode(r io.Reader) ([]Profile, error) {
	var f profileFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("parsing mode file: %w", err)
	}

	out := make([]Profile, 0, len(f.Modes))
	for i := range f.Modes {
		p := Default()
		p.Name = ""
		p.ScoringWeights = nil
		if err := f.Modes[i].Decode(&p); err != nil {
			return nil, fmt.Errorf("parsing mode %d: %w", i+1, err)
		}
		if err := Validate(p); err != nil {
			return nil, fmt.Errorf("mode %d: %w", i+1, err)
		}
		out = append(out, p)
	}
	return out, nil
}

// ReadFile loads profiles from a YAML file.
func ReadFile(path string) ([]Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening mode file: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Encode writes profiles in the format Decode reads.
func Encode(w io.Writer, profiles []Profile) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(map[string][]Profile{"modes": profiles}); err != nil {
		return fmt.Errorf("writing modes: %w", err)
	}
	return enc.Close()
}
