// Package intent implements declared-intent matching and the layered
// resolution decision that picks a single action name for a request.
package intent

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Intent is a declared user goal recognized from free text via its slot
// phrases. Intents are configuration, not code: they are supplied once per
// application, typically from a YAML file.
type Intent struct {
	Name  string   `yaml:"name"`
	Slots []string `yaml:"slots"`

	// Threshold overrides the resolver's default matching threshold for
	// this intent when > 0.
	Threshold int `yaml:"threshold,omitempty"`
}

type file struct {
	Intents []Intent `yaml:"intents"`
}

// LoadFile reads declared intents from a YAML document of the form:
//
//	intents:
//	  - name: greeting
//	    slots: ["привет", "здравствуй"]
//	    threshold: 70
func LoadFile(path string) ([]Intent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read intents file: %w", err)
	}
	return Parse(data)
}

// Parse decodes declared intents from YAML bytes.
func Parse(data []byte) ([]Intent, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode intents: %w", err)
	}
	for i, in := range f.Intents {
		if in.Name == "" {
			return nil, fmt.Errorf("intent %d: name must not be empty", i)
		}
		if len(in.Slots) == 0 {
			return nil, fmt.Errorf("intent %q: at least one slot phrase required", in.Name)
		}
	}
	return f.Intents, nil
}
