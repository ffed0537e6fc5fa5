package registry

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Endpoint describes one callable operation. Path may contain {param}
// template segments filled from step parameters at run time.
type Endpoint struct {
	ID          string            `yaml:"-"`
	Method      string            `yaml:"method"`
	Path        string            `yaml:"path"`
	Description string            `yaml:"description,omitempty"`
	Headers     map[string]string `yaml:"headers,omitempty"`
	// ParamSchema is an optional JSON schema validated against step params.
	ParamSchema map[string]any `yaml:"paramSchema,omitempty"`
}

// Registry is a read-only endpoint catalog plus the base URL requests are
// resolved against.
type Registry struct {
	BaseURL   string              `yaml:"baseUrl,omitempty"`
	Endpoints map[string]Endpoint `yaml:"endpoints"`
}

// Parse decodes a registry from YAML.
func Parse(data []byte) (*Registry, error) {
	var r Registry
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parsing registry: %w", err)
	}
	for id, ep := range r.Endpoints {
		ep.ID = id
		if ep.Method == "" {
			ep.Method = "GET"
		}
		r.Endpoints[id] = ep
	}
	return &r, nil
}

// Load reads and decodes a registry file.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading registry file: %w", err)
	}
	r, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// Get looks up an endpoint by id.
func (r *Registry) Get(id string) (Endpoint, bool) {
	ep, ok := r.Endpoints[id]
	return ep, ok
}

// IDs returns all endpoint ids in sorted order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.Endpoints))
	for id := range r.Endpoints {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Marshal encodes the registry back to YAML, e.g. after an OpenAPI import.
func (r *Registry) Marshal() ([]byte, error) {
	return yaml.Marshal(r)
}

// Validate reports endpoints with structural problems.
func (r *Registry) Validate() error {
	for _, id := range r.IDs() {
		ep := r.Endpoints[id]
		if ep.Path == "" {
			return fmt.Errorf("endpoint %q has no path", id)
		}
	}
	return nil
}
