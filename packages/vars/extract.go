package vars

import "encoding/json"

// Rule describes how to pull one variable out of a step's JSON response.
// When the path resolves to nothing and Default is set, the default is
// written instead; with no default the rule is skipped and reported as a
// miss.
type Rule struct {
	Name    string `yaml:"name" json:"name"`
	Path    string `yaml:"path" json:"path"`
	Default any    `yaml:"default,omitempty" json:"default,omitempty"`
}

// Extraction is one (name, value) pair written by ExtractAll, in rule order.
type Extraction struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// ExtractAll applies rules to a raw JSON body in order. Every resolved or
// defaulted value is written to the store via Set; misses are returned by
// rule name for caller-side reporting.
func (s *Store) ExtractAll(body []byte, rules []Rule) (written []Extraction, misses []string) {
	for _, rule := range rules {
		value, ok := ExtractPathBytes(body, rule.Path)
		if !ok {
			if rule.Default == nil {
				misses = append(misses, rule.Name)
				continue
			}
			value = rule.Default
		}
		s.Set(rule.Name, value)
		written = append(written, Extraction{Name: rule.Name, Value: value})
	}
	return written, misses
}

// ExtractAllDoc is ExtractAll over an already-decoded JSON document.
func (s *Store) ExtractAllDoc(doc any, rules []Rule) (written []Extraction, misses []string) {
	raw, err := json.Marshal(doc)
	if err != nil {
		for _, rule := range rules {
			misses = append(misses, rule.Name)
		}
		return nil, misses
	}
	return s.ExtractAll(raw, rules)
}
