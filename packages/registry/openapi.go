package registry

import (
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// ImportOption configures an OpenAPI import.
type ImportOption func(*importer)

// WithBaseURL overrides the base URL taken from the document's servers.
func WithBaseURL(url string) ImportOption {
	return func(i *importer) {
		i.baseURL = url
	}
}

// WithTagFilter keeps only operations carrying one of the given tags.
func WithTagFilter(tags []string) ImportOption {
	return func(i *importer) {
		i.tags = tags
	}
}

type importer struct {
	baseURL string
	tags    []string
}

// FromOpenAPIFile builds a registry from an OpenAPI 3 document. Endpoint
// ids come from operationId, falling back to a method+path slug.
func FromOpenAPIFile(path string, opts ...ImportOption) (*Registry, error) {
	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = true

	doc, err := loader.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading OpenAPI document: %w", err)
	}
	return fromDocument(doc, opts...)
}

func fromDocument(doc *openapi3.T, opts ...ImportOption) (*Registry, error) {
	imp := &importer{}
	for _, opt := range opts {
		opt(imp)
	}

	reg := &Registry{Endpoints: make(map[string]Endpoint)}
	if imp.baseURL != "" {
		reg.BaseURL = imp.baseURL
	} else if len(doc.Servers) > 0 {
		reg.BaseURL = doc.Servers[0].URL
	}

	if doc.Paths == nil {
		return reg, nil
	}

	for path, item := range doc.Paths.Map() {
		for method, op := range item.Operations() {
			if op == nil || !imp.wantOperation(op) {
				continue
			}
			id := op.OperationID
			if id == "" {
				id = slugify(method, path)
			}
			ep := Endpoint{
				ID:          id,
				Method:      strings.ToUpper(method),
				Path:        path,
				Description: operationDescription(op),
				ParamSchema: paramSchema(op),
			}
			reg.Endpoints[id] = ep
		}
	}
	return reg, nil
}

func (i *importer) wantOperation(op *openapi3.Operation) bool {
	if len(i.tags) == 0 {
		return true
	}
	for _, want := range i.tags {
		for _, tag := range op.Tags {
			if tag == want {
				return true
			}
		}
	}
	return false
}

func operationDescription(op *openapi3.Operation) string {
	if op.Summary != "" {
		return op.Summary
	}
	return op.Description
}

// paramSchema derives a flat object schema from the operation's path and
// query parameters. Body schemas are left to the backend; the registry only
// guards what the runner itself assembles.
func paramSchema(op *openapi3.Operation) map[string]any {
	props := make(map[string]any)
	var required []string

	for _, ref := range op.Parameters {
		p := ref.Value
		if p == nil || (p.In != openapi3.ParameterInQuery && p.In != openapi3.ParameterInPath) {
			continue
		}
		typ := "string"
		if p.Schema != nil && p.Schema.Value != nil && p.Schema.Value.Type != nil {
			if types := *p.Schema.Value.Type; len(types) > 0 {
				typ = types[0]
			}
		}
		props[p.Name] = map[string]any{"type": typ}
		if p.Required {
			required = append(required, p.Name)
		}
	}

	if len(props) == 0 {
		return nil
	}
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		sort.Strings(required)
		schema["required"] = required
	}
	return schema
}

func slugify(method, path string) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(method))
	for _, r := range path {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '/', r == '{', r == '}', r == '-', r == '.':
			if last := b.String(); !strings.HasSuffix(last, "_") {
				b.WriteByte('_')
			}
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}
