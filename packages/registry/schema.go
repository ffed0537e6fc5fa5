package registry

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// ValidateParams checks params against the endpoint's parameter schema.
// It returns one message per violation; an endpoint without a schema
// accepts anything. Schema compilation problems surface as an error, not
// a panic.
func ValidateParams(ep Endpoint, params map[string]any) ([]string, error) {
	if len(ep.ParamSchema) == 0 {
		return nil, nil
	}
	if params == nil {
		params = map[string]any{}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(ep.ParamSchema),
		gojsonschema.NewGoLoader(params),
	)
	if err != nil {
		return nil, fmt.Errorf("endpoint %q: invalid parameter schema: %w", ep.ID, err)
	}

	if result.Valid() {
		return nil, nil
	}
	violations := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		violations = append(violations, desc.String())
	}
	return violations, nil
}
