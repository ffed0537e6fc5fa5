// Package registry holds the endpoint registry: the read-only catalog of
// callable endpoints (method, path template, optional parameter schema)
// that flow steps reference by id. Registries are authored as YAML or
// imported from an OpenAPI 3 document.
package registry
