package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var forceInit bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new apiflow project",
	Long: `Initialize a new apiflow project in the current directory.

This creates:
  - apiflow.yaml            - Configuration file with environments
  - registry.yaml           - Endpoint registry
  - flows/example.flow.yaml - Example flow

Examples:
  apiflow init
  apiflow init --force`,
	RunE: initCommand,
}

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite existing files")
}

func initCommand(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	configFile := filepath.Join(cwd, "apiflow.yaml")
	registryFile := filepath.Join(cwd, "registry.yaml")
	flowFile := filepath.Join(cwd, "flows", "example.flow.yaml")

	if !forceInit {
		for _, f := range []string{configFile, registryFile, flowFile} {
			if _, err := os.Stat(f); err == nil {
				return fmt.Errorf("file already exists: %s (use --force to overwrite)", f)
			}
		}
	}

	configContent := map[string]any{
		"defaultEnvironment": "dev",
		"registry":           "registry.yaml",
		"timeout":            30000,
		"followRedirects":    true,
		"validateSSL":        true,
		"headers": map[string]string{
			"User-Agent": "apiflow/1.0",
		},
		"environments": map[string]any{
			"dev": map[string]any{
				"baseUrl": "http://localhost:3000",
				"variables": map[string]any{
					"env": "dev",
				},
			},
			"staging": map[string]any{
				"baseUrl": "https://staging.api.example.com",
			},
			"prod": map[string]any{
				"baseUrl": "https://api.example.com",
			},
		},
	}

	configYAML, _ := yaml.Marshal(configContent)
	if err := os.WriteFile(configFile, configYAML, 0644); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", configFile)

	registryContent := `endpoints:
  health:
    method: GET
    path: /health
    description: Check if the API is running

  create_resource:
    method: POST
    path: /resources
    description: Create a resource
    paramSchema:
      type: object
      required: [name]
      properties:
        name:
          type: string

  get_resource:
    method: GET
    path: /resources/{id}
    description: Fetch a resource by id
`

	if err := os.WriteFile(registryFile, []byte(registryContent), 0644); err != nil {
		return fmt.Errorf("failed to create registry file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", registryFile)

	flowContent := `name: example
stopOnError: true
variables:
  resourceName: Test Resource

steps:
  - name: health check
    endpoint: health

  - name: create resource
    endpoint: create_resource
    params:
      name: "{{resourceName}}"
      createdAt: "{{now()}}"
    extract:
      - name: resourceId
        path: $.id

  - name: fetch created resource
    endpoint: get_resource
    if: resourceId exists
    params:
      id: "{{resourceId}}"
`

	if err := os.MkdirAll(filepath.Dir(flowFile), 0755); err != nil {
		return fmt.Errorf("failed to create flows directory: %w", err)
	}
	if err := os.WriteFile(flowFile, []byte(flowContent), 0644); err != nil {
		return fmt.Errorf("failed to create flow file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", flowFile)

	fmt.Fprintf(cmd.OutOrStdout(), "\napiflow project initialized!\n")
	fmt.Fprintf(cmd.OutOrStdout(), "Run 'apiflow run flows/example.flow.yaml' to execute the example flow.\n")

	return nil
}
