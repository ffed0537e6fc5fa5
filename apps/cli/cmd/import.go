package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Biji-Biji-Initiative/apiflow/packages/registry"
)

var (
	importOutputFlag  string
	importBaseURLFlag string
	importTagsFlag    string
)

var importCmd = &cobra.Command{
	Use:   "import <format> <source>",
	Short: "Import an endpoint registry from an API spec",
	Long: `Import an API specification and convert it to an apiflow endpoint
registry.

Supported formats:
  openapi - OpenAPI 3.0/3.1 (YAML or JSON)

Examples:
  apiflow import openapi spec.yaml
  apiflow import openapi spec.yaml -o registry.yaml
  apiflow import openapi spec.yaml --tags users,auth --base-url http://localhost:3000`,
}

var importOpenAPICmd = &cobra.Command{
	Use:   "openapi <spec-file>",
	Short: "Import from OpenAPI/Swagger specification",
	Long: `Import endpoints from an OpenAPI 3.0/3.1 specification file.

Each operation becomes a registry entry keyed by its operationId (or a
slug derived from the method and path), with query and path parameters
carried over as a parameter schema.

Examples:
  apiflow import openapi spec.yaml
  apiflow import openapi spec.yaml -o registry.yaml
  apiflow import openapi spec.yaml --tags users,auth`,
	Args: cobra.ExactArgs(1),
	RunE: importOpenAPICommand,
}

func init() {
	importOpenAPICmd.Flags().StringVarP(&importOutputFlag, "output", "o", "", "Output file path (default: stdout)")
	importOpenAPICmd.Flags().StringVar(&importBaseURLFlag, "base-url", "", "Override base URL from spec")
	importOpenAPICmd.Flags().StringVar(&importTagsFlag, "tags", "", "Filter operations by tags (comma-separated)")

	importCmd.AddCommand(importOpenAPICmd)
}

func importOpenAPICommand(cmd *cobra.Command, args []string) error {
	specPath := args[0]

	var opts []registry.ImportOption
	if importBaseURLFlag != "" {
		opts = append(opts, registry.WithBaseURL(importBaseURLFlag))
	}
	if importTagsFlag != "" {
		tags := strings.Split(importTagsFlag, ",")
		for i := range tags {
			tags[i] = strings.TrimSpace(tags[i])
		}
		opts = append(opts, registry.WithTagFilter(tags))
	}

	reg, err := registry.FromOpenAPIFile(specPath, opts...)
	if err != nil {
		return fmt.Errorf("failed to convert OpenAPI spec: %w", err)
	}

	content, err := reg.Marshal()
	if err != nil {
		return err
	}

	if importOutputFlag == "" {
		fmt.Fprint(cmd.OutOrStdout(), string(content))
		return nil
	}

	if dir := filepath.Dir(importOutputFlag); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(importOutputFlag, content, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d endpoints to %s\n", len(reg.IDs()), importOutputFlag)
	return nil
}
