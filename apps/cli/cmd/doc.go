// Package cmd implements the apiflow CLI commands using Cobra.
//
// Available commands:
//   - run: Execute flows against a configured endpoint registry
//   - validate: Check flow and registry files without executing
//   - list: Display registry endpoints or flow steps
//   - vars: Manage persisted variables
//   - import: Generate a registry from an OpenAPI specification
//   - init: Create a new apiflow project with example files
//   - version: Show apiflow version information
//
// The CLI supports flags for environments, output formatting, parameter
// validation, benchmark repetition, and watch mode for development
// workflows.
package cmd
