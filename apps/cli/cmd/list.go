package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Biji-Biji-Initiative/apiflow/packages/flow"
)

var listCmd = &cobra.Command{
	Use:   "list [flow-file|directory...]",
	Short: "List registry endpoints or flow steps",
	Long: `List the steps of flow files, or with no arguments the endpoints
of the registry.

Examples:
  apiflow list
  apiflow list login.flow.yaml
  apiflow list ./flows/`,
	RunE: listCommand,
}

func init() {
	listCmd.Flags().StringVar(&registryFlag, "registry", "", "Path to endpoint registry")
	listCmd.Flags().StringVar(&configFlag, "config", "", "Path to config file")
}

func listCommand(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return listEndpoints(cmd)
	}

	files, err := collectFlowFiles(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no .flow.yaml files found")
	}

	for _, file := range files {
		fl, err := flow.ParseFile(file)
		if err != nil {
			fmt.Fprintf(cmd.OutOrStderr(), "Error parsing %s: %v\n", file, err)
			continue
		}

		fmt.Fprintf(cmd.OutOrStdout(), "\n%s:\n", file)
		for i := range fl.Steps {
			step := &fl.Steps[i]
			fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", step.Label(i))
			if step.If != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "    if: %s\n", step.If)
			}
			for _, rule := range step.Extract {
				fmt.Fprintf(cmd.OutOrStdout(), "    extracts: %s from %s\n", rule.Name, rule.Path)
			}
		}
	}

	return nil
}

func listEndpoints(cmd *cobra.Command) error {
	fileConfig, err := loadProjectConfig()
	if err != nil {
		return err
	}
	reg, err := loadRegistry(fileConfig)
	if err != nil {
		return err
	}

	if reg.BaseURL != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Base URL: %s\n\n", reg.BaseURL)
	}
	for _, id := range reg.IDs() {
		ep, _ := reg.Get(id)
		fmt.Fprintf(cmd.OutOrStdout(), "  %-24s %-7s %s\n", id, ep.Method, ep.Path)
		if ep.Description != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "  %-24s %s\n", "", ep.Description)
		}
	}

	return nil
}
