package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Biji-Biji-Initiative/apiflow/packages/flow"
)

var validateCmd = &cobra.Command{
	Use:   "validate <flow-file|directory>",
	Short: "Validate flow files without executing them",
	Long: `Validate flow files for structural errors without executing them.
When a registry is available, step endpoint references are checked too.

Examples:
  apiflow validate login.flow.yaml
  apiflow validate ./flows/
  apiflow validate ./flows/ --registry registry.yaml`,
	Args: cobra.MinimumNArgs(1),
	RunE: validateCommand,
}

func init() {
	validateCmd.Flags().StringVar(&registryFlag, "registry", "", "Path to endpoint registry for reference checks")
	validateCmd.Flags().StringVar(&configFlag, "config", "", "Path to config file")
}

func validateCommand(cmd *cobra.Command, args []string) error {
	files, err := collectFlowFiles(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no .flow.yaml files found")
	}

	fileConfig, err := loadProjectConfig()
	if err != nil {
		return err
	}

	// Endpoint reference checks are best effort: without a registry the
	// structural checks still run.
	reg, regErr := loadRegistry(fileConfig)
	if regErr != nil {
		fmt.Fprintf(cmd.OutOrStderr(), "Skipping endpoint checks: %v\n", regErr)
	}

	hasErrors := false
	for _, file := range files {
		fl, err := flow.ParseFile(file)
		if err != nil {
			fmt.Fprintf(cmd.OutOrStderr(), "Error in %s: %v\n", file, err)
			hasErrors = true
			continue
		}
		if err := fl.Validate(); err != nil {
			fmt.Fprintf(cmd.OutOrStderr(), "Error in %s: %v\n", file, err)
			hasErrors = true
			continue
		}

		if reg != nil {
			missing := false
			for i := range fl.Steps {
				if _, ok := reg.Get(fl.Steps[i].Endpoint); !ok {
					fmt.Fprintf(cmd.OutOrStderr(), "Error in %s: %s references unknown endpoint %q\n",
						file, fl.Steps[i].Label(i), fl.Steps[i].Endpoint)
					missing = true
				}
			}
			if missing {
				hasErrors = true
				continue
			}
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Valid: %s\n", file)
	}

	if hasErrors {
		return fmt.Errorf("validation failed")
	}

	return nil
}
