package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/Biji-Biji-Initiative/apiflow/packages/vars"
)

var varsCmd = &cobra.Command{
	Use:   "vars",
	Short: "Manage persisted variables",
	Long: `Manage the SQLite-backed variable file used to seed flow runs.

Examples:
  apiflow vars list
  apiflow vars set token abc123
  apiflow vars get token
  apiflow vars delete token
  apiflow vars clear`,
}

var varsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all persisted variables",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openVarsFile()
		if err != nil {
			return err
		}
		defer store.Close()

		values, err := store.Load()
		if err != nil {
			return err
		}

		names := make([]string, 0, len(values))
		for name := range values {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", name, vars.FormatValue(values[name]))
		}
		return nil
	},
}

var varsGetCmd = &cobra.Command{
	Use:   "get <name>",
	Short: "Print one persisted variable",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openVarsFile()
		if err != nil {
			return err
		}
		defer store.Close()

		values, err := store.Load()
		if err != nil {
			return err
		}
		value, ok := values[args[0]]
		if !ok {
			return fmt.Errorf("variable %q not found", args[0])
		}
		fmt.Fprintln(cmd.OutOrStdout(), vars.FormatValue(value))
		return nil
	},
}

var varsSetCmd = &cobra.Command{
	Use:   "set <name> <value>",
	Short: "Set a persisted variable",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openVarsFile()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Save(args[0], parseScalar(args[1])); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Set: %s\n", args[0])
		return nil
	},
}

var varsDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a persisted variable",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openVarsFile()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Delete(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted: %s\n", args[0])
		return nil
	},
}

var varsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all persisted variables",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openVarsFile()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Clear(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Cleared all variables")
		return nil
	},
}

func init() {
	varsCmd.PersistentFlags().StringVar(&varsFileFlag, "vars-file", getEnvString("APIFLOW_VARS_FILE", ""), "SQLite file with persisted variables (env: APIFLOW_VARS_FILE)")
	varsCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Path to config file")

	varsCmd.AddCommand(varsListCmd)
	varsCmd.AddCommand(varsGetCmd)
	varsCmd.AddCommand(varsSetCmd)
	varsCmd.AddCommand(varsDeleteCmd)
	varsCmd.AddCommand(varsClearCmd)
}

// openVarsFile resolves the vars file from the flag, then the config, then
// the default filename.
func openVarsFile() (*vars.FileStore, error) {
	path := varsFileFlag
	if path == "" {
		fileConfig, err := loadProjectConfig()
		if err != nil {
			return nil, err
		}
		path = fileConfig.VarsFile
	}
	if path == "" {
		path = ".apiflow.db"
	}
	return vars.OpenFileStore(path)
}
