package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/Biji-Biji-Initiative/apiflow/packages/bench"
	"github.com/Biji-Biji-Initiative/apiflow/packages/core/config"
	"github.com/Biji-Biji-Initiative/apiflow/packages/flow"
	"github.com/Biji-Biji-Initiative/apiflow/packages/output"
	"github.com/Biji-Biji-Initiative/apiflow/packages/registry"
	"github.com/Biji-Biji-Initiative/apiflow/packages/runner"
	"github.com/Biji-Biji-Initiative/apiflow/packages/transport"
	"github.com/Biji-Biji-Initiative/apiflow/packages/vars"
)

var runCmd = &cobra.Command{
	Use:   "run <flow-file|directory>",
	Short: "Run API flows",
	Long: `Run API flows defined in .flow.yaml files against the endpoint
registry.

Examples:
  apiflow run login.flow.yaml
  apiflow run login.flow.yaml --env staging
  apiflow run ./flows/ --bail
  apiflow run login.flow.yaml --set token=abc123 --output json

Benchmark Mode:
  apiflow run login.flow.yaml --repeat 100
  apiflow run login.flow.yaml --repeat 1000 --rate 50 --concurrency 10`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCommand,
}

const (
	// WatchDebounceDelay is the debounce delay for file watch events
	WatchDebounceDelay = 300 * time.Millisecond
)

var (
	envFlag            string
	configFlag         string
	registryFlag       string
	baseURLFlag        string
	verboseFlag        int // 0=off, 1=-v, 2=-vv
	noColorFlag        bool
	bailFlag           bool
	timeoutFlag        string
	outputFlag         string
	outputFileFlag     string
	watchFlag          bool
	proxyFlag          string
	insecureFlag       bool
	setFlag            []string
	varsFileFlag       string
	saveVarsFlag       bool
	validateParamsFlag bool

	// Benchmark flags
	repeatFlag      int
	rateFlag        float64
	concurrencyFlag int
)

func init() {
	// Core flags
	runCmd.Flags().StringVarP(&envFlag, "env", "e", getEnvString("APIFLOW_ENV", ""), "Environment to use (env: APIFLOW_ENV)")
	runCmd.Flags().StringVar(&configFlag, "config", getEnvString("APIFLOW_CONFIG", ""), "Path to config file (env: APIFLOW_CONFIG)")
	runCmd.Flags().StringVar(&registryFlag, "registry", getEnvString("APIFLOW_REGISTRY", ""), "Path to endpoint registry (env: APIFLOW_REGISTRY)")
	runCmd.Flags().StringVar(&baseURLFlag, "base-url", getEnvString("APIFLOW_BASE_URL", ""), "Override base URL (env: APIFLOW_BASE_URL)")

	// Output flags
	runCmd.Flags().CountVarP(&verboseFlag, "verbose", "v", "Verbose output (-v, -vv for more detail)")
	runCmd.Flags().BoolVar(&noColorFlag, "no-color", getEnvBool("APIFLOW_NO_COLOR", false), "Disable colored output (env: APIFLOW_NO_COLOR)")
	runCmd.Flags().StringVarP(&outputFlag, "output", "o", getEnvString("APIFLOW_OUTPUT", "console"), "Output format: console, json (env: APIFLOW_OUTPUT)")
	runCmd.Flags().StringVar(&outputFileFlag, "output-file", getEnvString("APIFLOW_OUTPUT_FILE", ""), "Write output to file (default: stdout) (env: APIFLOW_OUTPUT_FILE)")

	// Execution flags
	runCmd.Flags().BoolVar(&bailFlag, "bail", getEnvBool("APIFLOW_BAIL", false), "Stop each flow at its first failing step (env: APIFLOW_BAIL)")
	runCmd.Flags().StringVar(&timeoutFlag, "timeout", getEnvString("APIFLOW_TIMEOUT", "30s"), "Request timeout (e.g., 30s, 1m) (env: APIFLOW_TIMEOUT)")
	runCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Watch flow files for changes and re-run")
	runCmd.Flags().BoolVar(&validateParamsFlag, "validate-params", getEnvBool("APIFLOW_VALIDATE_PARAMS", false), "Validate step params against endpoint schemas (env: APIFLOW_VALIDATE_PARAMS)")

	// Variable flags
	runCmd.Flags().StringArrayVar(&setFlag, "set", nil, "Seed a variable as name=value (repeatable)")
	runCmd.Flags().StringVar(&varsFileFlag, "vars-file", getEnvString("APIFLOW_VARS_FILE", ""), "SQLite file with persisted variables (env: APIFLOW_VARS_FILE)")
	runCmd.Flags().BoolVar(&saveVarsFlag, "save-vars", false, "Persist the final variable set back to the vars file")

	// Network flags
	runCmd.Flags().StringVar(&proxyFlag, "proxy", getEnvString("APIFLOW_PROXY", ""), "Proxy URL for HTTP requests (env: APIFLOW_PROXY)")
	runCmd.Flags().BoolVarP(&insecureFlag, "insecure", "k", getEnvBool("APIFLOW_INSECURE", false), "Disable SSL certificate validation (env: APIFLOW_INSECURE)")

	// Benchmark flags
	runCmd.Flags().IntVar(&repeatFlag, "repeat", 1, "Run each flow N times and report latency percentiles")
	runCmd.Flags().Float64VarP(&rateFlag, "rate", "r", 0, "Target flow iterations per second in benchmark mode (0 = unlimited)")
	runCmd.Flags().IntVar(&concurrencyFlag, "concurrency", 1, "Concurrent iterations in benchmark mode")
}

// Environment variable helpers
func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}

func runCommand(cmd *cobra.Command, args []string) error {
	// Setup output writer
	var outWriter *os.File
	var err error
	if outputFileFlag != "" {
		outWriter, err = os.Create(outputFileFlag)
		if err != nil {
			return fmt.Errorf("cannot create output file: %w", err)
		}
		defer outWriter.Close()
	}

	newFormatter := func() output.Formatter {
		switch strings.ToLower(outputFlag) {
		case "json":
			opts := []output.JSONOption{}
			if outWriter != nil {
				opts = append(opts, output.WithJSONWriter(outWriter))
			}
			return output.NewJSONFormatter(opts...)
		default: // "console"
			consoleOpts := []output.ConsoleOption{
				output.WithVerbose(verboseFlag > 0),
				output.WithNoColor(noColorFlag),
			}
			if outWriter != nil {
				consoleOpts = append(consoleOpts, output.WithWriter(outWriter))
			}
			return output.NewConsoleFormatter(consoleOpts...)
		}
	}
	formatter := newFormatter()

	files, err := collectFlowFiles(args)
	if err != nil {
		formatter.FormatError(err)
		return err
	}
	if len(files) == 0 {
		err := fmt.Errorf("no .flow.yaml files found")
		formatter.FormatError(err)
		return err
	}

	fileConfig, err := loadProjectConfig()
	if err != nil {
		return err
	}

	if fileConfig.GetNoColor() {
		noColorFlag = true
		formatter = newFormatter()
	}

	envName := envFlag
	if envName == "" {
		envName = fileConfig.DefaultEnvironment
	}
	environment, envFound := fileConfig.Env(envName)
	if envFlag != "" && !envFound {
		return fmt.Errorf("environment %q not found in config", envFlag)
	}

	reg, err := loadRegistry(fileConfig)
	if err != nil {
		return err
	}

	baseURL := baseURLFlag
	if baseURL == "" {
		baseURL = environment.BaseURL
	}
	if baseURL == "" {
		baseURL = reg.BaseURL
	}

	client, err := buildClient(fileConfig)
	if err != nil {
		return err
	}

	seed := vars.NewStore()
	for name, value := range environment.Variables {
		seed.Set(name, value)
	}

	varsFile := varsFileFlag
	if varsFile == "" {
		varsFile = fileConfig.VarsFile
	}
	var fileStore *vars.FileStore
	if varsFile != "" {
		fileStore, err = vars.OpenFileStore(varsFile)
		if err != nil {
			return fmt.Errorf("opening vars file: %w", err)
		}
		defer fileStore.Close()

		persisted, err := fileStore.Load()
		if err != nil {
			return fmt.Errorf("loading vars file: %w", err)
		}
		seed.SetAll(persisted)
	}

	for _, pair := range setFlag {
		name, value, found := strings.Cut(pair, "=")
		if !found || name == "" {
			return fmt.Errorf("invalid --set value %q, expected name=value", pair)
		}
		seed.Set(name, parseScalar(value))
	}

	validateParams := validateParamsFlag || fileConfig.GetValidateParams()

	// Set up signal handling for graceful cancellation at step boundaries
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nReceived interrupt, stopping after the current step...")
		cancel()
	}()

	if repeatFlag > 1 {
		return runBenchMode(ctx, cmd, files, reg, client, seed, baseURL, validateParams)
	}

	runFlows := func(ctx context.Context) (failed int) {
		for _, file := range files {
			fl, err := flow.ParseFile(file)
			if err != nil {
				formatter.FormatError(fmt.Errorf("parsing %s: %w", file, err))
				failed++
				if bailFlag {
					return failed
				}
				continue
			}
			if bailFlag {
				fl.StopOnError = true
			}

			store := seed.Clone()
			interp := vars.NewInterpolator(store, vars.WithWarnFunc(func(format string, args ...any) {
				fmt.Fprintf(os.Stderr, "warning: "+format+"\n", args...)
			}))
			r := runner.New(reg, client, store,
				runner.WithBaseURL(baseURL),
				runner.WithInterpolator(interp),
				runner.WithParamValidation(validateParams),
			)

			result := r.RunFlow(ctx, fl)
			if err := formatter.FormatFlowResult(result); err != nil {
				fmt.Fprintf(os.Stderr, "warning: writing output: %v\n", err)
			}
			if !result.Ok() {
				failed++
				if bailFlag {
					return failed
				}
			}

			if fileStore != nil && saveVarsFlag {
				for name, value := range store.Snapshot() {
					if err := fileStore.Save(name, value); err != nil {
						fmt.Fprintf(os.Stderr, "warning: persisting %s: %v\n", name, err)
						break
					}
				}
			}
		}
		return failed
	}

	failed := runFlows(ctx)

	if !watchFlag {
		if failed > 0 {
			os.Exit(ExitFlowFailure)
		}
		return nil
	}

	return watchAndRerun(ctx, cmd, args, files, func() {
		formatter = newFormatter()
		runFlows(ctx)
	})
}

// watchAndRerun blocks watching the flow files' directories, invoking rerun
// after each debounced change, until ctx is cancelled.
func watchAndRerun(ctx context.Context, cmd *cobra.Command, args, files []string, rerun func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	watchedDirs := make(map[string]bool)
	for _, file := range files {
		dir := filepath.Dir(file)
		if !watchedDirs[dir] {
			if err := watcher.Add(dir); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to watch %s: %v\n", dir, err)
			}
			watchedDirs[dir] = true
		}
	}

	// Also watch the original args if they're directories
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err == nil && info.IsDir() {
			_ = filepath.Walk(arg, func(path string, info os.FileInfo, err error) error {
				if err != nil {
					return err
				}
				if info.IsDir() && !watchedDirs[path] {
					_ = watcher.Add(path)
					watchedDirs[path] = true
				}
				return nil
			})
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\nWatching for changes... (press Ctrl+C to stop)\n\n")

	var debounceTimer *time.Timer

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if event.Has(fsnotify.Write) && isFlowFile(event.Name) {
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(WatchDebounceDelay, func() {
					fmt.Fprintf(cmd.OutOrStdout(), "\n\nFile changed: %s\nRe-running flows...\n\n", event.Name)
					rerun()
					fmt.Fprintf(cmd.OutOrStdout(), "\nWatching for changes... (press Ctrl+C to stop)\n")
				})
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "warning: watcher error: %v\n", err)
		}
	}
}

// runBenchMode runs the flows repeatedly and prints latency percentiles.
func runBenchMode(ctx context.Context, cmd *cobra.Command, files []string, reg *registry.Registry, client *transport.Client, seed *vars.Store, baseURL string, validateParams bool) error {
	cfg := bench.Config{
		Iterations:  repeatFlag,
		Concurrency: concurrencyFlag,
		Rate:        rateFlag,
	}

	for _, file := range files {
		fl, err := flow.ParseFile(file)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", file, err)
		}

		b := bench.New(cfg, reg, client, seed,
			runner.WithBaseURL(baseURL),
			runner.WithParamValidation(validateParams),
		)
		report, err := b.Run(ctx, fl)
		if err != nil && ctx.Err() == nil {
			return err
		}
		printBenchReport(cmd, fl, report)
		if ctx.Err() != nil {
			return nil
		}
	}
	return nil
}

func printBenchReport(cmd *cobra.Command, fl *flow.Flow, report *bench.Report) {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "\n%s: %d iterations in %s (%.1f/s)\n",
		fl.Name, report.Iterations, report.Duration.Round(time.Millisecond), report.PerSecond)
	fmt.Fprintf(out, "  succeeded: %d  failed: %d\n", report.Succeeded, report.Failed)
	fmt.Fprintf(out, "  latency: p50=%s p95=%s p99=%s min=%s max=%s mean=%s\n",
		report.P50, report.P95, report.P99, report.Min, report.Max, report.Mean)

	for _, step := range report.Steps {
		fmt.Fprintf(out, "    %s: %d/%d ok, p50=%s p95=%s p99=%s\n",
			step.Name, step.Succeeded, step.Total, step.P50, step.P95, step.P99)
	}
}

// buildClient assembles the HTTP client from config and flag overrides.
func buildClient(fileConfig *config.Config) (*transport.Client, error) {
	timeout, err := time.ParseDuration(timeoutFlag)
	if err != nil {
		return nil, fmt.Errorf("invalid timeout value %q: %w (use format like 30s, 1m, 500ms)", timeoutFlag, err)
	}
	if timeoutFlag == "30s" && fileConfig.Timeout > 0 {
		timeout = time.Duration(fileConfig.Timeout) * time.Millisecond
	}

	proxy := fileConfig.Proxy
	if proxyFlag != "" {
		proxy = proxyFlag
	}

	validateSSL := fileConfig.GetValidateSSL()
	if insecureFlag {
		validateSSL = false
	}

	clientOpts := []transport.ClientOption{
		transport.WithTimeout(timeout),
		transport.WithFollowRedirects(fileConfig.GetFollowRedirects()),
		transport.WithValidateSSL(validateSSL),
	}
	if proxy != "" {
		clientOpts = append(clientOpts, transport.WithProxy(proxy))
	}
	if len(fileConfig.Headers) > 0 {
		clientOpts = append(clientOpts, transport.WithDefaultHeaders(fileConfig.Headers))
	}
	return transport.NewClient(clientOpts...), nil
}

// loadProjectConfig loads the --config file, or discovers one upward from
// the working directory.
func loadProjectConfig() (*config.Config, error) {
	if configFlag != "" {
		cfg, err := config.Load(configFlag)
		if err != nil {
			return nil, err
		}
		return cfg, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return config.LoadOrDefault(cwd)
}

// loadRegistry resolves the registry path from flag, config, then the
// default filename.
func loadRegistry(fileConfig *config.Config) (*registry.Registry, error) {
	path := registryFlag
	if path == "" {
		path = fileConfig.Registry
	}
	if path == "" {
		path = "registry.yaml"
	}
	reg, err := registry.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading registry: %w", err)
	}
	return reg, nil
}

func collectFlowFiles(args []string) ([]string, error) {
	var files []string

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", arg, err)
		}

		if info.IsDir() {
			err := filepath.Walk(arg, func(path string, info os.FileInfo, err error) error {
				if err != nil {
					return err
				}
				if !info.IsDir() && isFlowFile(path) {
					files = append(files, path)
				}
				return nil
			})
			if err != nil {
				return nil, err
			}
		} else {
			// Explicit files are taken as flows whatever the suffix.
			files = append(files, arg)
		}
	}

	return files, nil
}

func isFlowFile(path string) bool {
	return strings.HasSuffix(path, ".flow.yaml") || strings.HasSuffix(path, ".flow.yml")
}

func parseScalar(raw string) any {
	if raw == "true" {
		return true
	}
	if raw == "false" {
		return false
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}
