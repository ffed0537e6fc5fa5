package cmd

// Exit codes for the apiflow CLI
const (
	// ExitSuccess indicates all flows passed
	ExitSuccess = 0

	// ExitFlowFailure indicates one or more flows failed
	ExitFlowFailure = 1

	// ExitParseError indicates a flow or registry parsing error
	ExitParseError = 2

	// ExitConfigError indicates a configuration error
	ExitConfigError = 3

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64
)
