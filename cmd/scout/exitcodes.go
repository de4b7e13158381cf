package main

// Exit codes.
const (
	ExitSuccess     = 0 // Success
	ExitError       = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError = 2 // Configuration error (bad config file, missing MCP config)
	ExitDataError   = 3 // Data error (no index, unknown paper, malformed input)
	ExitProvider    = 4 // Model or embedding provider failure
	ExitNetwork     = 5 // arXiv or remote tool server unreachable
)
