package main

// Exit codes.
const (
	ExitSuccess     = 0 // Success
	ExitError       = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError = 2 // Configuration error (missing corpus, invalid paths)
	ExitDataError   = 3 // Data error (malformed input, validation failure)
	ExitStorageBusy = 4 // Edge store locked by another writer
)
