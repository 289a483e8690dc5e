package cli

import (
	"fmt"
	"os"

	"github.com/mossline/stockwatch/errors"
)

// ErrorHandler provides user-friendly error messages
type ErrorHandler struct {
	Verbose bool
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(verbose bool) *ErrorHandler {
	return &ErrorHandler{
		Verbose: verbose,
	}
}

// Handle provides user-friendly error messages based on error type
func (h *ErrorHandler) Handle(err error) error {
	switch errors.GetCode(err) {
	case errors.ErrCodeConfigNotFound:
		fmt.Fprintf(os.Stderr, "❌ Configuration not found. Create a stockwatch.yml in your project directory.\n")
		return err

	case errors.ErrCodeConfigValidation, errors.ErrCodeConfigInvalid:
		fmt.Fprintf(os.Stderr, "❌ Invalid configuration: %v\n", err)
		fmt.Fprintf(os.Stderr, "Run 'stockwatch config validate' for details.\n")
		return err

	case errors.ErrCodeDaemonRunning:
		if watchErr, ok := err.(*errors.WatchError); ok {
			fmt.Fprintf(os.Stderr, "❌ Daemon already running with PID %v\n", watchErr.Details["pid"])
			fmt.Fprintf(os.Stderr, "Stop it first, or check 'stockwatch status'.\n")
		}
		return err

	case errors.ErrCodeDaemonNotRunning:
		fmt.Fprintf(os.Stderr, "❌ Daemon is not running. Start it with 'stockwatch watch'.\n")
		return err

	case errors.ErrCodeFeedFetchFailed:
		if watchErr, ok := err.(*errors.WatchError); ok {
			fmt.Fprintf(os.Stderr, "❌ Could not reach the inventory feed at %v\n", watchErr.Details["url"])
			fmt.Fprintf(os.Stderr, "Check feed.poll_url in stockwatch.yml and your network connection.\n")
		}
		return err

	default:
		// Generic error handling
		fmt.Fprintf(os.Stderr, "❌ Error: %v\n", err)

		// If verbose mode, show full error details
		if h.Verbose {
			if watchErr, ok := err.(*errors.WatchError); ok {
				fmt.Fprintf(os.Stderr, "\nError details:\n%s\n", watchErr.ToJSON())
			}
		}
		return err
	}
}
