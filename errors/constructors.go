package errors

import (
	"fmt"
	"time"
)

// ConfigNotFound creates a configuration not found error
func ConfigNotFound(path string) *WatchError {
	return New(ErrCodeConfigNotFound, fmt.Sprintf("configuration file not found: %s", path)).
		WithDetail("path", path)
}

// ConfigInvalid creates an invalid configuration error
func ConfigInvalid(reason string) *WatchError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", reason))
}

// FeedFetchFailed creates a transient feed fetch error
func FeedFetchFailed(url string, err error) *WatchError {
	return Wrap(err, ErrCodeFeedFetchFailed, "failed to fetch inventory snapshot").
		WithDetail("url", url)
}

// PayloadInvalid creates a malformed payload error
func PayloadInvalid(err error) *WatchError {
	return Wrap(err, ErrCodePayloadInvalid, "unparseable snapshot payload")
}

// ReconnectExhausted creates an exhausted-reconnect error
func ReconnectExhausted(attempts int) *WatchError {
	return New(ErrCodeReconnectExhausted,
		fmt.Sprintf("gave up reconnecting after %d attempts", attempts)).
		WithDetail("attempts", attempts)
}

// DispatchExhausted creates an error for recipients that failed both waves
func DispatchExhausted(failed int) *WatchError {
	return New(ErrCodeDispatchExhausted,
		fmt.Sprintf("%d recipients unreachable after retry", failed)).
		WithDetail("failed", failed)
}

// DaemonRunning creates an error for a daemon that is already running
func DaemonRunning(pid int) *WatchError {
	return New(ErrCodeDaemonRunning, fmt.Sprintf("daemon already running with PID %d", pid)).
		WithDetail("pid", pid)
}

// DeliveryFailed creates a transient delivery error for a single recipient
func DeliveryFailed(recipient string, elapsed time.Duration, err error) *WatchError {
	return Wrap(err, ErrCodeDeliveryFailed, fmt.Sprintf("delivery to '%s' failed", recipient)).
		WithDetail("recipient", recipient).
		WithDetail("elapsedMs", elapsed.Milliseconds())
}
