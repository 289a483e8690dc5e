package errors

import (
	"fmt"
	"testing"
)

func TestWatchError(t *testing.T) {
	// Test basic error creation
	err := New(ErrCodePayloadInvalid, "bad payload")
	if err.Code != ErrCodePayloadInvalid {
		t.Errorf("expected code %s, got %s", ErrCodePayloadInvalid, err.Code)
	}

	// Test error wrapping
	cause := fmt.Errorf("underlying error")
	wrapped := Wrap(cause, ErrCodeFeedFetchFailed, "fetch failed")

	if wrapped.Unwrap() != cause {
		t.Error("Unwrap should return the cause")
	}

	// Test Is function
	if !Is(wrapped, ErrCodeFeedFetchFailed) {
		t.Error("Is should return true for matching code")
	}

	if Is(wrapped, ErrCodePayloadInvalid) {
		t.Error("Is should return false for non-matching code")
	}

	// Test WithDetail
	detailed := err.WithDetail("category", "seed").WithDetail("attempt", 3)
	if detailed.Details["category"] != "seed" {
		t.Error("WithDetail should add details")
	}
}

func TestErrorConstructors(t *testing.T) {
	// Test FeedFetchFailed
	err := FeedFetchFailed("https://feed.example/stock", fmt.Errorf("connection refused"))
	if err.Code != ErrCodeFeedFetchFailed {
		t.Errorf("expected code %s, got %s", ErrCodeFeedFetchFailed, err.Code)
	}
	if err.Details["url"] != "https://feed.example/stock" {
		t.Error("FeedFetchFailed should include url detail")
	}

	// Test ReconnectExhausted
	err = ReconnectExhausted(5)
	if err.Code != ErrCodeReconnectExhausted {
		t.Errorf("expected code %s, got %s", ErrCodeReconnectExhausted, err.Code)
	}
	if err.Details["attempts"] != 5 {
		t.Error("ReconnectExhausted should include attempts detail")
	}
}

func TestIsTransient(t *testing.T) {
	if !IsTransient(FeedFetchFailed("u", fmt.Errorf("x"))) {
		t.Error("feed fetch failures are transient")
	}
	if IsTransient(ConfigInvalid("missing feed url")) {
		t.Error("configuration errors are not transient")
	}
	if IsTransient(nil) {
		t.Error("nil is not transient")
	}
}
