package llm

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Rrens/social-content-generator/internal/retry"
)

var (
	ErrNotConfigured     = errors.New("provider is not configured")
	ErrRateLimited       = errors.New("local rate limit reached")
	ErrMalformedResponse = errors.New("malformed response")
)

// Class is the retry classification of a failed remote call
type Class int

const (
	ClassTransient Class = iota
	ClassTerminal
)

func (c Class) String() string {
	if c == ClassTerminal {
		return "terminal"
	}
	return "transient"
}

// RemoteError normalizes provider failures
type RemoteError struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *RemoteError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s returned status %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

var quotaMarkers = []string{"quota", "resource_exhausted", "rate limit", "rate_limit"}

// Classify decides whether retrying err could succeed within the current request
func Classify(err error) Class {
	if err == nil {
		return ClassTransient
	}
	if retry.IsTerminal(err) || errors.Is(err, ErrNotConfigured) || errors.Is(err, ErrRateLimited) {
		return ClassTerminal
	}

	var remote *RemoteError
	if errors.As(err, &remote) {
		switch remote.StatusCode {
		case http.StatusTooManyRequests, http.StatusUnauthorized, http.StatusForbidden:
			return ClassTerminal
		}
		if mentionsQuota(remote.Message) {
			return ClassTerminal
		}
		return ClassTransient
	}

	if mentionsQuota(err.Error()) {
		return ClassTerminal
	}
	return ClassTransient
}

func mentionsQuota(s string) bool {
	s = strings.ToLower(s)
	for _, marker := range quotaMarkers {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}
