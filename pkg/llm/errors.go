package llm

import "errors"

// Sentinel errors shared by all providers so callers can classify failures
// with errors.Is without depending on a provider's wire format.
var (
	// ErrMissingCredential means the provider was constructed without an API
	// key. A send attempt with no key is a configuration fault, not retryable.
	ErrMissingCredential = errors.New("llm: provider credential is not configured")

	// ErrInvalidCredential means the provider rejected the configured key.
	ErrInvalidCredential = errors.New("llm: provider rejected the credential")
)
