package api

import "errors"

// Error kinds the rest of the CLI dispatches on. The client boundary
// translates transport and HTTP failures into these; command code never
// sees a raw *url.Error or status code.
var (
	// ErrMissingCredentials means no API key is configured locally. No
	// network call was attempted.
	ErrMissingCredentials = errors.New("no API key configured")

	// ErrAuthInvalid means the backend rejected the stored key (revoked or
	// expired). The user needs to reconnect.
	ErrAuthInvalid = errors.New("API key invalid or revoked")

	// ErrNetwork covers timeouts, DNS failures, and refused connections.
	// Callers may serve cached data instead of propagating it.
	ErrNetwork = errors.New("network error")

	// ErrNotFound means the referenced task does not exist.
	ErrNotFound = errors.New("task not found")

	// ErrConflict means another machine holds the claim on the task.
	ErrConflict = errors.New("task claimed by another machine")

	// ErrValidation marks bad input rejected before any network call.
	ErrValidation = errors.New("validation error")
)

// ExitCode maps an error to the CLI exit code contract:
// 0 success, 1 not-found/no-tasks, 2 network/auth error.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrNotFound):
		return 1
	case errors.Is(err, ErrMissingCredentials),
		errors.Is(err, ErrAuthInvalid),
		errors.Is(err, ErrNetwork):
		return 2
	default:
		return 1
	}
}
