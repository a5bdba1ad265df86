package entities

import "errors"

// Error kinds used across the harvester. Callers wrap these with
// fmt.Errorf("...: %w", ...) and classify with errors.Is.
var (
	// ErrNetwork covers transport failures and unexpected HTTP statuses.
	ErrNetwork = errors.New("network failure")

	// ErrAuthRejected is returned when the personal-data form is rejected
	// or the server answers with its "Accès non autorisé" page.
	ErrAuthRejected = errors.New("access not authorized")

	// ErrParse is returned when a page or export lacks the expected structure.
	ErrParse = errors.New("unexpected page structure")

	// ErrRateLimited is returned when the server reports a request quota hit.
	ErrRateLimited = errors.New("rate limited by server")

	// ErrStorage wraps database failures. Fatal to the run, but safe to
	// resume since all writes are idempotent upserts.
	ErrStorage = errors.New("storage failure")
)
