package pipeline

import (
	"errors"

	"github.com/steve-cardenas/snagent/internal/assets"
)

// Failure kinds. Returned errors wrap one of these and the root cause, so
// callers can errors.Is either.
var (
	// ErrSourceUnavailable aborts the extraction pass: the profile could not be read.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrSubsectionUnavailable marks a posts, comments or stories listing that
	// failed and was treated as empty.
	ErrSubsectionUnavailable = errors.New("subsection unavailable")

	// ErrAssetFetchFailed marks an image left out of a prompt.
	ErrAssetFetchFailed = assets.ErrFetchFailed

	// ErrCompletionFailed marks a tier whose result is an error marker.
	ErrCompletionFailed = errors.New("completion failed")

	// ErrPersistenceFailed is always propagated to the caller.
	ErrPersistenceFailed = errors.New("persistence failed")

	// ErrNoData aborts the analysis pass: there is no stored account.
	ErrNoData = errors.New("no data")
)

// errorMarkerPrefix starts every tier result that records a failure.
const errorMarkerPrefix = "Error: "

// ErrorMarker renders err as the in-band text stored in place of a suggestion.
func ErrorMarker(err error) string {
	return errorMarkerPrefix + err.Error()
}
