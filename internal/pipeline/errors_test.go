package pipeline

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/steve-cardenas/snagent/internal/assets"
	"github.com/steve-cardenas/snagent/internal/source"
)

func TestErrorMarker(t *testing.T) {
	assert.Equal(t, "Error: rate limited", ErrorMarker(errors.New("rate limited")))
}

func TestErrorKinds_WrapRootCause(t *testing.T) {
	err := fmt.Errorf("%w: %w", ErrSourceUnavailable, source.ErrRateLimited)

	assert.ErrorIs(t, err, ErrSourceUnavailable)
	assert.ErrorIs(t, err, source.ErrRateLimited)
	assert.NotErrorIs(t, err, ErrPersistenceFailed)
}

func TestErrAssetFetchFailed_IsAssetsSentinel(t *testing.T) {
	err := fmt.Errorf("%w: http://x/a.jpg: HTTP 404", assets.ErrFetchFailed)
	assert.ErrorIs(t, err, ErrAssetFetchFailed)
}
