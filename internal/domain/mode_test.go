package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/Rrens/social-content-generator/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	m, err := domain.ParseMode(" Social ")
	require.NoError(t, err)
	assert.Equal(t, domain.ModeSocial, m)

	_, err = domain.ParseMode("video")
	assert.ErrorIs(t, err, domain.ErrUnsupportedMode)
}

func TestParseInputKind(t *testing.T) {
	k, err := domain.ParseInputKind("instructions")
	require.NoError(t, err)
	assert.Equal(t, domain.InputInstructions, k)

	_, err = domain.ParseInputKind("essay")
	assert.ErrorIs(t, err, domain.ErrUnsupportedInputKind)
}

func TestParsePlatform(t *testing.T) {
	for _, p := range domain.AllPlatforms {
		parsed, err := domain.ParsePlatform(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, parsed)
		assert.NotEmpty(t, p.DisplayName())
	}

	p, err := domain.ParsePlatform("X")
	require.NoError(t, err)
	assert.Equal(t, domain.PlatformTwitter, p)

	_, err = domain.ParsePlatform("myspace")
	assert.ErrorIs(t, err, domain.ErrUnsupportedPlatform)
}

func TestPlatform_JSON(t *testing.T) {
	var body struct {
		Platform domain.Platform `json:"platform"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"platform":"linkedin"}`), &body))
	assert.Equal(t, domain.PlatformLinkedIn, body.Platform)

	out, err := json.Marshal(body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"platform":"linkedin"}`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"platform":"orkut"}`), &body))
}
