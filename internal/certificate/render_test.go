package certificate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PatchLore/midnight-typer/internal/star"
)

func TestRenderPDF(t *testing.T) {
	name := "Vega Prime"
	descriptor := star.Descriptor{
		ID:            "star-session-123",
		Name:          &name,
		RA:            "12h 30m 45s",
		Dec:           "+45° 12' 30\"",
		Magnitude:     6,
		SpectralClass: star.SpectralG,
	}

	data, err := RenderPDF(descriptor, 42, "2026-08-31")
	require.NoError(t, err)

	assert.NotEmpty(t, data)
	assert.Equal(t, "%PDF", string(data[:4]))
}

func TestRenderPDFUnnamedStar(t *testing.T) {
	descriptor := star.Descriptor{
		ID:            "star-session-456",
		RA:            "1h 2m 3s",
		Dec:           "-10° 0' 0\"",
		Magnitude:     1,
		SpectralClass: star.SpectralM,
	}

	data, err := RenderPDF(descriptor, 0, "2026-08-31")
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}
