package star

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSession() Session {
	return Session{
		ID:              "session-123",
		WPM:             60,
		Accuracy:        90,
		DurationMinutes: 6,
		WordCount:       360,
		Timestamp:       1700000000000,
	}
}

func TestGenerateDeterministic(t *testing.T) {
	session := validSession()

	first, err := Generate(session)
	require.NoError(t, err)
	second, err := Generate(session)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestGenerateDiffersBySessionIdentity(t *testing.T) {
	a := validSession()
	b := validSession()
	b.ID = "session-456"

	starA, err := Generate(a)
	require.NoError(t, err)
	starB, err := Generate(b)
	require.NoError(t, err)

	assert.NotEqual(t, starA.RA, starB.RA)
}

func TestGenerateStarAttributes(t *testing.T) {
	session := validSession()

	star, err := Generate(session)
	require.NoError(t, err)

	assert.Equal(t, "star-session-123", star.ID)
	assert.Nil(t, star.Name)
	assert.Equal(t, "Unnamed Star", star.DisplayName())
	assert.Equal(t, SpectralG, star.SpectralClass)
	assert.Equal(t, "#fff4ea", star.Color)
	assert.Equal(t, 6.0, star.Magnitude)
	assert.Len(t, star.ConstellationPoints, 5)
	assert.InDelta(t, math.Log(361)*3, star.Radius, 1e-9)
	assert.Equal(t, session, star.SessionSnapshot)
}

func TestGenerateValidation(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Session)
	}{
		{"missing id", func(s *Session) { s.ID = "" }},
		{"zero duration", func(s *Session) { s.DurationMinutes = 0 }},
		{"negative duration", func(s *Session) { s.DurationMinutes = -1 }},
		{"negative wpm", func(s *Session) { s.WPM = -5 }},
		{"accuracy below range", func(s *Session) { s.Accuracy = -1 }},
		{"accuracy above range", func(s *Session) { s.Accuracy = 101 }},
		{"negative word count", func(s *Session) { s.WordCount = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := validSession()
			tt.modify(&session)

			_, err := Generate(session)
			assert.Error(t, err)
		})
	}
}

func TestSpectralClassThresholds(t *testing.T) {
	tests := []struct {
		minutes float64
		want    SpectralClass
	}{
		{25, SpectralO},
		{20.5, SpectralO},
		{20, SpectralB},
		{16, SpectralB},
		{15, SpectralA},
		{11, SpectralA},
		{10, SpectralF},
		{8, SpectralF},
		{7, SpectralG},
		{6, SpectralG},
		{5, SpectralK},
		{4, SpectralK},
		{3, SpectralM},
		{1, SpectralM},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, spectralClass(tt.minutes), "minutes=%v", tt.minutes)
	}
}

func TestMagnitudeClamped(t *testing.T) {
	tests := []struct {
		wpm  float64
		want float64
	}{
		{0, 1},
		{5, 1},
		{55, 5.5},
		{100, 10},
		{150, 10},
	}

	for _, tt := range tests {
		session := validSession()
		session.WPM = tt.wpm

		star, err := Generate(session)
		require.NoError(t, err)
		assert.Equal(t, tt.want, star.Magnitude, "wpm=%v", tt.wpm)
	}
}

func TestConstellationPointCounts(t *testing.T) {
	tests := []struct {
		accuracy float64
		want     int
	}{
		{100, 7},
		{96, 7},
		{95, 5},
		{90, 5},
		{86, 5},
		{85, 4},
		{75, 4},
		{71, 4},
		{70, 3},
		{50, 3},
		{0, 3},
	}

	for _, tt := range tests {
		session := validSession()
		session.Accuracy = tt.accuracy

		star, err := Generate(session)
		require.NoError(t, err)
		assert.Len(t, star.ConstellationPoints, tt.want, "accuracy=%v", tt.accuracy)
	}
}

func TestConstellationPointsOnCanvas(t *testing.T) {
	session := validSession()
	session.Accuracy = 100

	star, err := Generate(session)
	require.NoError(t, err)

	// Points orbit (50,50) at distance 20-49, so every coordinate
	// stays strictly inside the 100x100 canvas.
	for _, p := range star.ConstellationPoints {
		assert.GreaterOrEqual(t, p.X, 0.0)
		assert.LessOrEqual(t, p.X, 100.0)
		assert.GreaterOrEqual(t, p.Y, 0.0)
		assert.LessOrEqual(t, p.Y, 100.0)
	}
}

func TestRadiusGrowsLogarithmically(t *testing.T) {
	session := validSession()
	session.WordCount = 0

	star, err := Generate(session)
	require.NoError(t, err)
	assert.Equal(t, 0.0, star.Radius)

	session.WordCount = 1000
	bigger, err := Generate(session)
	require.NoError(t, err)
	assert.InDelta(t, math.Log(1001)*3, bigger.Radius, 1e-9)
}

func TestHashSeedStable(t *testing.T) {
	assert.Equal(t, hashSeed("abc"), hashSeed("abc"))
	assert.NotEqual(t, hashSeed("abc"), hashSeed("abd"))

	// Overflow wraps in 32 bits and the absolute value keeps the seed
	// non-negative regardless of input length.
	long := "a-very-long-session-identifier-that-overflows-the-accumulator-1234567890"
	assert.Equal(t, hashSeed(long), hashSeed(long))
}

func TestCoordinateRanges(t *testing.T) {
	seeds := []uint32{0, 1, 42, 1234567, math.MaxUint32}

	for _, seed := range seeds {
		ra, dec := coordinates(seed)
		assert.Regexp(t, `^\d+h \d+m \d+s$`, ra, "seed=%d", seed)
		assert.Regexp(t, `^[+-]?\d+° \d+' \d+"$`, dec, "seed=%d", seed)
	}
}
