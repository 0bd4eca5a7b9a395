package star

import (
	"fmt"
	"math"
	"strconv"

	"github.com/PatchLore/midnight-typer/internal/shared/errors"
)

var spectralColors = map[SpectralClass]string{
	SpectralO: "#9bb0ff",
	SpectralB: "#aabfff",
	SpectralA: "#cad7ff",
	SpectralF: "#f8f7ff",
	SpectralG: "#fff4ea",
	SpectralK: "#ffd2a1",
	SpectralM: "#ffcc6f",
}

// Generate derives a star descriptor from a typing session. It is pure and
// deterministic: the same session always yields an identical descriptor.
func Generate(session Session) (*Descriptor, error) {
	if err := ValidateSession(session); err != nil {
		return nil, err
	}

	seed := hashSeed(session.ID + strconv.FormatInt(session.Timestamp, 10))
	ra, dec := coordinates(seed)
	spectral := spectralClass(session.DurationMinutes)

	return &Descriptor{
		ID:                  "star-" + session.ID,
		Name:                nil,
		RA:                  ra,
		Dec:                 dec,
		Magnitude:           clamp(session.WPM/10, 1, 10),
		SpectralClass:       spectral,
		Color:               spectralColors[spectral],
		ConstellationPoints: constellation(session.Accuracy, seed),
		Radius:              math.Log(float64(session.WordCount)+1) * 3,
		SessionSnapshot:     session,
	}, nil
}

// ValidateSession checks the session fields the generator depends on.
func ValidateSession(session Session) error {
	if session.ID == "" {
		return errors.Validation("session id is required")
	}
	if session.DurationMinutes <= 0 {
		return errors.Validation("session duration must be positive")
	}
	if session.WPM < 0 {
		return errors.Validation("wpm must not be negative")
	}
	if session.Accuracy < 0 || session.Accuracy > 100 {
		return errors.Validation("accuracy must be between 0 and 100")
	}
	if session.WordCount < 0 {
		return errors.Validation("word count must not be negative")
	}
	return nil
}

// hashSeed computes a 32-bit seed with a polynomial rolling hash
// (multiplier 31, signed 32-bit accumulation, absolute value).
func hashSeed(s string) uint32 {
	var h int32
	for _, r := range s {
		h = h*31 + int32(r)
	}

	abs := int64(h)
	if abs < 0 {
		abs = -abs
	}
	return uint32(abs)
}

func coordinates(seed uint32) (ra, dec string) {
	raHours := seed % 24
	raMinutes := (seed >> 2) % 60
	raSeconds := (seed >> 4) % 60
	decDeg := int32(seed%180) - 90
	decMinutes := (seed >> 3) % 60
	decSeconds := (seed >> 6) % 60

	sign := ""
	if decDeg > 0 {
		sign = "+"
	}

	ra = fmt.Sprintf("%dh %dm %ds", raHours, raMinutes, raSeconds)
	dec = fmt.Sprintf("%s%d° %d' %d\"", sign, decDeg, decMinutes, decSeconds)
	return ra, dec
}

// spectralClass maps session duration to a class, longest sessions first.
func spectralClass(minutes float64) SpectralClass {
	switch {
	case minutes > 20:
		return SpectralO
	case minutes > 15:
		return SpectralB
	case minutes > 10:
		return SpectralA
	case minutes > 7:
		return SpectralF
	case minutes > 5:
		return SpectralG
	case minutes > 3:
		return SpectralK
	default:
		return SpectralM
	}
}

// constellation lays out 3-7 points around the center of a normalized
// 100x100 canvas. More accurate sessions earn more points.
func constellation(accuracy float64, seed uint32) []Point {
	count := 3
	switch {
	case accuracy > 95:
		count = 7
	case accuracy > 85:
		count = 5
	case accuracy > 70:
		count = 4
	}

	points := make([]Point, 0, count)
	for i := 0; i < count; i++ {
		angle := math.Mod(float64(seed)/float64(i+1), 2*math.Pi)
		distance := 20 + float64((seed>>uint(i))%30)
		points = append(points, Point{
			X: 50 + math.Cos(angle)*distance,
			Y: 50 + math.Sin(angle)*distance,
		})
	}
	return points
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
