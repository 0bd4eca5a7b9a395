package star

import (
	"time"
)

type Status string

const (
	StatusUnclaimed Status = "unclaimed"
	StatusClaimed   Status = "claimed"
	StatusGifted    Status = "gifted"
)

type SpectralClass string

const (
	SpectralO SpectralClass = "O"
	SpectralB SpectralClass = "B"
	SpectralA SpectralClass = "A"
	SpectralF SpectralClass = "F"
	SpectralG SpectralClass = "G"
	SpectralK SpectralClass = "K"
	SpectralM SpectralClass = "M"
)

// Session is a completed typing session as reported by the client.
// Immutable once created; the generator derives everything from it.
type Session struct {
	ID              string  `json:"id"`
	WPM             float64 `json:"wpm"`
	Accuracy        float64 `json:"accuracy"`
	DurationMinutes float64 `json:"durationMinutes"`
	WordCount       int     `json:"wordCount"`
	Timestamp       int64   `json:"timestamp"`
}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Descriptor holds the procedurally generated attributes of a star.
// Every field is a pure function of the originating session, so a
// descriptor can be regenerated and verified without touching storage.
type Descriptor struct {
	ID                  string        `json:"id"`
	Name                *string       `json:"name"`
	RA                  string        `json:"ra"`
	Dec                 string        `json:"dec"`
	Magnitude           float64       `json:"magnitude"`
	SpectralClass       SpectralClass `json:"spectralClass"`
	Color               string        `json:"color"`
	ConstellationPoints []Point       `json:"constellationPoints"`
	Radius              float64       `json:"radius"`
	SessionSnapshot     Session       `json:"sessionSnapshot"`
}

// DisplayName returns the star's name or a placeholder for unnamed stars.
func (d *Descriptor) DisplayName() string {
	if d.Name != nil && *d.Name != "" {
		return *d.Name
	}
	return "Unnamed Star"
}

// Record is the persisted star. Status transitions are append-only:
// a claimed star never reverts to unclaimed.
type Record struct {
	ID               string     `json:"id"`
	UserID           string     `json:"user_id"`
	Star             Descriptor `json:"star_data"`
	Status           Status     `json:"status"`
	CreatedAt        time.Time  `json:"created_at"`
	ClaimedAt        *time.Time `json:"claimed_at"`
	PaymentReference *string    `json:"payment_reference"`
	CertificateURL   *string    `json:"certificate_url"`
}
