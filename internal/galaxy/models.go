package galaxy

import (
	"time"
)

// WordsPerSlot is how many typed words unlock one claim slot.
const WordsPerSlot = 1000

// UserGalaxy is the per-user typing credit ledger. totalWordsTyped and
// slotsUsed only ever grow; slotsUnlocked is always floor(total/1000).
type UserGalaxy struct {
	UserID          string    `json:"user_id"`
	TotalWordsTyped int64     `json:"total_words_typed"`
	SlotsUnlocked   int       `json:"slots_unlocked"`
	SlotsUsed       int       `json:"slots_used"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// SlotStatus is what the frontend needs to show claim availability:
// how many slots are free, and how many more words unlock the next one.
type SlotStatus struct {
	Available int `json:"available"`
	Needed    int `json:"needed"`
}
