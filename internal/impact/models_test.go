package impact

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTreeMilestone(t *testing.T) {
	tests := []struct {
		claimed int64
		want    bool
	}{
		{0, false},
		{1, false},
		{9, false},
		{10, true},
		{11, false},
		{20, true},
		{100, true},
		{101, false},
	}

	for _, tt := range tests {
		c := Counter{TotalStarsClaimed: tt.claimed}
		assert.Equal(t, tt.want, c.IsTreeMilestone(), "claimed=%d", tt.claimed)
	}
}
