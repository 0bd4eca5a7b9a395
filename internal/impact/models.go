package impact

import (
	"time"
)

// TreeMilestoneInterval is how many claimed stars trigger one planted tree.
const TreeMilestoneInterval = 10

// Counter is the single process-wide impact row. Both totals are
// monotonic; version backs the optimistic-concurrency updates.
type Counter struct {
	ID                int64      `json:"id"`
	TotalStarsClaimed int64      `json:"total_stars_claimed"`
	TotalTreesPlanted int64      `json:"total_trees_planted"`
	LastTreePlantedAt *time.Time `json:"last_tree_planted_at"`
	Version           int64      `json:"-"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// IsTreeMilestone reports whether the counter just crossed a tree-planting
// milestone. The predicate runs on the global total, not per user.
func (c *Counter) IsTreeMilestone() bool {
	return c.TotalStarsClaimed > 0 && c.TotalStarsClaimed%TreeMilestoneInterval == 0
}
