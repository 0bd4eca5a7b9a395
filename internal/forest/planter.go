// Package forest talks to the tree-planting API. Planting is a best-effort
// side effect: callers log failures but never fail a claim over them.
package forest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/PatchLore/midnight-typer/internal/shared/config"
)

// PlantResult reports the outcome of one planting request. The API does
// not guarantee idempotency, so callers invoke it once per milestone.
type PlantResult struct {
	Success bool   `json:"success"`
	TreeID  string `json:"treeId,omitempty"`
	Message string `json:"message,omitempty"`
}

type plantRequest struct {
	ProjectID string         `json:"project_id"`
	Species   string         `json:"species"`
	Location  plantLocation  `json:"location"`
	Metadata  map[string]any `json:"metadata"`
}

type plantLocation struct {
	Country string `json:"country"`
	Region  string `json:"region"`
}

type plantResponse struct {
	ID     string `json:"id"`
	TreeID string `json:"tree_id"`
}

type Planter struct {
	cfg    config.TreePlantingConfig
	client *http.Client
	logger *slog.Logger
}

func NewPlanter(cfg config.TreePlantingConfig, logger *slog.Logger) *Planter {
	logger.Debug("Initializing tree planter",
		"enabled", cfg.Enabled,
		"api_url", cfg.APIURL,
		"timeout", cfg.Timeout,
	)

	return &Planter{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

func (p *Planter) PlantTree(ctx context.Context) (*PlantResult, error) {
	logger := p.logger.With("component", "tree_planter", "operation", "plant_tree")

	if !p.cfg.Enabled {
		logger.Info("Tree planting disabled, skipping external call")
		return &PlantResult{Success: true, Message: "tree planting disabled"}, nil
	}

	if p.cfg.APIKey == "" {
		logger.Error("Tree planting API key not configured")
		return &PlantResult{Success: false, Message: "API key not configured"}, nil
	}

	body, err := json.Marshal(plantRequest{
		ProjectID: p.cfg.ProjectID,
		Species:   "mixed-native",
		Location: plantLocation{
			Country: "Global",
			Region:  "Various reforestation projects",
		},
		Metadata: map[string]any{
			"source":    "midnight-typer",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal plant request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.APIURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build plant request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	req.Header.Set("User-Agent", "MidnightTyper/1.0")

	resp, err := p.client.Do(req)
	if err != nil {
		logger.Error("Tree planting request failed", "error", err)
		return nil, fmt.Errorf("tree planting request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.Error("Tree planting API returned error status", "status", resp.StatusCode)
		return nil, fmt.Errorf("tree planting API returned status %d", resp.StatusCode)
	}

	var planted plantResponse
	if err := json.NewDecoder(resp.Body).Decode(&planted); err != nil {
		return nil, fmt.Errorf("failed to decode plant response: %w", err)
	}

	treeID := planted.ID
	if treeID == "" {
		treeID = planted.TreeID
	}

	logger.Info("Tree planted", "tree_id", treeID)
	return &PlantResult{Success: true, TreeID: treeID, Message: "tree planted successfully"}, nil
}
