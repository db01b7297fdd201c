package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Reading is one zone risk sample from the sensor feed.
type Reading struct {
	ZoneID      string   `json:"zone_id"`
	ZoneName    string   `json:"zone_name"`
	RiskScore   float64  `json:"risk_score"`
	Probability *float64 `json:"probability,omitempty"`
}

func (m *Manager) fetchReadings(ctx context.Context, url string) ([]Reading, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	client := &http.Client{
		Timeout: 15 * time.Second,
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error while doing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d - status: %s", resp.StatusCode, resp.Status)
	}

	var readings []Reading
	if err := json.NewDecoder(resp.Body).Decode(&readings); err != nil {
		return nil, fmt.Errorf("error decoding resp.Body: %w", err)
	}

	return readings, nil
}
