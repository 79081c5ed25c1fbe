package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// CordonResult is the backend's verdict on a digital-cordon request.
// A refusal arrives as Success false with a reason, not as an error;
// errors are reserved for transport and decode failures.
type CordonResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type cordonRequest struct {
	ComplaintID string `json:"complaintId"`
	HotspotID   string `json:"hotspotId"`
}

// ActivateCordon asks the backend to freeze withdrawal corridors around
// the given hotspot. It reports what the backend said and nothing more:
// the caller decides how to reflect the outcome locally.
func (c *Client) ActivateCordon(ctx context.Context, complaintID, hotspotID string) (CordonResult, error) {
	if c.base == "" {
		return CordonResult{}, ErrNoUpstream
	}

	body, err := json.Marshal(cordonRequest{ComplaintID: complaintID, HotspotID: hotspotID})
	if err != nil {
		return CordonResult{}, fmt.Errorf("failed to marshal cordon request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/cordon", bytes.NewReader(body))
	if err != nil {
		return CordonResult{}, fmt.Errorf("failed to build cordon request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return CordonResult{}, fmt.Errorf("failed to call cordon endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return CordonResult{}, fmt.Errorf("cordon endpoint returned status: %d", resp.StatusCode)
	}

	var result CordonResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return CordonResult{}, fmt.Errorf("failed to decode cordon response: %w", err)
	}
	return result, nil
}
