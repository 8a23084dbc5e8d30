package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"tracker-superacres/internal/shared/geo"
	"tracker-superacres/internal/store"
)

// Client talks to the remote scoring service. One attempt per call; retry
// policy is the caller's concern.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	kv      store.KV
}

func NewClient(baseURL, token string, kv store.KV) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
		kv:      kv,
	}
}

type StartRunResponse struct {
	RunID     string `json:"runId"`
	StartedAt string `json:"startedAt"`
}

type StolenEntry struct {
	UserID   string  `json:"userId"`
	Username string  `json:"username"`
	AreaKm2  float64 `json:"areaKm2"`
}

type RunResult struct {
	ID                  string          `json:"id"`
	DistanceKm          float64         `json:"distanceKm"`
	DurationSeconds     int64           `json:"durationSeconds"`
	AvgPaceMinPerKm     float64         `json:"avgPaceMinPerKm"`
	TerritoryGainedKm2  float64         `json:"territoryGainedKm2"`
	TerritoryStolenFrom []StolenEntry   `json:"territoryStolenFrom"`
	TerritoryPolygon    json.RawMessage `json:"territoryPolygon"`
	RouteCoordinates    json.RawMessage `json:"routeCoordinates"`
}

type EndRunResponse struct {
	Run                 RunResult     `json:"run"`
	TerritoryGained     float64       `json:"territoryGained"`
	TerritoryStolenFrom []StolenEntry `json:"territoryStolenFrom"`
}

type endRunRequest struct {
	RunID       string      `json:"runId"`
	Coordinates [][]float64 `json:"coordinates"`
}

// StartRun requests a new remote run id.
func (c *Client) StartRun(ctx context.Context) (StartRunResponse, error) {
	var out StartRunResponse
	if err := c.post(ctx, "/runs/start", struct{}{}, &out); err != nil {
		return StartRunResponse{}, err
	}
	if out.RunID == "" {
		return StartRunResponse{}, fmt.Errorf("runs/start: empty run id")
	}
	return out, nil
}

// EndRun submits the merged route in the API's [longitude, latitude]
// convention. On success the raw response body is persisted for the
// downstream summary consumer; on failure nothing is written.
func (c *Client) EndRun(ctx context.Context, runID string, route []geo.Coordinate) (EndRunResponse, error) {
	if len(route) < 2 {
		return EndRunResponse{}, fmt.Errorf("runs/end: need at least 2 coordinates, have %d", len(route))
	}

	req := endRunRequest{RunID: runID, Coordinates: geo.ToLngLat(route)}
	raw, err := c.postRaw(ctx, "/runs/end", req)
	if err != nil {
		return EndRunResponse{}, err
	}

	var out EndRunResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return EndRunResponse{}, fmt.Errorf("runs/end decode: %w", err)
	}

	if err := store.SaveLastResult(ctx, c.kv, raw); err != nil {
		return EndRunResponse{}, fmt.Errorf("persist run result: %w", err)
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	raw, err := c.postRaw(ctx, path, body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s decode: %w", path, err)
	}
	return nil
}

func (c *Client) postRaw(ctx context.Context, path string, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s read: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: status %d: %s", path, resp.StatusCode, truncate(raw, 200))
	}
	return raw, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
