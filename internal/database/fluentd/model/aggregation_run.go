package model

// AggregationRunLog 每個 (kind, location) pass 一筆
type AggregationRunLog struct {
	RunID      string   `json:"run_id"`
	Kind       string   `json:"kind"`
	LocationID string   `json:"location_id,omitempty"`
	From       string   `json:"from,omitempty"`
	To         string   `json:"to,omitempty"`
	Mode       string   `json:"mode"`
	Ranges     []string `json:"ranges,omitempty"`
	Status     string   `json:"status"`
	Records    int      `json:"records"`
	Skipped    int      `json:"skipped"`
	Warnings   int      `json:"warnings"`
	Errors     int      `json:"errors"`
	Error      string   `json:"error,omitempty"`
	Trigger    string   `json:"trigger,omitempty"`
	DurationMs int64    `json:"duration_ms"`
	StartedAt  string   `json:"started_at"`
	Version    string   `json:"version,omitempty"`
	LoggedAt   string   `json:"logged_at"`
}
