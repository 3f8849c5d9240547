package model

// IdentityDuplicateLog 同一 eitjeUserId 對到多筆主檔
type IdentityDuplicateLog struct {
	RunID       string   `json:"run_id"`
	EitjeUserID string   `json:"eitje_user_id"`
	KeptID      string   `json:"kept_profile_id"`
	DroppedIDs  []string `json:"dropped_profile_ids"`
	Version     string   `json:"version,omitempty"`
	LoggedAt    string   `json:"logged_at"`
}

// IdentityUnmatchedLog 班表中出現但沒有主檔的 Eitje 使用者
type IdentityUnmatchedLog struct {
	RunID       string `json:"run_id"`
	EitjeUserID string `json:"eitje_user_id"`
	LocationID  string `json:"location_id,omitempty"`
	ShiftCount  int    `json:"shift_count"`
	LastShift   string `json:"last_shift,omitempty"`
	Version     string `json:"version,omitempty"`
	LoggedAt    string `json:"logged_at"`
}
