package core

import "github.com/golang-jwt/jwt/v4"

// Claims 觸發聚合的呼叫端（排程器、儀表板後端）
type Claims struct {
	Caller string   `json:"caller"`
	Scopes []string `json:"scopes,omitempty"`
	jwt.RegisteredClaims
}

const ScopeAggregationTrigger = "aggregations:trigger"

// HasScope 未帶 scopes 的 token 視為全權限（內部排程器）
func (c *Claims) HasScope(scope string) bool {
	if len(c.Scopes) == 0 {
		return true
	}
	for _, s := range c.Scopes {
		if s == scope || s == "*" {
			return true
		}
	}
	return false
}

const ContextClaimsKey = "auth_claims"
