package middleware

import (
	"strings"

	"github.com/google/wire"
)

var ProviderSet = wire.NewSet(
	NewTraceEntry,
	NewCors,
	NewLogger,
	NewRecovery,
	NewResponse,
	NewAuth,
)

// untracedPrefixes 這些路徑不建立 span 也不記錄 request log
var untracedPrefixes = []string{"/metrics", "/version", "/health-check", "/health/", "/debug/pprof"}

func isUntraced(endpoint string) bool {
	for _, prefix := range untracedPrefixes {
		if strings.HasPrefix(endpoint, prefix) {
			return true
		}
	}
	return false
}
