package middleware

import (
	"errors"
	"fmt"
	"strings"

	"opsboard/config"
	"opsboard/internal/core"
	cErr "opsboard/internal/pkg/error"
	"opsboard/internal/pkg/response"
	"opsboard/internal/telemetry"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"
)

// Auth 驗證觸發聚合的 Bearer JWT（HS256，APP__SECRET_KEY）
type Auth struct {
	logger *zap.Logger
	trace  *telemetry.Trace
	secret []byte
}

func NewAuth(logger *zap.Logger, trace *telemetry.Trace, config *config.Configuration) *Auth {
	return &Auth{logger: logger, trace: trace, secret: []byte(config.App.SecretKey)}
}

func (middleware *Auth) Handler(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, span, end := middleware.trace.WithSpan(middleware.trace.GetTraceContext(c), string(core.SpanAuthMiddleware))
		meta := core.TraceAuthMeta{}
		fail := func(status string, cause *cErr.Error) {
			meta.Status = status
			middleware.trace.ApplyTraceAttributes(span, meta)
			response.AbortWithError(c, cause)
			end(cause)
		}

		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			fail("missing_token", cErr.Unauthorized("missing bearer token"))
			return
		}
		claims, err := middleware.parse(token)
		if err != nil {
			middleware.logger.Warn("[Auth] invalid token", zap.String("client_ip", c.ClientIP()), zap.Error(err))
			fail("invalid_token", cErr.InvalidToken("invalid bearer token"))
			return
		}
		meta.Caller, meta.Scopes = claims.Caller, claims.Scopes
		if !claims.HasScope(scope) {
			fail("forbidden_scope", cErr.Forbidden(fmt.Sprintf("scope %q required", scope)))
			return
		}

		meta.Status = "success"
		middleware.trace.ApplyTraceAttributes(span, meta)
		end(nil)
		c.Set(core.ContextClaimsKey, claims)
		c.Next()
	}
}

func (middleware *Auth) parse(raw string) (*core.Claims, error) {
	if len(middleware.secret) == 0 {
		return nil, errors.New("secret key not configured")
	}
	claims := &core.Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return middleware.secret, nil
	})
	if err != nil {
		return nil, err
	}
	return claims, nil
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
