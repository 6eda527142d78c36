package httpapi

import (
	"context"
	"net/http"
	"strings"

	"leadhub-data/internal/service"

	"go.uber.org/zap"
)

type ctxKey int

const (
	ownerIDKey ctxKey = iota
	scopeOverridableKey
)

// IdentityResolver 把请求解析为owner身份。
// 两个实现：session（Redis会话）与 static（固定身份，非生产旁路）。
// 启动时按配置二选一注入，处理器内不做模式分支。
type IdentityResolver interface {
	Resolve(r *http.Request) (ownerID string, err error)
	// ScopeOverridable 为 true 时，list/export 允许 query 参数覆盖owner范围
	//（仅 static 模式，对齐联调用法）。
	ScopeOverridable() bool
}

// SessionIdentityResolver Bearer会话token解析
type SessionIdentityResolver struct {
	auth *service.AuthService
}

func NewSessionIdentityResolver(auth *service.AuthService) *SessionIdentityResolver {
	return &SessionIdentityResolver{auth: auth}
}

func (s *SessionIdentityResolver) Resolve(r *http.Request) (string, error) {
	return s.auth.ResolveSession(r.Context(), bearerToken(r))
}

func (s *SessionIdentityResolver) ScopeOverridable() bool { return false }

// StaticIdentityResolver 固定身份（非生产旁路）
type StaticIdentityResolver struct {
	OwnerID string
}

func (s *StaticIdentityResolver) Resolve(_ *http.Request) (string, error) {
	return s.OwnerID, nil
}

func (s *StaticIdentityResolver) ScopeOverridable() bool { return true }

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// RequireIdentity 身份中间件：每个请求只解析一次，放入context供处理器读取。
func RequireIdentity(resolver IdentityResolver, logger *zap.Logger, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, err := resolver.Resolve(r)
		if err != nil || ownerID == "" {
			if err != nil && err != service.ErrUnauthorized {
				logger.Warn("identity resolution failed", zap.Error(err))
			}
			writeJSON(w, http.StatusUnauthorized, Fail("Unauthorized"))
			return
		}
		ctx := context.WithValue(r.Context(), ownerIDKey, ownerID)
		ctx = context.WithValue(ctx, scopeOverridableKey, resolver.ScopeOverridable())
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

func ownerFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ownerIDKey).(string); ok {
		return v
	}
	return ""
}

// listScope list/export的owner过滤范围。
// static 模式下允许 ownerId 参数覆盖（含空值=不限owner），与原有联调行为一致。
func listScope(r *http.Request) string {
	ownerID := ownerFromContext(r.Context())
	if v, ok := r.Context().Value(scopeOverridableKey).(bool); ok && v {
		return r.URL.Query().Get("ownerId")
	}
	return ownerID
}
