package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux（避免引入第三方路由依赖）
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func methodOnly(method string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if req.Method != method {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h(w, req)
	}
}

// RegisterBuyerRoutes lead路由。所有端点都经过身份中间件。
func (r *Router) RegisterBuyerRoutes(h *BuyerHandler, resolver IdentityResolver) {
	auth := func(next http.HandlerFunc) http.HandlerFunc {
		return RequireIdentity(resolver, r.logger, next)
	}

	// list + create
	r.Handle("/api/v1/buyers", auth(func(w http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case http.MethodGet:
			h.List(w, req)
		case http.MethodPost:
			h.Create(w, req)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))

	// 精确路径优先于 /api/v1/buyers/ 前缀
	r.Handle("/api/v1/buyers/export", auth(methodOnly(http.MethodGet, h.ExportCSV)))
	r.Handle("/api/v1/buyers/export.xlsx", auth(methodOnly(http.MethodGet, h.ExportXLSX)))
	r.Handle("/api/v1/buyers/import", auth(methodOnly(http.MethodPost, h.Import)))

	// buyers/{id}
	r.Handle("/api/v1/buyers/", auth(func(w http.ResponseWriter, req *http.Request) {
		id := strings.TrimPrefix(req.URL.Path, "/api/v1/buyers/")
		if id == "" || strings.Contains(id, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		switch req.Method {
		case http.MethodGet:
			h.Get(w, req, id)
		case http.MethodPut:
			h.Update(w, req, id)
		case http.MethodDelete:
			h.Delete(w, req, id)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))

	r.Handle("/api/v1/tags/suggest", auth(methodOnly(http.MethodGet, h.SuggestTags)))
}

// RegisterAuthRoutes 登录路由（不经过身份中间件）
func (r *Router) RegisterAuthRoutes(h *AuthHandler) {
	r.Handle("/auth/api/v1/login/request", methodOnly(http.MethodPost, h.RequestLogin))
	r.Handle("/auth/api/v1/login/verify", methodOnly(http.MethodPost, h.VerifyLogin))
	r.Handle("/auth/api/v1/logout", methodOnly(http.MethodPost, h.Logout))
}

// RegisterHealthRoutes 存活探针：数据库可达即健康
func (r *Router) RegisterHealthRoutes(db *sql.DB) {
	r.Handle("/healthz", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()
		if db != nil {
			if err := db.PingContext(ctx); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, Fail("database unreachable"))
				return
			}
		}
		writeJSON(w, http.StatusOK, Ok("ok"))
	})
}
