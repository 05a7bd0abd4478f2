package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medierp/ledger/internal/infrastructure/logger"
	"github.com/medierp/ledger/internal/interfaces/http/dto"
	"github.com/medierp/ledger/internal/interfaces/http/middleware"
)

// RouteRegistrar defines the interface for registering routes
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// SystemRegistrar mounts routes that bypass the API middleware, such as
// the health probes
type SystemRegistrar interface {
	RegisterRoutes(rg gin.IRoutes)
}

// Router manages HTTP route registration
type Router struct {
	engine        *gin.Engine
	apiVersion    string
	apiMiddleware []gin.HandlerFunc
	system        []SystemRegistrar
	registrars    []RouteRegistrar
}

// RouterOption is a functional option for Router configuration
type RouterOption func(*Router)

// WithAPIVersion sets the API version prefix (e.g., "v1", "v2")
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// WithAPIMiddleware runs handlers, in order, in front of every versioned
// API route. Authentication belongs here.
func WithAPIMiddleware(handlers ...gin.HandlerFunc) RouterOption {
	return func(r *Router) {
		r.apiMiddleware = append(r.apiMiddleware, handlers...)
	}
}

// WithSystemRoutes mounts registrars at the engine root
func WithSystemRoutes(registrars ...SystemRegistrar) RouterOption {
	return func(r *Router) {
		r.system = append(r.system, registrars...)
	}
}

// NewRouter creates a new Router instance
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{
		engine:     engine,
		apiVersion: "v1",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a RouteRegistrar to be registered later
func (r *Router) Register(registrars ...RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrars...)
	return r
}

// Setup registers all routes with the engine. Unknown routes answer the
// standard error envelope.
func (r *Router) Setup() {
	for _, s := range r.system {
		s.RegisterRoutes(r.engine)
	}

	api := r.engine.Group("/api/" + r.apiVersion)
	if len(r.apiMiddleware) > 0 {
		api.Use(r.apiMiddleware...)
	}
	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(api)
	}

	r.engine.NoRoute(func(c *gin.Context) {
		c.Set(middleware.ErrorCodeKey, dto.ErrCodeRouteNotFound)
		c.JSON(http.StatusNotFound, dto.NewErrorResponse(dto.ErrCodeRouteNotFound,
			"Route "+c.Request.Method+" "+c.Request.URL.Path+" not found",
			c.GetString(logger.GinRequestIDKey)))
	})
}

// APIPrefix returns the path prefix of the versioned API
func (r *Router) APIPrefix() string {
	return "/api/" + r.apiVersion
}
