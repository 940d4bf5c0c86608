package bootstrap

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	httpapi "github.com/portalacademico/portal-backend/internal/api/http"
	"github.com/portalacademico/portal-backend/internal/api/http/middleware"
	"github.com/portalacademico/portal-backend/internal/api/http/routes"
)

type RouterDeps struct {
	ServiceName    string
	Version        string
	Log            *zap.Logger
	Store          httpapi.Pinger
	Cache          httpapi.Pinger
	// RequestTimeout bounds every request context; zero leaves requests unbounded.
	RequestTimeout time.Duration
	V1             routes.V1Deps
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware(dep.Log))
	r.Use(middleware.RequestTimeout(dep.RequestTimeout))
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Authorization", "X-Request-Id", "X-User-Id", "X-User-Role"},
		ExposeHeaders:   []string{"X-Request-Id", "Retry-After"},
		MaxAge:          12 * time.Hour,
	}))

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, dep.Store, dep.Cache)
	healthHandler.RegisterRoutes(r)

	routes.RegisterV1(r, dep.V1)

	return r
}
