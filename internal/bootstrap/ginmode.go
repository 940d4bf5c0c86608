package bootstrap

import (
	"github.com/gin-gonic/gin"

	"github.com/portalacademico/portal-backend/config"
)

// SetGinMode switches gin to release mode in production; elsewhere the
// default debug mode keeps route dumps on startup.
func SetGinMode(cfg *config.Config) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
}
