package http

import (
	"go.uber.org/zap"

	"github.com/portalacademico/portal-backend/internal/catalog/service"
)

// Handler serves the public catalog and the coordinator's course screens.
type Handler struct {
	catalog *service.CatalogService
	admin   *service.CourseAdminService
	log     *zap.Logger
}

func New(catalog *service.CatalogService, admin *service.CourseAdminService, log *zap.Logger) *Handler {
	return &Handler{catalog: catalog, admin: admin, log: log}
}
