package http

import (
	"go.uber.org/zap"

	"github.com/portalacademico/portal-backend/internal/enrollment/service"
)

// Handler exposes enrollment to students and the confirmation screens to
// coordinators.
type Handler struct {
	engine   *service.AdmissionEngine
	workflow *service.ConfirmationWorkflow
	query    *service.EnrollmentQuery
	log      *zap.Logger
}

func New(engine *service.AdmissionEngine, workflow *service.ConfirmationWorkflow, query *service.EnrollmentQuery, log *zap.Logger) *Handler {
	return &Handler{engine: engine, workflow: workflow, query: query, log: log}
}
