package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/portalacademico/portal-backend/internal/auth"
	cataloghttp "github.com/portalacademico/portal-backend/internal/catalog/http"
	enrollhttp "github.com/portalacademico/portal-backend/internal/enrollment/http"
)

type V1Deps struct {
	Catalog         *cataloghttp.Handler
	Enrollment      *enrollhttp.Handler
	Auth            auth.Options
	CoordinatorRole string
	// EnrollLimit throttles the enroll endpoint; nil disables throttling.
	EnrollLimit gin.HandlerFunc
}

func RegisterV1(r *gin.Engine, dep V1Deps) {
	api := r.Group("/api/v1")
	api.Use(auth.Identify(dep.Auth))

	dep.Catalog.Register(api.Group("/catalog"))

	var enrollMW []gin.HandlerFunc
	if dep.EnrollLimit != nil {
		enrollMW = append(enrollMW, dep.EnrollLimit)
	}
	dep.Enrollment.RegisterStudent(api.Group("", auth.RequireUser()), enrollMW...)

	admin := api.Group("/admin", auth.RequireRole(dep.CoordinatorRole))
	dep.Catalog.RegisterAdmin(admin)
	dep.Enrollment.RegisterAdmin(admin)
}
