package http

import "github.com/gin-gonic/gin"

// Register registers the public catalog routes.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("/courses", h.ListCourses)
	rg.GET("/courses/:id", h.GetCourse)
}

// RegisterAdmin registers course administration routes. The caller is
// expected to guard rg with the coordinator role.
func (h *Handler) RegisterAdmin(rg *gin.RouterGroup) {
	rg.GET("/courses", h.AdminListCourses)
	rg.POST("/courses", h.CreateCourse)
	rg.PUT("/courses/:id", h.UpdateCourse)
	rg.POST("/courses/:id/deactivate", h.DeactivateCourse)
	rg.POST("/catalog/invalidate", h.InvalidateCatalog)
}
