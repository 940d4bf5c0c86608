package http

import "github.com/gin-gonic/gin"

// RegisterStudent registers routes for the authenticated student. enrollMW
// runs in front of the enroll endpoint only.
func (h *Handler) RegisterStudent(rg *gin.RouterGroup, enrollMW ...gin.HandlerFunc) {
	rg.POST("/catalog/courses/:id/enrollments", append(enrollMW, h.Enroll)...)
	rg.GET("/me/enrollments", h.ListMine)
}

// RegisterAdmin registers the coordinator's enrollment routes.
func (h *Handler) RegisterAdmin(rg *gin.RouterGroup) {
	rg.GET("/enrollments", h.ListByCourse)
	rg.POST("/enrollments/:id/confirm", h.Confirm)
	rg.POST("/enrollments/:id/cancel", h.Cancel)
}
