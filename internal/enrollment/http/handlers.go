package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/portalacademico/portal-backend/internal/auth"
	"github.com/portalacademico/portal-backend/internal/enrollment/domain"
	applog "github.com/portalacademico/portal-backend/internal/logger"
)

// Enroll admits the calling student into the course in the path.
func (h *Handler) Enroll(c *gin.Context) {
	studentID := auth.UserID(c)
	if studentID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "user not authenticated"})
		return
	}
	courseID, ok := pathID(c, "invalid course id")
	if !ok {
		return
	}

	e, err := h.engine.Enroll(c.Request.Context(), courseID, studentID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "enrollment": e})
}

func (h *Handler) ListMine(c *gin.Context) {
	studentID := auth.UserID(c)
	if studentID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "user not authenticated"})
		return
	}

	list, err := h.query.ListByStudent(c.Request.Context(), studentID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "enrollments": list})
}

// ListByCourse returns a course roster; without course_id it shows the first
// course by name.
func (h *Handler) ListByCourse(c *gin.Context) {
	var courseID int64
	if raw := strings.TrimSpace(c.Query("course_id")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid course_id"})
			return
		}
		courseID = id
	}

	roster, err := h.query.ListByCourse(c.Request.Context(), courseID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "course": roster.Course, "enrollments": roster.Enrollments})
}

func (h *Handler) Confirm(c *gin.Context) {
	id, ok := pathID(c, "invalid enrollment id")
	if !ok {
		return
	}

	e, err := h.workflow.Confirm(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "enrollment": e})
}

func (h *Handler) Cancel(c *gin.Context) {
	id, ok := pathID(c, "invalid enrollment id")
	if !ok {
		return
	}

	e, err := h.workflow.Cancel(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "enrollment": e})
}

var rejections = []struct {
	err    error
	status int
	code   string
}{
	{domain.ErrCourseNotFound, http.StatusNotFound, "course_not_found"},
	{domain.ErrEnrollmentNotFound, http.StatusNotFound, "enrollment_not_found"},
	{domain.ErrAlreadyEnrolled, http.StatusConflict, "already_enrolled"},
	{domain.ErrCapacityExceeded, http.StatusConflict, "capacity_exceeded"},
	{domain.ErrScheduleConflict, http.StatusConflict, "schedule_conflict"},
	{domain.ErrInvalidState, http.StatusConflict, "invalid_state"},
	{domain.ErrDuplicateOrRace, http.StatusConflict, "duplicate_or_race"},
}

func (h *Handler) writeError(c *gin.Context, err error) {
	for _, r := range rejections {
		if errors.Is(err, r.err) {
			c.JSON(r.status, gin.H{"ok": false, "error": err.Error(), "code": r.code})
			return
		}
	}
	applog.For(c.Request.Context(), h.log).Error("enrollment request failed", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "internal error"})
}

func pathID(c *gin.Context, msg string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": msg})
		return 0, false
	}
	return id, true
}
