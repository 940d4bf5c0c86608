package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/portalacademico/portal-backend/internal/catalog/domain"
	applog "github.com/portalacademico/portal-backend/internal/logger"
)

// ListCourses returns active courses, optionally filtered.
func (h *Handler) ListCourses(c *gin.Context) {
	f, err := parseFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
		return
	}

	courses, err := h.catalog.Search(c.Request.Context(), f)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "courses": courses})
}

// GetCourse returns one active course.
func (h *Handler) GetCourse(c *gin.Context) {
	id, ok := courseID(c)
	if !ok {
		return
	}

	course, err := h.catalog.GetCourse(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "course": course})
}

func (h *Handler) AdminListCourses(c *gin.Context) {
	courses, err := h.admin.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "courses": courses})
}

func (h *Handler) CreateCourse(c *gin.Context) {
	var in domain.CourseInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid request body"})
		return
	}

	course, err := h.admin.Create(c.Request.Context(), in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "course": course})
}

func (h *Handler) UpdateCourse(c *gin.Context) {
	id, ok := courseID(c)
	if !ok {
		return
	}
	var in domain.CourseInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid request body"})
		return
	}

	course, err := h.admin.Update(c.Request.Context(), id, in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "course": course})
}

func (h *Handler) DeactivateCourse(c *gin.Context) {
	id, ok := courseID(c)
	if !ok {
		return
	}

	changed, err := h.admin.Deactivate(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "changed": changed})
}

func (h *Handler) InvalidateCatalog(c *gin.Context) {
	h.catalog.Invalidate(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrCourseNotFound):
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "course not found"})
	case errors.Is(err, domain.ErrDuplicateCode):
		c.JSON(http.StatusConflict, gin.H{"ok": false, "error": err.Error()})
	case errors.Is(err, domain.ErrInvalidCourse), errors.Is(err, domain.ErrInvalidFilter):
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
	default:
		applog.For(c.Request.Context(), h.log).Error("catalog request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "internal error"})
	}
}

func courseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid course id"})
		return 0, false
	}
	return id, true
}

func parseFilter(c *gin.Context) (domain.Filter, error) {
	f := domain.Filter{Query: strings.TrimSpace(c.Query("q"))}

	ints := []struct {
		param string
		dst   **int
	}{
		{"credits_min", &f.CreditsMin},
		{"credits_max", &f.CreditsMax},
	}
	for _, p := range ints {
		raw := strings.TrimSpace(c.Query(p.param))
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return domain.Filter{}, errors.New(p.param + " must be an integer")
		}
		*p.dst = &v
	}

	times := []struct {
		param string
		dst   **domain.TimeOfDay
	}{
		{"start_from", &f.StartFrom},
		{"end_until", &f.EndUntil},
	}
	for _, p := range times {
		raw := strings.TrimSpace(c.Query(p.param))
		if raw == "" {
			continue
		}
		v, err := domain.ParseTimeOfDay(raw)
		if err != nil {
			return domain.Filter{}, errors.New(p.param + " must be HH:MM")
		}
		*p.dst = &v
	}

	return f, nil
}
