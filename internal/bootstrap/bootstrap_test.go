package bootstrap_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/portalacademico/portal-backend/config"
	"github.com/portalacademico/portal-backend/internal/api/http/routes"
	"github.com/portalacademico/portal-backend/internal/auth"
	"github.com/portalacademico/portal-backend/internal/bootstrap"
	"github.com/portalacademico/portal-backend/internal/catalog/cache"
	cataloghttp "github.com/portalacademico/portal-backend/internal/catalog/http"
	catalogsvc "github.com/portalacademico/portal-backend/internal/catalog/service"
	enrollhttp "github.com/portalacademico/portal-backend/internal/enrollment/http"
	enrollsvc "github.com/portalacademico/portal-backend/internal/enrollment/service"
	"github.com/portalacademico/portal-backend/internal/storage"
	"github.com/portalacademico/portal-backend/internal/storage/memory"
)

func TestOpenRedis(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client, err := bootstrap.OpenRedis(ctx, config.RedisConfig{Host: mr.Host(), Port: mustPort(t, mr)})
	require.NoError(t, err)
	defer client.Close()
	assert.NoError(t, client.Ping(ctx).Err())

	client2, err := bootstrap.OpenRedis(ctx, config.RedisConfig{URL: "redis://" + mr.Addr() + "/0"})
	require.NoError(t, err)
	client2.Close()
}

func TestOpenRedis_Unreachable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	_, err = bootstrap.OpenRedis(context.Background(), config.RedisConfig{
		URL:         "redis://" + addr,
		DialTimeout: 200 * time.Millisecond,
	})
	assert.Error(t, err)

	_, err = bootstrap.OpenRedis(context.Background(), config.RedisConfig{URL: "://bad"})
	assert.Error(t, err)
}

func mustPort(t *testing.T, mr *miniredis.Miniredis) int {
	t.Helper()
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)
	return port
}

func TestOpenDB_RequiresDSN(t *testing.T) {
	_, err := bootstrap.OpenDB(context.Background(), bootstrap.DBOptions{})
	assert.Error(t, err)
}

func newRouter(t *testing.T, store *memory.Store, timeout time.Duration) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zaptest.NewLogger(t)

	cat := catalogsvc.NewCatalogService(store, cache.Noop{}, 0, log)
	return bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName:    "portal-academico",
		Version:        "test",
		Log:            log,
		Store:          store,
		RequestTimeout: timeout,
		V1: routes.V1Deps{
			Catalog: cataloghttp.New(cat, catalogsvc.NewCourseAdminService(store, cat, log), log),
			Enrollment: enrollhttp.New(
				enrollsvc.NewAdmissionEngine(store, log),
				enrollsvc.NewConfirmationWorkflow(store, log),
				enrollsvc.NewEnrollmentQuery(store),
				log,
			),
			Auth:            auth.Options{HeaderIdentity: true},
			CoordinatorRole: "coordinator",
		},
	})
}

func TestBuildRouter(t *testing.T) {
	store := memory.New()
	require.NoError(t, store.Seed(context.Background()))
	r := newRouter(t, store, 0)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"cache":"disabled"`)
	assert.NotEmpty(t, rr.Header().Get("X-Request-Id"))

	rr = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/catalog/courses", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestBuildRouter_RequestTimeoutReleasesBlockedEnroll(t *testing.T) {
	store := memory.New()
	require.NoError(t, store.Seed(context.Background()))
	r := newRouter(t, store, 100*time.Millisecond)

	held := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = store.Atomically(context.Background(), storage.Scope{CourseID: 1}, func(storage.Queries) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held
	defer func() {
		close(release)
		<-done
	}()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/catalog/courses/1/enrollments", nil)
	req.Header.Set("X-User-Id", "alice")
	rr := httptest.NewRecorder()

	start := time.Now()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Less(t, time.Since(start), 2*time.Second)

	list, err := store.ListEnrollments(context.Background(), storage.EnrollmentFilter{CourseID: 1})
	require.NoError(t, err)
	assert.Empty(t, list, "a timed out enroll leaves nothing behind")
}

func TestSetGinMode(t *testing.T) {
	defer gin.SetMode(gin.TestMode)

	bootstrap.SetGinMode(&config.Config{App: config.AppConfig{Environment: "production"}})
	assert.Equal(t, gin.ReleaseMode, gin.Mode())
}
