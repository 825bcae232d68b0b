package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func schedulerRouter(secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/jobs/test", SchedulerSecretMiddleware(secret), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func trigger(r *gin.Engine, path, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSchedulerSecretQueryParam(t *testing.T) {
	r := schedulerRouter("s3cret")

	require.Equal(t, http.StatusOK, trigger(r, "/jobs/test?secret=s3cret", "").Code)
	require.Equal(t, http.StatusUnauthorized, trigger(r, "/jobs/test?secret=wrong", "").Code)
	require.Equal(t, http.StatusUnauthorized, trigger(r, "/jobs/test", "").Code)
}

func TestSchedulerSecretBearer(t *testing.T) {
	r := schedulerRouter("s3cret")

	require.Equal(t, http.StatusOK, trigger(r, "/jobs/test", "s3cret").Code)
	require.Equal(t, http.StatusUnauthorized, trigger(r, "/jobs/test", "nope").Code)
}

func TestSchedulerSecretEmptyConfigRejectsAll(t *testing.T) {
	// An unset secret must close the destructive routes, not open them
	r := schedulerRouter("")

	require.Equal(t, http.StatusUnauthorized, trigger(r, "/jobs/test", "").Code)
	require.Equal(t, http.StatusUnauthorized, trigger(r, "/jobs/test?secret=", "").Code)
}
