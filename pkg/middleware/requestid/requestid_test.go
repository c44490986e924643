package requestid

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func serve(header string) (*httptest.ResponseRecorder, string) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	var seen string
	r.Use(Middleware())
	r.GET("/", func(c *gin.Context) {
		seen = Value(c)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(Header, header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w, seen
}

func TestMiddlewareReusesInboundID(t *testing.T) {
	w, seen := serve("edge-7f3a.1")
	assert.Equal(t, "edge-7f3a.1", seen)
	assert.Equal(t, "edge-7f3a.1", w.Header().Get(Header))
}

func TestMiddlewareReplacesMissingOrUnsafeID(t *testing.T) {
	for _, inbound := range []string{"", "bad id\r\nX-Evil: 1", strings.Repeat("a", maxLength+1)} {
		w, seen := serve(inbound)
		_, err := uuid.Parse(seen)
		assert.NoError(t, err, "inbound %q", inbound)
		assert.Equal(t, seen, w.Header().Get(Header))
	}
}

func TestValueWithoutMiddleware(t *testing.T) {
	assert.Empty(t, Value(nil))
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Empty(t, Value(c))
}
