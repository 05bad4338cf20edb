package requestid

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, Value(c)+"|"+FromContext(c.Request.Context()))
	})

	cases := []struct {
		name    string
		inbound string
		reused  bool
	}{
		{"generated when absent", "", false},
		{"reused when valid", "trace-42.a:b", true},
		{"replaced when too long", strings.Repeat("a", 129), false},
		{"replaced when unsafe", "abc\r\nSet-Cookie: x", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.inbound != "" {
				req.Header.Set(Header, tc.inbound)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			id := w.Header().Get(Header)
			assert.NotEmpty(t, id)
			assert.Equal(t, id+"|"+id, w.Body.String())
			if tc.reused {
				assert.Equal(t, tc.inbound, id)
			} else {
				assert.NotEqual(t, tc.inbound, id)
				assert.Len(t, id, 36)
			}
		})
	}
}
