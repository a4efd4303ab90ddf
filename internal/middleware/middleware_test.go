package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"support-chat-go/pkg/log"
	"support-chat-go/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuthRouter(m *token.JWTManager) *gin.Engine {
	r := gin.New()
	r.Use(AuthMiddleware(m))
	r.GET("/ping", func(c *gin.Context) {
		claims := c.MustGet("claims").(*token.CustomClaims)
		c.String(http.StatusOK, claims.Subject)
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	m := token.NewJWTManager("secret", 1, time.Minute)
	uiToken, err := m.GenerateUIToken("browser")
	require.NoError(t, err)
	streamToken, err := m.GenerateStreamToken("browser")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"garbage", "Bearer nope", http.StatusUnauthorized},
		{"stream token", "Bearer " + streamToken, http.StatusUnauthorized},
		{"valid", "Bearer " + uiToken, http.StatusOK},
	}
	r := newAuthRouter(m)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, "browser", w.Body.String())
			}
		})
	}
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	log.SetLogger(zap.New(core))
	t.Cleanup(func() { log.SetLogger(zap.NewNop()) })

	r := gin.New()
	r.Use(RequestLogger())
	r.POST("/echo", func(c *gin.Context) {
		body, _ := c.GetRawData()
		c.String(http.StatusCreated, strings.ToUpper(string(body)))
	})

	req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader("hello"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "HELLO", w.Body.String(), "handler still sees the request body")
	entries := logs.FilterMessage("HTTP Request Log").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.EqualValues(t, http.StatusCreated, fields["statusCode"])
	assert.Equal(t, "hello", fields["requestBody"])
	assert.Equal(t, "HELLO", fields["responseBody"])
}

// countingReader 记录被读取的字节数
type countingReader struct {
	r    io.Reader
	read int
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.read += n
	return n, err
}

func TestRequestLogger_LargeBodyIsNotBuffered(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	log.SetLogger(zap.New(core))
	t.Cleanup(func() { log.SetLogger(zap.NewNop()) })

	large := strings.Repeat("x", 1<<20)
	body := &countingReader{r: strings.NewReader(large)}
	var readBeforeHandler int

	r := gin.New()
	r.Use(RequestLogger())
	r.POST("/upload", func(c *gin.Context) {
		readBeforeHandler = body.read
		data, _ := c.GetRawData()
		c.String(http.StatusOK, "%d", len(data))
	})

	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.LessOrEqual(t, readBeforeHandler, maxLoggedBody+1)
	assert.Equal(t, strconv.Itoa(len(large)), w.Body.String(), "handler still sees the full body")

	entries := logs.FilterMessage("HTTP Request Log").All()
	require.Len(t, entries, 1)
	logged := entries[0].ContextMap()["requestBody"].(string)
	assert.True(t, strings.HasSuffix(logged, "…"))
	assert.Len(t, logged, maxLoggedBody+len("…"))
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("a", maxLoggedBody+10)
	got := truncate([]byte(long))
	assert.True(t, strings.HasSuffix(got, "…"))
	assert.Equal(t, "short", truncate([]byte("short")))
}
