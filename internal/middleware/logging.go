package middleware

import (
	"bytes"
	"io"
	"time"

	"support-chat-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// 请求/响应体在日志中最多保留的字节数
const maxLoggedBody = 2048

// bodyLogWriter 用于捕获响应体
type bodyLogWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

// Write 实现了 io.Writer 接口，将响应写入 gin.ResponseWriter 和一个内部的 buffer
func (w bodyLogWriter) Write(b []byte) (int, error) {
	if room := maxLoggedBody - w.body.Len(); room > 0 {
		if len(b) < room {
			room = len(b)
		}
		w.body.Write(b[:room])
	}
	return w.ResponseWriter.Write(b)
}

type readCloser struct {
	io.Reader
	io.Closer
}

// RequestLogger 是一个 Gin 中间件，记录每个 UI 请求的状态、耗时和截断后的请求/响应体。
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		// 只读取日志需要的前缀，再把前缀和剩余部分拼回 c.Request.Body
		var requestBody []byte
		if body := c.Request.Body; body != nil {
			requestBody, _ = io.ReadAll(io.LimitReader(body, maxLoggedBody+1))
			c.Request.Body = readCloser{Reader: io.MultiReader(bytes.NewReader(requestBody), body), Closer: body}
		}

		blw := &bodyLogWriter{body: bytes.NewBufferString(""), ResponseWriter: c.Writer}
		c.Writer = blw

		c.Next()

		log.Infow("HTTP Request Log",
			"statusCode", c.Writer.Status(),
			"latency", time.Since(startTime).String(),
			"clientIP", c.ClientIP(),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"requestBody", truncate(requestBody),
			"responseBody", blw.body.String(),
		)
	}
}

func truncate(b []byte) string {
	if len(b) > maxLoggedBody {
		return string(b[:maxLoggedBody]) + "…"
	}
	return string(b)
}
