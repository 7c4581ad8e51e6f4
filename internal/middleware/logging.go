package middleware

import (
	"bytes"
	"io"
	"net/url"
	"strings"
	"time"

	"personal-site-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// maxLoggedBody 限制写入日志的请求/响应体长度。
const maxLoggedBody = 2048

var sensitiveFields = []string{"password", "g-recaptcha-response"}

// bodyLogWriter 用于捕获响应体
type bodyLogWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

// Write 实现了 io.Writer 接口，将响应写入 gin.ResponseWriter 和一个内部的 buffer
func (w bodyLogWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// RequestLogger 是一个 Gin 中间件，用于记录请求和响应日志。
// multipart 请求体不记录，表单中的密码等字段会被掩码。
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		var requestBody string
		if c.Request.Body != nil && !strings.HasPrefix(c.ContentType(), "multipart/") {
			raw, _ := io.ReadAll(c.Request.Body)
			// 将读取的请求体重新设置回去，以便后续处理函数可以正常读取
			c.Request.Body = io.NopCloser(bytes.NewBuffer(raw))
			requestBody = maskBody(c.ContentType(), raw)
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
			"responseBody", truncate(blw.body.String()),
		)
	}
}

// maskBody 对 urlencoded 表单中的敏感字段打码。
func maskBody(contentType string, raw []byte) string {
	if contentType != "application/x-www-form-urlencoded" {
		return string(raw)
	}
	values, err := url.ParseQuery(string(raw))
	if err != nil {
		return ""
	}
	for _, field := range sensitiveFields {
		if _, ok := values[field]; ok {
			values.Set(field, "***")
		}
	}
	return values.Encode()
}

func truncate(s string) string {
	if len(s) > maxLoggedBody {
		return s[:maxLoggedBody] + "..."
	}
	return s
}
