package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"campus-records/pkg/response"
)

// HeaderRequestID 请求追踪 ID 头
const HeaderRequestID = "X-Request-ID"

// requestIDMaxLen 外部传入的 Request-ID 最大长度，超出则重新生成
const requestIDMaxLen = 64

// RequestID 请求追踪 ID 中间件
// 优先沿用上游传入的 X-Request-ID（仅接受可打印 ASCII），否则生成 UUID
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(HeaderRequestID)
		if !validRequestID(rid) {
			rid = uuid.NewString()
		}

		c.Set(response.RequestIDKey, rid)
		c.Header(HeaderRequestID, rid)

		c.Next()
	}
}

func validRequestID(rid string) bool {
	if rid == "" || len(rid) > requestIDMaxLen {
		return false
	}
	for i := 0; i < len(rid); i++ {
		if rid[i] < 0x21 || rid[i] > 0x7e {
			return false
		}
	}
	return true
}
