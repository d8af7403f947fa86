package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"voice-tutor-go/pkg/log"
	"voice-tutor-go/pkg/token"
)

const guestIDKey = "guest_id"

// GuestAuth 校验 /welcome/start 签发的访客 token，并把 guest_id 存入 Gin 上下文。
// jwtManager 为 nil 时不做任何校验。
// token 从 "Authorization: Bearer <token>" 读取；浏览器的 WebSocket 无法设置请求头，因此也接受 ?token=。
func GuestAuth(jwtManager *token.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if jwtManager == nil {
			c.Next()
			return
		}

		tokenString := c.Query("token")
		if authHeader := c.GetHeader("Authorization"); authHeader != "" {
			const bearerPrefix = "Bearer "
			if !strings.HasPrefix(authHeader, bearerPrefix) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "invalid authorization header"})
				return
			}
			tokenString = strings.TrimPrefix(authHeader, bearerPrefix)
		}
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "missing guest token"})
			return
		}

		claims, err := jwtManager.VerifyToken(tokenString)
		if err != nil {
			log.Warnf("[GuestAuth] token 校验失败: %v", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "invalid or expired guest token"})
			return
		}
		c.Set(guestIDKey, claims.GuestID)
		c.Next()
	}
}

// GuestIDFrom 返回 GuestAuth 存入的 guest_id；未启用校验时 ok 为 false。
func GuestIDFrom(c *gin.Context) (string, bool) {
	v, ok := c.Get(guestIDKey)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}
