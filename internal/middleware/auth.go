package middleware

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AuthMiddleware 认证中间件
// 带有效 JWT 时取其中的用户标识，否则分配匿名标识，不拦截请求
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			tokenText := strings.TrimPrefix(authHeader, "Bearer ")
			if userID, err := parseUserID(tokenText, secret); err == nil {
				c.Set("user_id", userID)
				c.Next()
				return
			}
		}

		userID := c.GetHeader("X-User-ID")
		if userID == "" {
			userID = uuid.New().String()
		}
		c.Set("user_id", userID)
		c.Next()
	}
}

func parseUserID(tokenText, secret string) (string, error) {
	token, err := jwt.Parse(tokenText, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return "", fmt.Errorf("invalid token: %w", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("unexpected claims type")
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", fmt.Errorf("token has no subject")
	}
	return sub, nil
}
