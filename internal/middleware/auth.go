package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"example.com/craftshop/pkg/jwt"
	"example.com/craftshop/pkg/logger"
)

// Ключи Gin context, устанавливаемые после аутентификации.
const (
	ContextAdminID = "admin_id"
	ContextRole    = "role"
	ContextJTI     = "jti"
)

// TokenValidator — интерфейс валидации токенов.
// Позволяет мокировать jwt.Manager в тестах.
type TokenValidator interface {
	ValidateWithBlacklist(ctx context.Context, tokenString string) (*jwt.Claims, error)
}

// AdminAuth — middleware аутентификации администратора.
// Проверяет подпись, срок действия, blacklist и роль admin.
type AdminAuth struct {
	validator TokenValidator
}

// NewAdminAuth создаёт middleware аутентификации администратора.
func NewAdminAuth(validator TokenValidator) *AdminAuth {
	return &AdminAuth{validator: validator}
}

// Handle возвращает Gin handler function для middleware.
func (m *AdminAuth) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		log := logger.FromContext(ctx)

		token := extractBearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Требуется авторизация",
			})
			return
		}

		claims, err := m.validator.ValidateWithBlacklist(ctx, token)
		if err != nil {
			log.Warn().Err(err).Msg("Ошибка валидации токена администратора")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Токен недействителен",
			})
			return
		}

		if claims.Role != jwt.RoleAdmin {
			log.Warn().
				Str("admin_id", claims.AdminID).
				Str("role", claims.Role).
				Msg("Попытка доступа к админ-операции без роли admin")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "forbidden",
				"message": "Недостаточно прав",
			})
			return
		}

		c.Set(ContextAdminID, claims.AdminID)
		c.Set(ContextRole, claims.Role)
		c.Set(ContextJTI, claims.ID)

		log.Debug().Str("admin_id", claims.AdminID).Msg("Администратор аутентифицирован")
		c.Next()
	}
}

// extractBearerToken извлекает токен из заголовка Authorization.
func extractBearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
