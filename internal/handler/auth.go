package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"example.com/craftshop/pkg/config"
	"example.com/craftshop/pkg/jwt"
	"example.com/craftshop/pkg/logger"
)

// TokenIssuer — интерфейс выдачи и отзыва JWT токенов.
// Позволяет мокировать jwt.Manager в тестах.
type TokenIssuer interface {
	GenerateTokenPair(adminID, role string) (*jwt.TokenPair, error)
	ValidateToken(tokenString string) (*jwt.Claims, error)
	Blacklist() *jwt.Blacklist
}

// AuthHandler — обработчик аутентификации администратора.
// Учётные данные администратора задаются конфигурацией (bcrypt hash пароля).
type AuthHandler struct {
	tokens TokenIssuer
	cfg    config.ShopConfig
}

// NewAuthHandler создаёт обработчик аутентификации.
func NewAuthHandler(tokens TokenIssuer, cfg config.ShopConfig) *AuthHandler {
	return &AuthHandler{tokens: tokens, cfg: cfg}
}

// LoginRequest — запрос на вход администратора.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse — ответ на вход.
type LoginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
}

// Login аутентифицирует администратора.
// POST /api/v1/admin/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	ctx := c.Request.Context()
	log := logger.FromContext(ctx)

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Debug().Err(err).Msg("Невалидный запрос на вход")
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Невалидные данные запроса",
		})
		return
	}

	// Единый ответ для неверного email и неверного пароля
	if !strings.EqualFold(req.Email, h.cfg.AdminEmail) ||
		bcrypt.CompareHashAndPassword([]byte(h.cfg.AdminPasswordHash), []byte(req.Password)) != nil {
		log.Warn().Str("email", req.Email).Msg("Неудачная попытка входа администратора")
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "Неверный email или пароль",
		})
		return
	}

	pair, err := h.tokens.GenerateTokenPair(h.cfg.AdminEmail, jwt.RoleAdmin)
	if err != nil {
		log.Error().Err(err).Msg("Ошибка генерации токенов")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Внутренняя ошибка сервера",
		})
		return
	}

	log.Info().Str("email", req.Email).Msg("Администратор вошёл в систему")

	c.JSON(http.StatusOK, LoginResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    pair.ExpiresAt,
	})
}

// Logout отзывает текущий токен администратора через blacklist.
// POST /api/v1/admin/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	ctx := c.Request.Context()
	log := logger.FromContext(ctx)

	token := bearerToken(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "Отсутствует токен авторизации",
		})
		return
	}

	claims, err := h.tokens.ValidateToken(token)
	if err != nil {
		log.Debug().Err(err).Msg("Logout с невалидным токеном")
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "Токен недействителен",
		})
		return
	}

	if bl := h.tokens.Blacklist(); bl != nil && claims.ExpiresAt != nil {
		if err := bl.Add(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
			log.Error().Err(err).Msg("Ошибка добавления токена в blacklist")
			c.JSON(http.StatusInternalServerError, ErrorResponse{
				Error:   "internal_error",
				Message: "Внутренняя ошибка сервера",
			})
			return
		}
	}

	log.Info().Str("admin_id", claims.AdminID).Msg("Администратор вышел из системы")

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// bearerToken извлекает токен из заголовка Authorization.
func bearerToken(c *gin.Context) string {
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
