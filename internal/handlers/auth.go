package handlers

import (
	"net/http"
	"strings"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/gin-gonic/gin"
	"github.com/ielts-practice/reading-service/internal/config"
	"github.com/ielts-practice/reading-service/internal/models"
	"github.com/ielts-practice/reading-service/internal/services"
	"github.com/ielts-practice/reading-service/internal/utils"
)

// NewCasdoorClient builds the Casdoor SDK client from service config.
func NewCasdoorClient(cfg *config.Config) *casdoorsdk.Client {
	return casdoorsdk.NewClient(
		cfg.CasdoorEndpoint,
		cfg.CasdoorClientID,
		cfg.CasdoorClientSecret,
		cfg.CasdoorCertificate,
		cfg.CasdoorOrganization,
		cfg.CasdoorApplication,
	)
}

// AuthMiddleware validates the Casdoor-issued bearer token and stores
// user_id and user_role in the request context. Handlers never see the
// token itself. The local user mirror is refreshed on every request,
// best-effort.
func AuthMiddleware(client *casdoorsdk.Client, users services.UserService, logger utils.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "Missing authorization header",
			})
			return
		}

		token := strings.TrimPrefix(header, "Bearer ")
		if token == header {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "Authorization header must use the Bearer scheme",
			})
			return
		}

		claims, err := client.ParseJwtToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "Invalid or expired token",
			})
			return
		}

		role := models.RoleUser
		if claims.IsAdmin {
			role = models.RoleAdmin
		}

		if users != nil {
			err := users.Sync(c.Request.Context(), &models.User{
				ID:       claims.Id,
				FullName: claims.Name,
				Email:    claims.Email,
				Role:     role,
				IsActive: true,
			})
			if err != nil {
				logger.Warn("Failed to sync user mirror", "user_id", claims.Id, "error", err)
			}
		}

		c.Set("user_id", claims.Id)
		c.Set("user_name", claims.Name)
		c.Set("user_role", string(role))
		c.Next()
	}
}

// GetMe returns the caller's mirrored account record.
func GetMe(users services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := users.GetByID(c.Request.Context(), c.GetString("user_id"))
		if err != nil {
			c.JSON(http.StatusNotFound, ErrorResponse{Message: "User not found"})
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

// AdminMiddleware rejects requests whose token did not carry the admin
// role. It must run after AuthMiddleware.
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString("user_role") != string(models.RoleAdmin) {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{
				Message: "Admin role required",
			})
			return
		}
		c.Next()
	}
}
