package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"leaves-cms/internal/models"
	"leaves-cms/internal/repository"
)

const ViewerKey = "viewer"

// AuthMiddleware requires a valid bearer token and loads the viewer behind
// it into the context.
func AuthMiddleware(jwtSecret string, userRepo repository.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		viewer, err := viewerFromRequest(c, jwtSecret, userRepo)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			c.Abort()
			return
		}
		c.Set(ViewerKey, viewer)
		c.Next()
	}
}

// OptionalAuthMiddleware loads the viewer when a valid token is present and
// stays silent otherwise. Public routes use it so visibility bypass works
// for logged-in authors without locking anyone else out.
func OptionalAuthMiddleware(jwtSecret string, userRepo repository.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		if viewer, err := viewerFromRequest(c, jwtSecret, userRepo); err == nil {
			c.Set(ViewerKey, viewer)
		}
		c.Next()
	}
}

func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		viewer := Viewer(c)
		if !viewer.IsSuperuser() {
			c.JSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// Viewer returns the authenticated user for this request, or nil.
func Viewer(c *gin.Context) *models.User {
	if value, exists := c.Get(ViewerKey); exists {
		if viewer, ok := value.(*models.User); ok {
			return viewer
		}
	}
	return nil
}

func viewerFromRequest(c *gin.Context, jwtSecret string, userRepo repository.UserRepository) (*models.User, error) {
	authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
	if authHeader == "" {
		return nil, fmt.Errorf("authorization credentials required")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, fmt.Errorf("invalid authorization header format")
	}
	tokenString := strings.TrimSpace(parts[1])

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(jwtSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}
	userID, ok := claims["user_id"].(float64)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}

	viewer, err := userRepo.GetByID(uint(userID))
	if err != nil {
		return nil, fmt.Errorf("unknown user")
	}
	return viewer, nil
}
