package handlers

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/centrohq/centro/services"
)

// AuthMiddleware resolves the acting user once per request, from either a
// bearer JWT or an API key, and stores the resolved user id on the context.
// Handlers never re-parse credentials.
type AuthMiddleware struct {
	JWTSecret   string
	UserService *services.UserService
	APIKeys     *services.APIKeyService
}

func NewAuthMiddleware(jwtSecret string, userService *services.UserService, apiKeys *services.APIKeyService) *AuthMiddleware {
	if jwtSecret == "" {
		log.Fatal("Missing JWT_SECRET configuration")
	}
	return &AuthMiddleware{JWTSecret: jwtSecret, UserService: userService, APIKeys: apiKeys}
}

// RequireAuth validates the Authorization header and populates user_id and
// subject on the gin context.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required"})
			c.Abort()
			return
		}
		token, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header must be a Bearer token"})
			c.Abort()
			return
		}

		// API keys carry their own prefix; everything else is a JWT.
		if strings.HasPrefix(token, "ck_") {
			userID, err := m.APIKeys.Authenticate(c.Request.Context(), token)
			if err != nil {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
				c.Abort()
				return
			}
			c.Set("user_id", userID)
			c.Set("is_api_key", true)
			c.Next()
			return
		}

		claims, err := m.parseToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		principal := services.Principal{
			Subject:   claims.Subject,
			Name:      claims.Name,
			Email:     claims.Email,
			AvatarURL: claims.Picture,
		}
		user, err := m.UserService.Store(c.Request.Context(), principal)
		if err != nil {
			log.Printf("auth: user sync failed for subject %s: %v", claims.Subject, err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Failed to resolve user"})
			c.Abort()
			return
		}

		c.Set("user_id", user.ID)
		c.Set("subject", claims.Subject)
		c.Next()
	}
}

type tokenClaims struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture"`
	jwt.RegisteredClaims
}

func (m *AuthMiddleware) parseToken(token string) (*tokenClaims, error) {
	claims := &tokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(m.JWTSecret), nil
	})
	if err != nil {
		return nil, err
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// actorID returns the resolved user id for the request.
func actorID(c *gin.Context) string {
	return c.GetString("user_id")
}
