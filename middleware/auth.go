package middleware

import (
	"net/http"
	"strings"
	"time"

	"restaurant-pos-api/config"
	"restaurant-pos-api/models"
	"restaurant-pos-api/statemachine"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

const (
	TokenTTL    = 12 * time.Hour
	tokenIssuer = "restaurant-pos-api"

	ctxUserID   = "userID"
	ctxUserName = "userName"
	ctxEmail    = "email"
	ctxRole     = "role"
)

// Claims carried by staff tokens.
type Claims struct {
	UserID uint            `json:"user_id"`
	Name   string          `json:"name"`
	Email  string          `json:"email"`
	Role   models.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// GenerateToken signs a staff token for user.
func GenerateToken(user *models.User) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: user.ID,
		Name:   user.Name,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   user.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(config.JWTSecret)
}

// ParseToken verifies signature, issuer and expiry.
func ParseToken(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return config.JWTSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, errors.Wrap(err, "parse token")
	}
	if !claims.Role.Valid() {
		return nil, errors.Errorf("token carries unknown role %q", claims.Role)
	}
	return claims, nil
}

func bearer(c *gin.Context) (string, bool) {
	h := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(h[len(prefix):]), true
}

// AuthRequired rejects requests without a valid bearer token and puts the
// caller's identity on the context.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearer(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required (Bearer <token>)"})
			return
		}
		claims, err := ParseToken(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}
		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxUserName, claims.Name)
		c.Set(ctxEmail, claims.Email)
		c.Set(ctxRole, string(claims.Role))
		c.Next()
	}
}

// ActiveAccount reloads the caller after AuthRequired so that a disabled
// account or a changed role takes effect before the token expires.
func ActiveAccount() gin.HandlerFunc {
	return func(c *gin.Context) {
		var user models.User
		err := config.DB.WithContext(c.Request.Context()).
			Select("id", "role", "active").
			First(&user, GetUserID(c)).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Account no longer exists"})
			return
		case err != nil:
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to load account"})
			return
		case !user.Active:
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Account is disabled"})
			return
		}
		c.Set(ctxRole, string(user.Role))
		c.Next()
	}
}

// RoleRequired lets through only callers holding one of roles.
func RoleRequired(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]bool, len(roles))
	names := make([]string, len(roles))
	for i, r := range roles {
		allowed[r] = true
		names[i] = string(r)
	}
	denied := "Access denied. Required role(s): " + strings.Join(names, ", ")

	return func(c *gin.Context) {
		role, ok := c.Get(ctxRole)
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Role not found in context"})
			return
		}
		if s, _ := role.(string); !allowed[models.UserRole(s)] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": denied})
			return
		}
		c.Next()
	}
}

func GetUserID(c *gin.Context) uint { return c.GetUint(ctxUserID) }

func GetUserName(c *gin.Context) string { return c.GetString(ctxUserName) }

func GetRole(c *gin.Context) models.UserRole { return models.UserRole(c.GetString(ctxRole)) }

// GetActor is the state machine actor for the caller's role.
func GetActor(c *gin.Context) statemachine.Actor {
	return statemachine.ActorForRole(GetRole(c))
}
