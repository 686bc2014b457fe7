package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
)

const (
	currentUserKey = "current_user"
	userKey        = "user"
)

// Claims issued by the identity provider. Roles are never read from the token.
type Claims struct {
	Email           string `json:"email"`
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	ProfileImageURL string `json:"profileImageUrl"`
	jwt.RegisteredClaims
}

// UserUpserter records the authenticated user and returns the stored row.
type UserUpserter interface {
	Upsert(ctx context.Context, user *models.User) (*models.User, error)
}

// Authenticator validates bearer tokens and resolves the caller.
type Authenticator struct {
	secret []byte
	issuer string
	users  UserUpserter
	logger *logging.LoggerV2
}

func NewAuthenticator(cfg config.AuthConfig, users UserUpserter) *Authenticator {
	return &Authenticator{
		secret: []byte(cfg.JWTSecret),
		issuer: cfg.Issuer,
		users:  users,
		logger: logging.NewLoggerV2("auth"),
	}
}

// RequireUser rejects requests without a valid token with 401.
func (a *Authenticator) RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c.Request)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		claims, err := a.parse(tokenString)
		if err != nil {
			a.logger.Debug("Rejected token", logging.Fields{"error": err.Error()})
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		user, err := a.users.Upsert(c.Request.Context(), &models.User{
			ID:              claims.Subject,
			Email:           claims.Email,
			FirstName:       claims.FirstName,
			LastName:        claims.LastName,
			ProfileImageURL: claims.ProfileImageURL,
		})
		if err != nil {
			a.logger.Error("Failed to upsert user", logging.Fields{
				"user_id": claims.Subject,
				"error":   err.Error(),
			})
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}

		SetCurrentUser(c, user)
		c.Next()
	}
}

// RequireAdmin must run after RequireUser.
func (a *Authenticator) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		current, ok := CurrentUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		if !current.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			return
		}
		c.Next()
	}
}

func (a *Authenticator) parse(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// bearerToken reads the Authorization header. Browsers cannot set headers on
// websocket upgrades, so those may pass the token as ?token=.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	if websocket.IsWebSocketUpgrade(r) {
		return r.URL.Query().Get("token")
	}
	return ""
}

// SetCurrentUser stores the resolved user on the gin context.
func SetCurrentUser(c *gin.Context, user *models.User) {
	c.Set(userKey, user)
	c.Set(currentUserKey, models.CurrentUser{ID: user.ID, Role: user.Role})
}

// CurrentUser returns the caller resolved by RequireUser.
func CurrentUser(c *gin.Context) (models.CurrentUser, bool) {
	v, ok := c.Get(currentUserKey)
	if !ok {
		return models.CurrentUser{}, false
	}
	u, ok := v.(models.CurrentUser)
	return u, ok
}

// User returns the stored user record resolved by RequireUser.
func User(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(userKey)
	if !ok {
		return nil, false
	}
	u, ok := v.(*models.User)
	return u, ok
}
