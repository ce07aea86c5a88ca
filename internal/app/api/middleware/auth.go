package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/fatflowers/roulette/pkg/logctx"
	"github.com/fatflowers/roulette/pkg/response"
)

const identityKey = "identity"

// Claims are the token fields the wheel understands; sub is the user id.
type Claims struct {
	Roles []string `json:"roles,omitempty"`
	Name  string   `json:"name,omitempty"`
	Email string   `json:"email,omitempty"`
	jwt.StandardClaims
}

type Identity struct {
	UserID string
	Roles  []string
	Name   string
	Email  string
}

func (i *Identity) HasRole(role string) bool {
	return i != nil && lo.Contains(i.Roles, role)
}

// IdentityFrom returns the caller set by AuthRequired.
func IdentityFrom(c *gin.Context) (*Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil, false
	}
	id, ok := v.(*Identity)
	return id, ok && id != nil
}

// ParseToken validates an HS256 token signed with secret.
func ParseToken(raw, secret string) (*Claims, error) {
	if secret == "" {
		return nil, errors.New("auth: jwt secret not configured")
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.Subject == "" {
		return nil, errors.New("auth: invalid token")
	}
	return claims, nil
}

// AuthRequired rejects requests without a valid bearer token and adds user_id
// to the request logger.
func AuthRequired(secret string, base *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.ErrorT[any](response.APIResponseCodeUnauthorized, nil))
			return
		}
		claims, err := ParseToken(raw, secret)
		if err != nil {
			logctx.FromGin(c, base).Infow("rejected token", "err", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.ErrorT[any](response.APIResponseCodeUnauthorized, nil))
			return
		}

		c.Set(identityKey, &Identity{UserID: claims.Subject, Roles: claims.Roles, Name: claims.Name, Email: claims.Email})
		c.Set(logctx.GinUserIDKey, claims.Subject)
		c.Request = c.Request.WithContext(logctx.WithUserID(c.Request.Context(), claims.Subject))
		setLogger(c, logctx.FromGin(c, base).With("user_id", claims.Subject))
		c.Next()
	}
}

// AdminRequired must run after AuthRequired.
func AdminRequired(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := IdentityFrom(c)
		if !id.HasRole(role) {
			c.AbortWithStatusJSON(http.StatusForbidden, response.ErrorT[any](response.APIResponseCodeForbidden, nil))
			return
		}
		c.Next()
	}
}
