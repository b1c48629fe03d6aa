package middleware

import (
	"net/http"
	"strings"
	"time"

	"zyllen/internal/auth"
	"zyllen/internal/model"
	"zyllen/internal/service"
	"zyllen/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Context keys set by Authenticate
const (
	ClaimsKey = "claims"
	ActorKey  = "actor"
)

const (
	accessCookie  = "access_token"
	refreshCookie = "refresh_token"
)

// Gate authenticates requests and enforces screen.action permissions
type Gate struct {
	tokens *auth.TokenManager
	perms  service.PermissionResolver
	secure bool
	log    *zap.Logger
}

// NewGate builds the gate. secure marks the session cookies Secure + SameSite=None.
func NewGate(tokens *auth.TokenManager, perms service.PermissionResolver, secure bool, log *zap.Logger) *Gate {
	if log == nil {
		log = zap.NewNop()
	}
	return &Gate{tokens: tokens, perms: perms, secure: secure, log: log.Named("gate")}
}

// Authenticate validates the access token from the Authorization header or the access_token cookie
func (g *Gate) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authorization is missing"))
			return
		}

		claims, err := g.tokens.Parse(tokenString, auth.TypeAccess)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token"))
			return
		}

		userID, err := uuid.Parse(claims.Subject)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token claims"))
			return
		}

		c.Set(ClaimsKey, claims)
		c.Set(ActorKey, &service.Actor{ID: userID, Kind: claims.Kind, Name: claims.Name})
		c.Next()
	}
}

// RequireInternal rejects portal tokens
func (g *Gate) RequireInternal() gin.HandlerFunc {
	return g.RequireKind(model.KindInternal)
}

// RequireKind rejects tokens whose user kind differs from kind
func (g *Gate) RequireKind(kind string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := ClaimsFrom(c)
		if claims == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authorization is missing"))
			return
		}
		if claims.Kind != kind {
			c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: wrong user type"))
			return
		}
		c.Next()
	}
}

// RequirePermission passes only internal users whose role holds every listed code
func (g *Gate) RequirePermission(codes ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := ClaimsFrom(c)
		if claims == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authorization is missing"))
			return
		}
		if claims.Kind != model.KindInternal {
			c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: wrong user type"))
			return
		}

		roleID, err := uuid.Parse(claims.RoleID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Role not found in token"))
			return
		}

		held, err := g.perms.PermissionsForRole(c.Request.Context(), roleID)
		if err != nil {
			g.log.Error("failed to resolve permissions", zap.String("role_id", claims.RoleID), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to verify permissions"))
			return
		}

		set := make(map[string]bool, len(held))
		for _, p := range held {
			set[p] = true
		}
		for _, required := range codes {
			if !set[required] {
				c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: missing permission '"+required+"'"))
				return
			}
		}

		c.Next()
	}
}

// SetTokenCookies sets access_token and refresh_token as HttpOnly cookies
func (g *Gate) SetTokenCookies(c *gin.Context, pair *auth.TokenPair) {
	g.sameSite(c)
	c.SetCookie(accessCookie, pair.AccessToken, maxAge(pair.AccessExpiresAt), "/", "", g.secure, true)
	c.SetCookie(refreshCookie, pair.RefreshToken, maxAge(pair.RefreshExpiresAt), "/", "", g.secure, true)
}

// ClearTokenCookies removes access_token and refresh_token cookies
func (g *Gate) ClearTokenCookies(c *gin.Context) {
	g.sameSite(c)
	c.SetCookie(accessCookie, "", -1, "/", "", g.secure, true)
	c.SetCookie(refreshCookie, "", -1, "/", "", g.secure, true)
}

func (g *Gate) sameSite(c *gin.Context) {
	// cross-origin frontends need None, which browsers only accept on Secure cookies
	if g.secure {
		c.SetSameSite(http.SameSiteNoneMode)
	} else {
		c.SetSameSite(http.SameSiteLaxMode)
	}
}

// RefreshCookie returns the refresh token cookie, if any
func RefreshCookie(c *gin.Context) string {
	v, _ := c.Cookie(refreshCookie)
	return v
}

// ActorFrom returns the authenticated caller, or nil outside Authenticate
func ActorFrom(c *gin.Context) *service.Actor {
	v, ok := c.Get(ActorKey)
	if !ok {
		return nil
	}
	actor, _ := v.(*service.Actor)
	return actor
}

// ClaimsFrom returns the verified token claims, or nil outside Authenticate
func ClaimsFrom(c *gin.Context) *auth.Claims {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*auth.Claims)
	return claims
}

func bearerToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	token, err := c.Cookie(accessCookie)
	if err != nil {
		return ""
	}
	return token
}

func maxAge(exp time.Time) int {
	return int(time.Until(exp).Seconds())
}
