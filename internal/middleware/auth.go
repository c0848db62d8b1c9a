package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"banco/internal/bizerror"
	"banco/internal/model"
	"banco/internal/security"
	"banco/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

const (
	AccessTokenCookie = "access_token"

	ctxUser       = "systemUser"
	ctxCustomerID = "customerID"
)

// UserLoader is the backend get_user lookup
type UserLoader interface {
	GetUser(ctx context.Context, id uuid.UUID) (*model.SystemUser, error)
}

// CustomerLoader looks up the online banking customer behind a session
type CustomerLoader interface {
	GetCustomer(ctx context.Context, id uuid.UUID) (*model.Customer, error)
}

type Auth struct {
	tokens    *security.TokenIssuer
	users     UserLoader
	customers CustomerLoader
	resolver  service.PermissionResolver
	perms     *cache.Cache
	secure    bool
}

// NewAuth builds the session middleware; role permissions are cached for ttl
func NewAuth(
	tokens *security.TokenIssuer,
	users UserLoader,
	customers CustomerLoader,
	resolver service.PermissionResolver,
	ttl time.Duration,
	secureCookies bool,
) *Auth {
	return &Auth{
		tokens:    tokens,
		users:     users,
		customers: customers,
		resolver:  resolver,
		perms:     cache.New(ttl, 2*ttl),
		secure:    secureCookies,
	}
}

// SetTokenCookie stores the access token as an HttpOnly cookie
func (a *Auth) SetTokenCookie(c *gin.Context, token string) {
	sameSite := http.SameSiteLaxMode
	if a.secure {
		// cross-origin frontend in production
		sameSite = http.SameSiteNoneMode
	}
	c.SetSameSite(sameSite)
	c.SetCookie(AccessTokenCookie, token, int(a.tokens.TTL().Seconds()), "/", "", a.secure, true)
}

func (a *Auth) ClearTokenCookie(c *gin.Context) {
	sameSite := http.SameSiteLaxMode
	if a.secure {
		sameSite = http.SameSiteNoneMode
	}
	c.SetSameSite(sameSite)
	c.SetCookie(AccessTokenCookie, "", -1, "/", "", a.secure, true)
}

// tokenFrom tries the cookie, then the Authorization header, then the websocket "token" query
func tokenFrom(c *gin.Context) string {
	if token, err := c.Cookie(AccessTokenCookie); err == nil && token != "" {
		return token
	}
	parts := strings.Split(c.GetHeader("Authorization"), " ")
	if len(parts) == 2 && parts[0] == "Bearer" {
		return parts[1]
	}
	if websocketUpgrade(c) {
		return c.Query("token")
	}
	return ""
}

func websocketUpgrade(c *gin.Context) bool {
	return strings.EqualFold(c.GetHeader("Upgrade"), "websocket")
}

func (a *Auth) claims(c *gin.Context, kind string) (*security.Claims, uuid.UUID, error) {
	raw := tokenFrom(c)
	if raw == "" {
		return nil, uuid.Nil, bizerror.ErrUnauthenticated
	}
	claims, err := a.tokens.Parse(raw)
	if err != nil || claims.Kind != kind {
		return nil, uuid.Nil, bizerror.ErrUnauthenticated
	}
	id, err := claims.UserID()
	if err != nil {
		return nil, uuid.Nil, bizerror.ErrUnauthenticated
	}
	return claims, id, nil
}

// RequireSystemUser validates the session and loads the current user
func (a *Auth) RequireSystemUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.loadUser(c) {
			return
		}
		c.Next()
	}
}

// RequirePermission lets the request through only when the user's role holds every listed permission
func (a *Auth) RequirePermission(required ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.loadUser(c) {
			return
		}
		user := CurrentUser(c)

		names, err := a.PermissionsForRole(c.Request.Context(), user.Role.Name)
		if err != nil {
			bizerror.HandleError(c, err)
			return
		}
		granted := make(map[string]bool, len(names))
		for _, n := range names {
			granted[n] = true
		}
		for _, p := range required {
			if !granted[p] {
				bizerror.HandleError(c, bizerror.ErrForbidden)
				return
			}
		}
		c.Next()
	}
}

// loadUser aborts unless the token names an active user. Blocked and inactive users
// lose access even while their token is still valid.
func (a *Auth) loadUser(c *gin.Context) bool {
	_, id, err := a.claims(c, security.KindSystemUser)
	if err != nil {
		bizerror.HandleError(c, err)
		return false
	}
	user, err := a.users.GetUser(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, bizerror.ErrNotFound) {
			err = bizerror.ErrUnauthenticated
		}
		bizerror.HandleError(c, err)
		return false
	}
	if user.Status != model.StatusActive || user.Role == nil {
		bizerror.HandleError(c, bizerror.ErrUnauthenticated)
		return false
	}

	c.Set(ctxUser, user)
	c.Request = c.Request.WithContext(service.WithActor(c.Request.Context(), user.ID))
	return true
}

// RequireCustomer validates an online banking session. Deactivated customers lose access
// even while their token is still valid.
func (a *Auth) RequireCustomer() gin.HandlerFunc {
	return func(c *gin.Context) {
		_, id, err := a.claims(c, security.KindCustomer)
		if err != nil {
			bizerror.HandleError(c, err)
			return
		}
		customer, err := a.customers.GetCustomer(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, bizerror.ErrNotFound) {
				err = bizerror.ErrUnauthenticated
			}
			bizerror.HandleError(c, err)
			return
		}
		if !customer.IsActive {
			bizerror.HandleError(c, bizerror.ErrUnauthenticated)
			return
		}
		c.Set(ctxCustomerID, customer.ID)
		c.Next()
	}
}

// PermissionsForRole returns the cached permission names of a role kind
func (a *Auth) PermissionsForRole(ctx context.Context, role model.RoleName) ([]string, error) {
	if cached, ok := a.perms.Get(string(role)); ok {
		return cached.([]string), nil
	}
	names, err := a.resolver.PermissionNamesForRole(ctx, role)
	if err != nil {
		return nil, err
	}
	a.perms.SetDefault(string(role), names)
	return names, nil
}

// InvalidateRole drops the cached permissions of role, or of every role when empty
func (a *Auth) InvalidateRole(role model.RoleName) {
	if role == "" {
		a.perms.Flush()
		return
	}
	a.perms.Delete(string(role))
}

func CurrentUser(c *gin.Context) *model.SystemUser {
	if v, ok := c.Get(ctxUser); ok {
		if user, ok := v.(*model.SystemUser); ok {
			return user
		}
	}
	return nil
}

func CurrentCustomerID(c *gin.Context) uuid.UUID {
	if v, ok := c.Get(ctxCustomerID); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}
