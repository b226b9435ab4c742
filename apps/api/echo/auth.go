package echoapi

import (
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/college/core"
	"github.com/trezcool/college/core/user"
)

const contextClaimsKey = "session"

// Claims represents the session claims transmitted via a JWT.
type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
	Role     string `json:"role"`
}

func (c *Claims) IsAdmin() bool   { return c.Role == user.RoleAdmin }
func (c *Claims) IsStudent() bool { return c.Role == user.RoleStudent }

type sessions struct {
	key        []byte
	issuer     string
	ttl        time.Duration
	cookieName string
	secure     bool
}

func newSessions(conf *core.Config) *sessions {
	return &sessions{
		key:        []byte(conf.SecretKey),
		issuer:     conf.AppName,
		ttl:        conf.Server.SessionExpirationDelta,
		cookieName: conf.Server.SessionCookie,
		secure:     !conf.Debug,
	}
}

// GenerateToken returns a signed session token for usr.
func GenerateToken(conf *core.Config, usr user.User) (string, error) {
	token, _, err := newSessions(conf).issue(usr)
	return token, err
}

func (s *sessions) issue(usr user.User) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(s.ttl)
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   usr.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Username: usr.Username,
		Role:     usr.Role,
	}
	ss, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, "signing token")
	}
	return ss, exp, nil
}

func (s *sessions) parse(token string) (*Claims, error) {
	claims := new(Claims)
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return s.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(s.issuer))
	if err != nil {
		return nil, err
	}
	return claims, nil
}

func (s *sessions) setCookie(ctx echo.Context, token string, exp time.Time) {
	ctx.SetCookie(&http.Cookie{
		Name:     s.cookieName,
		Value:    token,
		Path:     "/",
		Expires:  exp,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *sessions) clearCookie(ctx echo.Context) {
	ctx.SetCookie(&http.Cookie{
		Name:     s.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// middleware reads the session from the cookie, or from an `Authorization: Bearer` header.
func (s *sessions) middleware() echo.MiddlewareFunc {
	return middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
		KeyLookup: "header:" + echo.HeaderAuthorization + ":Bearer ,cookie:" + s.cookieName,
		Validator: func(token string, ctx echo.Context) (bool, error) {
			claims, err := s.parse(token)
			if err != nil {
				return false, err
			}
			ctx.Set(contextClaimsKey, claims)
			return true, nil
		},
		ErrorHandler: func(err error, ctx echo.Context) error {
			return errUnauthorized.WithInternal(err)
		},
	})
}

func getContextClaims(ctx echo.Context) (*Claims, error) {
	if claims, ok := ctx.Get(contextClaimsKey).(*Claims); ok {
		return claims, nil
	}
	return nil, errUnauthorized
}

// roleMiddleware only lets sessions with that role through.
func roleMiddleware(role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return err
			}
			if claims.Role != role {
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}
