package middleware

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"sciportfolio/internal/common"
	"sciportfolio/internal/models"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// IdentityContextKey is the echo context key holding the verified models.Identity.
const IdentityContextKey = "identity"

// IdentityClaims are the token claims the service reads.
type IdentityClaims struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// JWTConfig selects how bearer tokens are verified. JWKSURL takes
// precedence over Secret.
type JWTConfig struct {
	Secret  string
	JWKSURL string
	Issuer  string
	Logger  *zap.Logger
}

// JWTAuth verifies bearer tokens and stores the caller's identity on the
// echo context. The returned close func releases the JWKS refresher.
func JWTAuth(cfg JWTConfig) (echo.MiddlewareFunc, func(), error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		keyFunc jwt.Keyfunc
		methods []string
		release = func() {}
	)
	switch {
	case cfg.JWKSURL != "":
		jwks, err := keyfunc.Get(cfg.JWKSURL, keyfunc.Options{
			RefreshInterval:   time.Hour,
			RefreshRateLimit:  5 * time.Minute,
			RefreshTimeout:    10 * time.Second,
			RefreshUnknownKID: true,
			RefreshErrorHandler: func(err error) {
				logger.Warn("jwks refresh failed", zap.String("url", cfg.JWKSURL), zap.Error(err))
			},
		})
		if err != nil {
			return nil, nil, fmt.Errorf("load jwks: %w", err)
		}
		keyFunc = jwks.Keyfunc
		methods = []string{"RS256", "RS384", "RS512", "ES256", "ES384", "ES512", "EdDSA"}
		release = jwks.EndBackground
	case cfg.Secret != "":
		secret := []byte(cfg.Secret)
		keyFunc = func(*jwt.Token) (interface{}, error) { return secret, nil }
		methods = []string{"HS256", "HS384", "HS512"}
	default:
		return nil, nil, errors.New("jwt auth needs a secret or a JWKS url")
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods(methods), jwt.WithExpirationRequired()}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	parser := jwt.NewParser(opts...)

	mw := echojwt.WithConfig(echojwt.Config{
		ParseTokenFunc: func(c echo.Context, auth string) (interface{}, error) {
			token, err := parser.ParseWithClaims(auth, &IdentityClaims{}, keyFunc)
			if err != nil {
				return nil, err
			}
			return token, nil
		},
		SuccessHandler: func(c echo.Context) {
			token, ok := c.Get("user").(*jwt.Token)
			if !ok {
				return
			}
			if claims, ok := token.Claims.(*IdentityClaims); ok {
				c.Set(IdentityContextKey, models.Identity{
					Subject: claims.Subject,
					Email:   claims.Email,
					Name:    claims.Name,
				})
			}
		},
		ErrorHandler: func(c echo.Context, err error) error {
			logger.Debug("rejected bearer token", zap.String("path", c.Path()), zap.Error(err))
			return common.SendUnauthorizedError(c)
		},
	})
	return mw, release, nil
}

// IdentityFromContext returns the identity stored by the auth middleware.
func IdentityFromContext(c echo.Context) (models.Identity, bool) {
	identity, ok := c.Get(IdentityContextKey).(models.Identity)
	return identity, ok && strings.TrimSpace(identity.Subject) != ""
}
