package middleware

import (
	"context"
	"fmt"
	"strings"

	"sciportfolio/internal/common"
	"sciportfolio/internal/models"

	firebase "firebase.google.com/go/v4"
	firebaseauth "firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// IDTokenVerifier is satisfied by *firebaseauth.Client.
type IDTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*firebaseauth.Token, error)
}

// NewFirebaseVerifier initializes a Firebase app and returns its auth client.
// An empty credentialsFile uses application default credentials.
func NewFirebaseVerifier(ctx context.Context, projectID, credentialsFile string) (IDTokenVerifier, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	var conf *firebase.Config
	if projectID != "" {
		conf = &firebase.Config{ProjectID: projectID}
	}

	app, err := firebase.NewApp(ctx, conf, opts...)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase auth: %w", err)
	}
	return client, nil
}

// FirebaseAuth verifies Firebase ID tokens and stores the caller's identity.
func FirebaseAuth(verifier IDTokenVerifier, logger *zap.Logger) echo.MiddlewareFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			idToken, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return common.SendUnauthorizedError(c)
			}
			token, err := verifier.VerifyIDToken(c.Request().Context(), idToken)
			if err != nil {
				logger.Debug("rejected firebase token", zap.String("path", c.Path()), zap.Error(err))
				return common.SendUnauthorizedError(c)
			}
			c.Set(IdentityContextKey, models.Identity{
				Subject: token.UID,
				Email:   stringClaim(token.Claims, "email"),
				Name:    stringClaim(token.Claims, "name"),
			})
			return next(c)
		}
	}
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

func stringClaim(claims map[string]interface{}, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}
