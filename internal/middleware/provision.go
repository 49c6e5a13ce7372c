package middleware

import (
	"sciportfolio/internal/common"
	"sciportfolio/internal/logging"
	"sciportfolio/internal/services"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ProvisionUser resolves the verified identity to a user row, creating it
// on first sign-in, and stores the user id on the request context.
func ProvisionUser(users services.UserService, logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity, ok := IdentityFromContext(c)
			if !ok {
				return common.SendUnauthorizedError(c)
			}
			user, err := users.Provision(c.Request().Context(), identity)
			if err != nil {
				return common.SendServiceError(c, logging.FromContext(c.Request().Context(), logger), err)
			}
			ctx := common.WithUserID(c.Request().Context(), user.ID)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}
