package handlers

import (
	"net/http"

	"sciportfolio/internal/services"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type UserHandlers struct {
	users  services.UserService
	logger *zap.Logger
}

func NewUserHandlers(users services.UserService, logger *zap.Logger) *UserHandlers {
	return &UserHandlers{users: users, logger: logger}
}

// Me returns the authenticated caller
func (h *UserHandlers) Me(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return sendError(c, h.logger, err)
	}
	user, err := h.users.Get(c.Request().Context(), userID)
	if err != nil {
		return sendError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, user)
}
