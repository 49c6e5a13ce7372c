package handlers

import (
	"context"
	"net/http"

	"sciportfolio/internal/analytics"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type DashboardProvider interface {
	Dashboard(ctx context.Context, userID uuid.UUID) (*analytics.Dashboard, error)
}

type DashboardHandlers struct {
	analytics DashboardProvider
	logger    *zap.Logger
}

func NewDashboardHandlers(provider DashboardProvider, logger *zap.Logger) *DashboardHandlers {
	return &DashboardHandlers{analytics: provider, logger: logger}
}

func (h *DashboardHandlers) GetDashboard(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return sendError(c, h.logger, err)
	}
	dashboard, err := h.analytics.Dashboard(c.Request().Context(), userID)
	if err != nil {
		return sendError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, dashboard)
}
