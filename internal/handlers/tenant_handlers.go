package handlers

import (
	"net/http"

	"sciportfolio/internal/common"
	"sciportfolio/internal/services"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// TenantHandlers handles tenant (occupant) requests
type TenantHandlers struct {
	tenants services.TenantService
	logger  *zap.Logger
}

func NewTenantHandlers(tenants services.TenantService, logger *zap.Logger) *TenantHandlers {
	return &TenantHandlers{tenants: tenants, logger: logger}
}

func (h *TenantHandlers) ListTenants(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return sendError(c, h.logger, err)
	}
	limit, offset, err := common.Pagination(c)
	if err != nil {
		return sendError(c, h.logger, err)
	}
	tenants, err := h.tenants.List(c.Request().Context(), userID, limit, offset)
	if err != nil {
		return sendError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"tenants": tenants,
		"limit":   limit,
		"offset":  offset,
	})
}

func (h *TenantHandlers) CreateTenant(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return sendError(c, h.logger, err)
	}
	var req services.TenantRequest
	if err := bindBody(c, &req); err != nil {
		return sendError(c, h.logger, err)
	}
	tenant, err := h.tenants.Create(c.Request().Context(), userID, &req)
	if err != nil {
		return sendError(c, h.logger, err)
	}
	return c.JSON(http.StatusCreated, tenant)
}

func (h *TenantHandlers) GetTenant(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return sendError(c, h.logger, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return sendError(c, h.logger, err)
	}
	tenant, err := h.tenants.Get(c.Request().Context(), userID, id)
	if err != nil {
		return sendError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, tenant)
}

func (h *TenantHandlers) UpdateTenant(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return sendError(c, h.logger, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return sendError(c, h.logger, err)
	}
	var req services.TenantRequest
	if err := bindBody(c, &req); err != nil {
		return sendError(c, h.logger, err)
	}
	tenant, err := h.tenants.Update(c.Request().Context(), userID, id, &req)
	if err != nil {
		return sendError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, tenant)
}

// DeleteTenant fails with 409 while the tenant holds an active tenancy
func (h *TenantHandlers) DeleteTenant(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return sendError(c, h.logger, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return sendError(c, h.logger, err)
	}
	if err := h.tenants.Delete(c.Request().Context(), userID, id); err != nil {
		return sendError(c, h.logger, err)
	}
	return c.NoContent(http.StatusNoContent)
}
