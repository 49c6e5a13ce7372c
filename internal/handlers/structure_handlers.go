package handlers

import (
	"net/http"

	"sciportfolio/internal/services"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// StructureHandlers handles structure and membership requests
type StructureHandlers struct {
	structures  services.StructureService
	memberships services.MembershipService
	logger      *zap.Logger
}

func NewStructureHandlers(structures services.StructureService, memberships services.MembershipService, logger *zap.Logger) *StructureHandlers {
	return &StructureHandlers{structures: structures, memberships: memberships, logger: logger}
}

// ListStructures returns every structure the caller is a member of
func (h *StructureHandlers) ListStructures(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return sendError(c, h.logger, err)
	}
	structures, err := h.structures.List(c.Request().Context(), userID)
	if err != nil {
		return sendError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"structures": structures,
	})
}

// CreateStructure creates a structure with the caller as owner
func (h *StructureHandlers) CreateStructure(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return sendError(c, h.logger, err)
	}
	var req services.CreateStructureRequest
	if err := bindBody(c, &req); err != nil {
		return sendError(c, h.logger, err)
	}
	structure, err := h.structures.Create(c.Request().Context(), userID, &req)
	if err != nil {
		return sendError(c, h.logger, err)
	}
	return c.JSON(http.StatusCreated, structure)
}

func (h *StructureHandlers) GetStructure(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return sendError(c, h.logger, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return sendError(c, h.logger, err)
	}
	structure, err := h.structures.Get(c.Request().Context(), userID, id)
	if err != nil {
		return sendError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, structure)
}

func (h *StructureHandlers) UpdateStructure(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return sendError(c, h.logger, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return sendError(c, h.logger, err)
	}
	var req services.UpdateStructureRequest
	if err := bindBody(c, &req); err != nil {
		return sendError(c, h.logger, err)
	}
	structure, err := h.structures.Update(c.Request().Context(), userID, id, &req)
	if err != nil {
		return sendError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, structure)
}

func (h *StructureHandlers) DeleteStructure(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return sendError(c, h.logger, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return sendError(c, h.logger, err)
	}
	if err := h.structures.Delete(c.Request().Context(), userID, id); err != nil {
		return sendError(c, h.logger, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListMembers returns the structure's roster
func (h *StructureHandlers) ListMembers(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return sendError(c, h.logger, err)
	}
	structureID, err := pathID(c, "id")
	if err != nil {
		return sendError(c, h.logger, err)
	}
	members, err := h.memberships.List(c.Request().Context(), userID, structureID)
	if err != nil {
		return sendError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"members": members,
	})
}

func (h *StructureHandlers) AddMember(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return sendError(c, h.logger, err)
	}
	structureID, err := pathID(c, "id")
	if err != nil {
		return sendError(c, h.logger, err)
	}
	var req services.AddMemberRequest
	if err := bindBody(c, &req); err != nil {
		return sendError(c, h.logger, err)
	}
	membership, err := h.memberships.Add(c.Request().Context(), userID, structureID, &req)
	if err != nil {
		return sendError(c, h.logger, err)
	}
	return c.JSON(http.StatusCreated, membership)
}

func (h *StructureHandlers) ChangeMemberRole(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return sendError(c, h.logger, err)
	}
	structureID, err := pathID(c, "id")
	if err != nil {
		return sendError(c, h.logger, err)
	}
	memberID, err := pathID(c, "userId")
	if err != nil {
		return sendError(c, h.logger, err)
	}
	var req services.ChangeRoleRequest
	if err := bindBody(c, &req); err != nil {
		return sendError(c, h.logger, err)
	}
	membership, err := h.memberships.ChangeRole(c.Request().Context(), userID, structureID, memberID, &req)
	if err != nil {
		return sendError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, membership)
}

func (h *StructureHandlers) RemoveMember(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return sendError(c, h.logger, err)
	}
	structureID, err := pathID(c, "id")
	if err != nil {
		return sendError(c, h.logger, err)
	}
	memberID, err := pathID(c, "userId")
	if err != nil {
		return sendError(c, h.logger, err)
	}
	if err := h.memberships.Remove(c.Request().Context(), userID, structureID, memberID); err != nil {
		return sendError(c, h.logger, err)
	}
	return c.NoContent(http.StatusNoContent)
}
