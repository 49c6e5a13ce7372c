package handlers

import (
	"net/http"

	"sciportfolio/internal/common"
	"sciportfolio/internal/models"
	"sciportfolio/internal/services"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// maxUploadSize bounds multipart document uploads.
const maxUploadSize = 25 << 20

// DocumentHandlers handles document metadata, uploads and downloads
type DocumentHandlers struct {
	documents services.DocumentService
	logger    *zap.Logger
}

func NewDocumentHandlers(documents services.DocumentService, logger *zap.Logger) *DocumentHandlers {
	return &DocumentHandlers{documents: documents, logger: logger}
}

func (h *DocumentHandlers) ListDocuments(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return sendError(c, h.logger, err)
	}
	filter, err := documentFilter(c)
	if err != nil {
		return sendError(c, h.logger, err)
	}
	documents, err := h.documents.List(c.Request().Context(), userID, filter)
	if err != nil {
		return sendError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"documents": documents,
		"limit":     filter.Limit,
		"offset":    filter.Offset,
	})
}

// CreateDocument registers a document stored at an external URL
func (h *DocumentHandlers) CreateDocument(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return sendError(c, h.logger, err)
	}
	var req services.DocumentRequest
	if err := bindBody(c, &req); err != nil {
		return sendError(c, h.logger, err)
	}
	document, err := h.documents.Create(c.Request().Context(), userID, &req)
	if err != nil {
		return sendError(c, h.logger, err)
	}
	return c.JSON(http.StatusCreated, document)
}

// UploadDocument accepts a multipart form with a "file" part and the
// document metadata as form fields.
func (h *DocumentHandlers) UploadDocument(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return sendError(c, h.logger, err)
	}

	c.Request().Body = http.MaxBytesReader(c.Response(), c.Request().Body, maxUploadSize)
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return common.SendValidationError(c, "file", "a file up to 25MB is required")
	}

	req := services.UploadRequest{
		DocumentRequest: services.DocumentRequest{
			Name:     c.FormValue("name"),
			Type:     c.FormValue("type"),
			Category: models.DocumentCategory(c.FormValue("category")),
		},
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get(echo.HeaderContentType),
		Size:        fileHeader.Size,
	}
	if req.Name == "" {
		req.Name = fileHeader.Filename
	}
	if v := c.FormValue("expiry_date"); v != "" {
		req.ExpiryDate = &v
	}
	if req.StructureID, err = common.ValidateOptionalUUID(c.FormValue("structure_id"), "structure_id"); err != nil {
		return sendError(c, h.logger, err)
	}
	if req.PropertyID, err = common.ValidateOptionalUUID(c.FormValue("property_id"), "property_id"); err != nil {
		return sendError(c, h.logger, err)
	}
	if req.TenantID, err = common.ValidateOptionalUUID(c.FormValue("tenant_id"), "tenant_id"); err != nil {
		return sendError(c, h.logger, err)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return sendError(c, h.logger, err)
	}
	defer file.Close()
	req.Body = file

	document, err := h.documents.Upload(c.Request().Context(), userID, &req)
	if err != nil {
		return sendError(c, h.logger, err)
	}
	return c.JSON(http.StatusCreated, document)
}

func (h *DocumentHandlers) GetDocument(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return sendError(c, h.logger, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return sendError(c, h.logger, err)
	}
	document, err := h.documents.Get(c.Request().Context(), userID, id)
	if err != nil {
		return sendError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, document)
}

// DownloadDocument returns a short-lived link to the document contents
func (h *DocumentHandlers) DownloadDocument(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return sendError(c, h.logger, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return sendError(c, h.logger, err)
	}
	url, err := h.documents.DownloadURL(c.Request().Context(), userID, id)
	if err != nil {
		return sendError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"url": url})
}

func (h *DocumentHandlers) DeleteDocument(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return sendError(c, h.logger, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return sendError(c, h.logger, err)
	}
	if err := h.documents.Delete(c.Request().Context(), userID, id); err != nil {
		return sendError(c, h.logger, err)
	}
	return c.NoContent(http.StatusNoContent)
}
