package server

import (
	"context"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"attache/internal/attachments"
	"attache/internal/logging"
)

// APIResponse is the uniform JSON envelope for API endpoints.
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// AttachmentHandler serves the collection's views and mutations.
type AttachmentHandler struct {
	collection *attachments.Collection
	logger     logging.Logger
}

// NewAttachmentHandler creates the handler.
func NewAttachmentHandler(collection *attachments.Collection) *AttachmentHandler {
	return &AttachmentHandler{
		collection: collection,
		logger:     logging.NewComponentLogger("AttachmentHandler"),
	}
}

// List returns the chat-variable view of the collection.
func (h *AttachmentHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Data: gin.H{
			"variables": h.collection.ChatVariables(),
			"enabled":   h.collection.PromptFilesEnabled(),
		},
	})
}

// References returns the flat URI view of the collection.
func (h *AttachmentHandler) References(c *gin.Context) {
	refs := h.collection.References()
	uris := make([]string, 0, len(refs))
	for _, ref := range refs {
		uris = append(uris, ref.String())
	}
	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Data:    gin.H{"uris": uris},
	})
}

type addAttachmentRequest struct {
	URI string `json:"uri" binding:"required"`
}

// Add attaches a URI. The response reports whether the key already existed.
func (h *AttachmentHandler) Add(c *gin.Context) {
	var req addAttachmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, APIResponse{
			Success: false,
			Error:   "uri is required",
		})
		return
	}

	uri, err := url.Parse(req.URI)
	if err != nil {
		c.JSON(http.StatusBadRequest, APIResponse{
			Success: false,
			Error:   "invalid uri",
		})
		return
	}

	if !h.collection.PromptFilesEnabled() {
		c.JSON(http.StatusForbidden, APIResponse{
			Success: false,
			Error:   "prompt file attachments are disabled",
		})
		return
	}

	// Resolution runs past the end of this request, so it must not inherit
	// the request context.
	existed := h.collection.Add(context.Background(), uri)
	h.logger.Debug("add %q existed=%t", req.URI, existed)
	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Data:    gin.H{"existed": existed},
	})
}

// Remove detaches the handle for the uri query parameter. Removing an absent
// key succeeds; the operation is a no-op.
func (h *AttachmentHandler) Remove(c *gin.Context) {
	raw := c.Query("uri")
	if raw == "" {
		c.JSON(http.StatusBadRequest, APIResponse{
			Success: false,
			Error:   "uri query parameter is required",
		})
		return
	}

	uri, err := url.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, APIResponse{
			Success: false,
			Error:   "invalid uri",
		})
		return
	}

	h.collection.Remove(uri)
	c.JSON(http.StatusOK, APIResponse{Success: true})
}
