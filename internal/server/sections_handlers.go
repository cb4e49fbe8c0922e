package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/misicnenad/fith-on/internal/sections"
	"github.com/misicnenad/fith-on/internal/store"
	"go.uber.org/zap"
)

type sectionsResponsePayload struct {
	Sections []sections.Section `json:"sections"`
}

type failureLogPayload struct {
	Operation string `json:"operation"`
	Message   string `json:"message"`
}

func (h *httpHandler) handleListSections(c *gin.Context) {
	userKey := c.GetString(userKeyContextKey)
	items, err := h.store.GetSections(c.Request.Context(), userKey)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if items == nil {
		items = []sections.Section{}
	}
	sections.Sort(items)
	c.JSON(http.StatusOK, sectionsResponsePayload{Sections: items})
}

func (h *httpHandler) handleAddSection(c *gin.Context) {
	userKey := c.GetString(userKeyContextKey)
	var section sections.Section
	if err := c.ShouldBindJSON(&section); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_section"})
		return
	}
	if err := h.store.AddSection(c.Request.Context(), userKey, section); err != nil {
		h.respondError(c, err)
		return
	}
	h.publishChange(userKey, sectionOperationAdd, section.ID.String())
	c.JSON(http.StatusCreated, section)
}

func (h *httpHandler) handleUpdateSection(c *gin.Context) {
	userKey := c.GetString(userKeyContextKey)
	sectionID, err := sections.NewSectionID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_section_id"})
		return
	}
	var section sections.Section
	if err := c.ShouldBindJSON(&section); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_section"})
		return
	}
	if section.ID == "" {
		section.ID = sectionID
	}
	if section.ID != sectionID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "section_id_mismatch"})
		return
	}
	if err := h.store.UpdateSection(c.Request.Context(), userKey, section); err != nil {
		h.respondError(c, err)
		return
	}
	h.publishChange(userKey, sectionOperationUpdate, section.ID.String())
	c.JSON(http.StatusOK, section)
}

func (h *httpHandler) handleRemoveSection(c *gin.Context) {
	userKey := c.GetString(userKeyContextKey)
	sectionID, err := sections.NewSectionID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_section_id"})
		return
	}
	if err := h.store.RemoveSection(c.Request.Context(), userKey, sectionID); err != nil {
		h.respondError(c, err)
		return
	}
	h.publishChange(userKey, sectionOperationRemove, sectionID.String())
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleFailureLog(c *gin.Context) {
	userKey := c.GetString(userKeyContextKey)
	var request failureLogPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	h.logger.Warn("client operation failed",
		zap.String("user_key", userKey),
		zap.String("client_operation", request.Operation),
		zap.String("client_message", request.Message))
	if err := h.store.LogFailure(c.Request.Context(), userKey, request.Operation, request.Message); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// respondError maps store failures to HTTP statuses and exposes the service error code.
func (h *httpHandler) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrDuplicateSection), errors.Is(err, store.ErrSectionTypeChanged):
		status = http.StatusConflict
	case errors.Is(err, sections.ErrInvalidSection),
		errors.Is(err, sections.ErrMissingNoteTitle),
		errors.Is(err, sections.ErrInvalidSectionID),
		errors.Is(err, sections.ErrInvalidUserKey),
		errors.Is(err, store.ErrInvalidFailureLog):
		status = http.StatusBadRequest
	}

	code := "internal_error"
	var serviceErr *store.ServiceError
	if errors.As(err, &serviceErr) {
		code = serviceErr.Code()
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("section request failed",
			zap.String("route", c.FullPath()),
			zap.String("code", code),
			zap.Error(err))
	}
	c.JSON(status, gin.H{"error": code})
}
