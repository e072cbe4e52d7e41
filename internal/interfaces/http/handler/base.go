package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	installmentapp "github.com/goldbooks/backend/internal/application/installment"
	"github.com/goldbooks/backend/internal/domain/shared"
	"github.com/goldbooks/backend/internal/interfaces/http/dto"
	"github.com/goldbooks/backend/internal/interfaces/http/middleware"
	"github.com/google/uuid"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

func getRequestID(c *gin.Context) string {
	return middleware.GetRequestID(c)
}

func getTenantID(c *gin.Context) uuid.UUID {
	return middleware.GetTenantID(c)
}

// getActorID extracts the acting user from the X-User-ID header, if present
func getActorID(c *gin.Context) *uuid.UUID {
	raw := c.GetHeader("X-User-ID")
	if raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil
	}
	return &id
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Error sends an error response with an explicit status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// DomainError maps a service-layer error to its transport representation.
// The domain code decides the status; unknown errors surface as 500 without
// leaking internals.
func (h *BaseHandler) DomainError(c *gin.Context, err error) {
	code := installmentapp.ErrorCode(err)

	message := err.Error()
	var domainErr *shared.DomainError
	if code == dto.ErrCodeInternal && !errors.As(err, &domainErr) {
		message = "An internal error occurred"
	}

	h.Error(c, dto.GetHTTPStatus(code), code, message)
}
