// Package response defines the JSON envelope returned by the admin
// trigger surface (SPEC_FULL.md §A5). It is deliberately thin: the
// upstream wire protocol (spec.md §6) has its own shapes and is untouched
// by this package.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/pytanis-go/pretalx-core/pkg/errors"
)

// Envelope is the common response contract for the admin surface.
type Envelope struct {
	Data  interface{}            `json:"data,omitempty"`
	Error *apperrors.Error       `json:"error,omitempty"`
	Meta  map[string]interface{} `json:"meta,omitempty"`
}

// JSON sends a success response with optional metadata.
func JSON(c *gin.Context, status int, data interface{}, meta ...map[string]interface{}) {
	c.Header("Cache-Control", "no-store")
	envelope := Envelope{Data: data}
	if len(meta) > 0 && meta[0] != nil {
		envelope.Meta = meta[0]
	}
	c.JSON(status, envelope)
}

// Created responds with HTTP 201 Created.
func Created(c *gin.Context, data interface{}) {
	JSON(c, http.StatusCreated, data)
}

// Error converts err into the common envelope and responds with its
// mapped HTTP status.
func Error(c *gin.Context, err error) {
	c.Header("Cache-Control", "no-store")
	status := apperrors.HTTPStatus(err)
	c.JSON(status, Envelope{Error: &apperrors.Error{
		Code:    "ERROR",
		Message: err.Error(),
		Status:  status,
	}})
}

// NoContent sends a 204 response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
