// Package handlers contains the HTTP API for the reconciler service.
package handlers

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	appctx "github.com/seatwize/reconciler/pkg/context"
	"github.com/seatwize/reconciler/pkg/models"
)

// ParseUUID parses a UUID from a path parameter
func ParseUUID(c echo.Context, param string) (uuid.UUID, error) {
	idStr := c.Param(param)
	if idStr == "" {
		return uuid.Nil, httperror.NewHTTPError(http.StatusBadRequest, "missing "+param)
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid %s: must be a valid UUID", param)
	}

	return id, nil
}

// GetReviewer extracts the reviewer identity for a decision, from the
// X-Reviewer header or the request body.
func GetReviewer(c echo.Context) (string, error) {
	reviewer := appctx.GetReviewer(c.Request().Context())
	if reviewer == "" {
		var req models.ReviewDecisionRequest
		if err := c.Bind(&req); err == nil {
			reviewer = req.ReviewedBy
		}
	}
	if reviewer == "" {
		return "", httperror.NewHTTPError(http.StatusBadRequest, "reviewer identity is required")
	}
	return reviewer, nil
}

// SuccessResponse returns a 200 OK with data
func SuccessResponse(c echo.Context, data any) error {
	return c.JSON(http.StatusOK, data)
}

// CreatedResponse returns a 201 Created with data
func CreatedResponse(c echo.Context, data any) error {
	return c.JSON(http.StatusCreated, data)
}

// BadRequest returns a 400 Bad Request error
func BadRequest(message string) error {
	return httperror.NewHTTPError(http.StatusBadRequest, message)
}
