package rest

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"shelfScout/domain"
)

type ResponseError struct {
	Message string `json:"message"`
}

// errorJSON maps domain sentinel errors onto HTTP statuses.
func errorJSON(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrAttributionConflict):
		status = http.StatusConflict
	}
	return c.JSON(status, ResponseError{Message: err.Error()})
}
