package engineerr

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Respond writes err as a JSON error response using the code's status hint.
// Non-engine errors surface as a generic 500 without leaking internals.
func Respond(c echo.Context, err error) error {
	var e *Error
	if errors.As(err, &e) {
		return c.JSON(e.HTTPStatus(), e)
	}
	return c.JSON(http.StatusInternalServerError, map[string]string{
		"code":    "INTERNAL_ERROR",
		"message": "internal error",
	})
}
