package httpserver

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// Validator adapts go-playground/validator to echo's Validator interface.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	return &Validator{validate: validator.New()}
}

func (v *Validator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

// ErrorHandler funnels every handler error into one JSON shape: a status
// code plus a human-readable message.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := "Internal server error"

	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			message = m
		} else if he.Message != nil {
			message = http.StatusText(code)
		}
	}

	if err := c.JSON(code, echo.Map{
		"success": false,
		"message": message,
	}); err != nil {
		c.Logger().Error(err)
	}
}
