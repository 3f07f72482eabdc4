package rest

import (
	"net/http"

	"github.com/dmitrijs2005/hasker/internal/server/httpx"
	"github.com/go-chi/render"
)

// ErrResponse renderer type for handling all sorts of errors.
type ErrResponse struct {
	Err            error `json:"-"` // low-level runtime error
	HTTPStatusCode int   `json:"-"` // http response status code

	StatusText string `json:"status"`          // user-level status message
	ErrorText  string `json:"error,omitempty"` // application-level error message
}

func (e *ErrResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

func ErrInvalidRequest(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusBadRequest,
		StatusText:     "Invalid request.",
		ErrorText:      err.Error(),
	}
}

var (
	ErrNotFound     = &ErrResponse{HTTPStatusCode: http.StatusNotFound, StatusText: "Resource not found."}
	ErrUnauthorized = &ErrResponse{HTTPStatusCode: http.StatusUnauthorized, StatusText: "Authentication credentials were not provided or are invalid."}
	ErrForbidden    = &ErrResponse{HTTPStatusCode: http.StatusForbidden, StatusText: "You do not have permission to perform this action."}
)

// ErrFromService maps a service error to its response. Internal errors
// keep their text out of the body.
func ErrFromService(err error) render.Renderer {
	switch status := httpx.StatusFor(err); status {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusBadRequest:
		return ErrInvalidRequest(err)
	case http.StatusConflict:
		return &ErrResponse{Err: err, HTTPStatusCode: status, StatusText: "Conflict.", ErrorText: err.Error()}
	default:
		return &ErrResponse{Err: err, HTTPStatusCode: http.StatusInternalServerError, StatusText: "Internal server error."}
	}
}
