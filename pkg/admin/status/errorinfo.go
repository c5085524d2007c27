package status

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ErrorInfo contains error information to be returned to the user. The
// contents of the error MUST only contain user visible state, never internal
// details.
type ErrorInfo struct {
	// StatusCode contains the HTTP status code.
	StatusCode int

	// Message contains the error message to return to the user.
	Message string
}

func (e *ErrorInfo) Error() string {
	return fmt.Sprintf(
		"%s (%d): %s",
		strings.ToLower(http.StatusText(e.StatusCode)),
		e.StatusCode,
		e.Message,
	)
}

// ErrorResponse is the body of a failed status request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// AbortWithError aborts the request with the given error. If err is an
// ErrorInfo its status code and message are returned, otherwise the request
// fails with an internal server error.
func AbortWithError(c *gin.Context, err error) {
	var errorInfo *ErrorInfo
	if errors.As(err, &errorInfo) {
		c.AbortWithStatusJSON(
			errorInfo.StatusCode,
			ErrorResponse{Error: errorInfo.Message},
		)
		return
	}

	c.AbortWithStatusJSON(
		http.StatusInternalServerError,
		ErrorResponse{Error: "internal server error"},
	)
}
