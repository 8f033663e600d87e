package httptransport

import (
	"github.com/gin-gonic/gin"

	"github.com/arth-1/socialpost/internal/platform/errors"
)

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Error string `json:"error"`
}

// RespondError writes {"error": message}.
func RespondError(c *gin.Context, httpStatus int, message string) {
	c.JSON(httpStatus, ErrorResponse{Error: message})
}

// RespondFailure logs err with its kind and writes the public message.
// The detailed error never reaches the client.
func RespondFailure(c *gin.Context, httpStatus int, message string, err error) {
	if err != nil {
		_ = c.Error(err)
		c.Set("error.kind", string(errors.KindOf(err)))
	}
	RespondError(c, httpStatus, message)
}
