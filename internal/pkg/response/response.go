// internal/pkg/response/response.go
package response

import (
	"net/http"

	xerrors "sells-service/internal/pkg/errors"

	"github.com/gin-gonic/gin"
)

// Response defines the standard API response format.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Success sends a successful response with a message and optional data.
func Success(c *gin.Context, status int, message string, data interface{}) {
	if status == 0 {
		status = http.StatusOK
	}

	c.JSON(status, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Error sends a standardized error response.
func Error(c *gin.Context, code int, message string, err error, data ...interface{}) {
	// Abort before writing so later handlers never append to the body
	c.Abort()

	response := Response{
		Success: false,
		Message: message,
	}

	if err != nil {
		response.Error = err.Error()
	}

	if len(data) > 0 {
		response.Data = data[0]
	}

	c.JSON(code, response)
}

// FromError picks the status code for err from the xerrors taxonomy.
func FromError(c *gin.Context, message string, err error) {
	Error(c, StatusFor(err), message, err)
}

// StatusFor maps an application error to an HTTP status.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case xerrors.Is(err, xerrors.ErrInvalidInput), xerrors.Is(err, xerrors.ErrInvalidState):
		return http.StatusBadRequest
	case xerrors.Is(err, xerrors.ErrNotFound):
		return http.StatusNotFound
	case xerrors.Is(err, xerrors.ErrConflict):
		return http.StatusConflict
	case xerrors.Is(err, xerrors.ErrTransport):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
