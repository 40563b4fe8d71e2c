package response

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nekogravitycat/class-booking-backend/internal/pkg/apperror"
)

// ErrorResponse defines the JSON structure for error responses.
type ErrorResponse struct {
	Error     string `json:"error"`
	Kind      string `json:"kind,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
	Details   string `json:"details,omitempty"`
}

// Error sends a JSON error response.
// It checks if the error is an AppError to determine the status code.
// If it's not an AppError, it defaults to 500 Internal Server Error.
func Error(c *gin.Context, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		if appErr.Kind == apperror.KindStorageFailure {
			log.Printf("storage failure on %s %s: %v", c.Request.Method, c.FullPath(), appErr.Err)
		}
		c.JSON(appErr.Code, ErrorResponse{
			Error:     appErr.Message,
			Kind:      string(appErr.Kind),
			Retryable: appErr.Retryable(),
		})
		return
	}

	log.Printf("unhandled error on %s %s: %v", c.Request.Method, c.FullPath(), err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}

// Abort renders err like Error and stops the handler chain.
func Abort(c *gin.Context, err error) {
	Error(c, err)
	c.Abort()
}

// Invalid sends a 400 validation response for a request that failed binding.
func Invalid(c *gin.Context, message string, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   message,
		Kind:    string(apperror.KindValidation),
		Details: err.Error(),
	})
}
