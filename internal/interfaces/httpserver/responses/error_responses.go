package responses

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the JSON error body shared by all endpoints.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// AbortWithError writes the error body and stops the handler chain.
func AbortWithError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Success: false, Error: message})
}

// AbortInternal hides internal error detail behind a generic message.
func AbortInternal(c *gin.Context) {
	AbortWithError(c, http.StatusInternalServerError, "internal error")
}
