package common

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/richxcame/giveaway/pkg/validation"
)

// BindErrorResponse writes a 400 for a failed request binding. Validator
// errors become a per-field map; anything else (malformed JSON, wrong
// content type) gets the raw message.
func BindErrorResponse(c *gin.Context, err error) {
	if verr, ok := validation.FromError(err); ok {
		c.JSON(http.StatusBadRequest, APIResponse{
			Success: false,
			Error:   "validation failed",
			Data:    verr.Errors,
		})
		return
	}
	ErrorResponse(c, http.StatusBadRequest, err.Error())
}
