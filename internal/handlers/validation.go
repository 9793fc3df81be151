package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	appErrors "github.com/rosterhq/roster/pkg/errors"
	"github.com/rosterhq/roster/pkg/response"
	appValidator "github.com/rosterhq/roster/pkg/validator"
)

// bindAndValidate binds the JSON payload into dest and runs struct validation
// rules. When either step fails, an error response is written and false is
// returned.
func bindAndValidate[T any](c *gin.Context, dest *T) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.NewBadRequest("invalid JSON payload"))
		return false
	}

	if err := appValidator.ValidateStruct(dest); err != nil {
		msg := "invalid request payload"
		var ve appValidator.ValidationErrors
		if errors.As(err, &ve) && len(ve) > 0 {
			msg = ve.Error()
		}
		response.Error(c, appErrors.NewBadRequest(msg))
		return false
	}

	return true
}
