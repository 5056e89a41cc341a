package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/propertybooks/accounting_backend/config"
	"github.com/propertybooks/accounting_backend/utils"
)

// respondError maps the model error taxonomy onto HTTP statuses. Anything
// unmapped is logged and returned as a 500 without leaking internals.
func respondError(c *gin.Context, module string, funcName string, err error) {
	switch {
	case errors.Is(err, utils.ErrorRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, utils.ErrorConflict),
		errors.Is(err, utils.ErrorAlreadyApproved),
		errors.Is(err, utils.ErrorImmutablePosting):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, utils.ErrorPeriodClosed),
		errors.Is(err, utils.ErrorUnbalanced),
		errors.Is(err, utils.ErrorOverApplication),
		errors.Is(err, utils.ErrorPrecisionLoss),
		errors.Is(err, utils.ErrorInvalidSegment),
		errors.Is(err, utils.ErrorConfiguration):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(validationErrs)})
			return
		}
		config.LogError(config.GetLogger(), module, funcName, "", nil, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func pathId(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}
