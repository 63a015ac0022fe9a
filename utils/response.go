package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joy095/marketplace/logger"
)

// RespondError writes err as {"error": ...} with the status HTTPStatus picks.
// Validation failures also carry the offending field.
func RespondError(c *gin.Context, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.ErrorLogger.Errorf("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
	}

	body := gin.H{"error": PublicMessage(err)}
	var validation *ValidationError
	if errors.As(err, &validation) && validation.Field != "" {
		body["field"] = validation.Field
	}
	c.AbortWithStatusJSON(status, body)
}
