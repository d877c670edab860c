package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/joseph-ayodele/course-extractor/internal/common"
)

// Envelope is the JSON body of every API response.
type Envelope struct {
	Data  any            `json:"data,omitempty"`
	Error *ErrorBody     `json:"error,omitempty"`
	Meta  map[string]any `json:"meta,omitempty"`
}

// ErrorBody is the client-facing form of an error.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respond(c *gin.Context, status int, data any, meta map[string]any) {
	c.Header("Cache-Control", "no-store")
	c.JSON(status, Envelope{Data: data, Meta: meta})
}

// respondError maps err through the error taxonomy. Internal errors are
// logged by the access log and returned without detail.
func respondError(c *gin.Context, err error) {
	status := common.HTTPStatus(err)
	body := &ErrorBody{Code: common.CodeOf(err), Message: err.Error()}
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		body.Message = appErr.Message
	}
	if status >= http.StatusInternalServerError {
		body.Message = "internal error"
	}
	_ = c.Error(err)
	c.Header("Cache-Control", "no-store")
	c.AbortWithStatusJSON(status, Envelope{Error: body})
}
