package bizerror

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"banco/internal/logging"
	"banco/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// ErrorHandling recovers panics and renders the last error attached to the context.
func ErrorHandling() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer handle(c)
		c.Next()
	}
}

func handle(c *gin.Context) {
	if ret := recover(); ret != nil {
		err, ok := ret.(error)
		if !ok {
			err = fmt.Errorf("%v", ret)
		}
		HandleError(c, err)
	} else if err := c.Errors.Last(); err != nil {
		HandleError(c, err)
	}
}

func HandleError(c *gin.Context, err error) {
	genericErr := err
	var ginErr *gin.Error
	if errors.As(err, &ginErr) {
		genericErr = ginErr.Err
	}

	status, body := Render(genericErr)
	if status >= http.StatusInternalServerError {
		logging.Log.WithError(genericErr).Error("unhandled error")
	} else {
		logging.Log.WithError(genericErr).Debug("request rejected")
	}
	c.AbortWithStatusJSON(status, body)
}

// Render maps an error to its HTTP status and response body
func Render(err error) (int, response.Response) {
	var bizErr BizError
	if errors.As(err, &bizErr) {
		d := bizErr.Respond()
		return d.Status, response.CodedError(d.Status, d.Code, d.Message)
	}
	if errors.Is(err, io.EOF) {
		return http.StatusBadRequest, response.CodedError(http.StatusBadRequest, "bad_request.body_not_found", "body not found")
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return http.StatusBadRequest, response.CodedError(http.StatusBadRequest, "bad_request.invalid_body_format", "invalid body format")
	}
	var validationErr validator.ValidationErrors
	if errors.As(err, &validationErr) {
		return http.StatusBadRequest, response.CodedError(http.StatusBadRequest, "bad_request.validation_failed", validationErr.Error())
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return http.StatusNotFound, response.CodedError(http.StatusNotFound, "common.record_not_found", "record not found")
	}
	return http.StatusInternalServerError, response.CodedError(http.StatusInternalServerError, "common.internal_server_error", err.Error())
}
