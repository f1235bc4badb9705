package bizerror

import (
	"changeportal/common"
	"changeportal/domain"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

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
			err = errors.New(fmt.Sprintf("%s", ret))
		}
		HandleError(c, err)
	} else {
		if err := c.Errors.Last(); err != nil {
			HandleError(c, err)
		}
	}
}

func HandleError(c *gin.Context, err error) {
	logrus.Error(err)

	genericErr := err
	var ginErr *gin.Error
	if errors.As(err, &ginErr) {
		genericErr = ginErr.Err
	}

	if bizErr, ok := genericErr.(common.BizError); ok {
		respond := bizErr.Respond()
		c.JSON(respond.Status, &common.ErrorBody{Code: respond.Code, Message: respond.Message, Data: respond.Data})
		c.Abort()
		return
	}

	// bad request:  io.EOF (no body).
	if errors.Is(genericErr, io.EOF) {
		c.JSON(http.StatusBadRequest, &common.ErrorBody{Code: "bad_request.body_not_found", Message: "body not found"})
		c.Abort()
		return
	}
	// bad request: json syntax Error
	if syntaxErr, ok := genericErr.(*json.SyntaxError); ok {
		c.JSON(http.StatusBadRequest, &common.ErrorBody{Code: "bad_request.invalid_body_format", Message: "invalid body format", Data: syntaxErr.Error()})
		c.Abort()
		return
	}
	// validation failed
	var validationErr validator.ValidationErrors
	if errors.As(genericErr, &validationErr) {
		c.JSON(http.StatusBadRequest, &common.ErrorBody{Code: "bad_request.validation_failed", Message: "validation failed", Data: validationErr.Error()})
		c.Abort()
		return
	}
	if errors.Is(genericErr, ErrUnauthenticated) {
		c.JSON(http.StatusUnauthorized, &common.ErrorBody{Code: "common.unauthenticated", Message: genericErr.Error()})
		c.Abort()
		return
	}
	if errors.Is(genericErr, domain.ErrUnknownKind) || errors.Is(genericErr, domain.ErrCustomersMissing) {
		c.JSON(http.StatusBadRequest, &common.ErrorBody{Code: "common.bad_param", Message: genericErr.Error()})
		c.Abort()
		return
	}

	status, code := http.StatusInternalServerError, "common.internal_server_error"
	switch Classify(genericErr) {
	case ReasonAuthRequired:
		status, code = http.StatusUnauthorized, "store.auth_required"
	case ReasonNotFound:
		status, code = http.StatusNotFound, "common.record_not_found"
	case ReasonIllegalTransition:
		status, code = http.StatusConflict, "workflow.illegal_transition"
	case ReasonValidationRejected:
		status, code = http.StatusUnprocessableEntity, "store.validation_rejected"
	case ReasonRetriesExhausted:
		status, code = http.StatusBadGateway, "store.retries_exhausted"
	case ReasonTransient:
		status, code = http.StatusBadGateway, "store.unavailable"
	}
	c.JSON(status, &common.ErrorBody{Code: code, Message: genericErr.Error()})
	c.Abort()
}
