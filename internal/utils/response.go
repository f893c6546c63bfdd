package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/user/cinefam/internal/errs"
)

// Response is the unified API envelope.
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
	Success bool        `json:"success"`
}

// Success returns a 200 envelope.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Code: http.StatusOK, Message: "success", Data: data, Success: true})
}

// SuccessWithMessage returns a 200 envelope with a custom message.
func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{Code: http.StatusOK, Message: message, Data: data, Success: true})
}

// Error returns an error envelope with the given status.
func Error(c *gin.Context, code int, message string) {
	c.JSON(code, Response{Code: code, Message: message, Success: false})
}

// RespondError maps a core error onto an HTTP status. Validation and
// not-found messages are surfaced verbatim; database and upstream detail is
// logged and replaced with a generic message.
func RespondError(c *gin.Context, err error) {
	switch {
	case errs.IsValidation(err):
		Error(c, http.StatusBadRequest, err.Error())
	case errs.IsNotFound(err):
		Error(c, http.StatusNotFound, err.Error())
	case errs.IsTimeout(err):
		log.Warn().Err(err).Str("path", c.Request.URL.Path).Msg("[api] upstream timeout")
		Error(c, http.StatusBadGateway, "the request to an external service timed out")
	case errs.IsUpstream(err):
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("[api] upstream failure")
		Error(c, http.StatusBadGateway, "an external service is unavailable, try again shortly")
	case errs.IsDatabase(err):
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("[api] database failure")
		Error(c, http.StatusInternalServerError, "something went wrong, try again shortly")
	default:
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("[api] unexpected failure")
		Error(c, http.StatusInternalServerError, "something went wrong, try again shortly")
	}
}
