package httpserver

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/and161185/gophpress/internal/errs"
	"github.com/and161185/gophpress/internal/logging"
)

type httpClass struct {
	status int
	code   string
}

var classStatus = map[error]httpClass{
	errs.ErrValidation:      {http.StatusBadRequest, "validation"},
	errs.ErrConflict:        {http.StatusConflict, "conflict"},
	errs.ErrUnauthorized:    {http.StatusUnauthorized, "unauthorized"},
	errs.ErrForbidden:       {http.StatusForbidden, "forbidden"},
	errs.ErrNotFound:        {http.StatusNotFound, "not_found"},
	errs.ErrRateLimited:     {http.StatusTooManyRequests, "rate_limited"},
	errs.ErrVersionConflict: {http.StatusConflict, "version_conflict"},
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the class, a client-safe message and per-field problems for validation.
type ErrorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  []errs.FieldError `json:"fields,omitempty"`
}

// abortWithError writes the error response once and stops the handler chain.
func abortWithError(c *gin.Context, log *zap.Logger, err error) {
	status, body := render(c.Request.Context(), loggerFrom(c, log), err)
	c.AbortWithStatusJSON(status, body)
}

func render(ctx context.Context, log *zap.Logger, err error) (int, ErrorBody) {
	if errors.Is(err, context.Canceled) {
		// client is gone; the status is for the access log only
		return 499, ErrorBody{Error: ErrorDetail{Code: "canceled", Message: "canceled"}}
	}

	class := errs.Class(err)
	hc, ok := classStatus[class]
	if !ok {
		logging.Error(logging.WithTrace(ctx, log), "internal error", err)
		return http.StatusInternalServerError, ErrorBody{Error: ErrorDetail{Code: "internal", Message: "internal"}}
	}

	d := ErrorDetail{Code: hc.code, Message: class.Error()}
	var ve *errs.ValidationError
	switch {
	case errors.As(err, &ve):
		d.Message = ve.Error()
		d.Fields = ve.Fields
	case errs.Reason(err) != "":
		d.Message = errs.Reason(err)
	}
	return hc.status, ErrorBody{Error: d}
}
