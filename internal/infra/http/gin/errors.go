package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"staybook/internal/app/policies"
	"staybook/internal/app/validation"
	"staybook/internal/domain/shared/errs"
)

var errBusUnavailable = errs.New(errs.ErrUnavailable, "bus unavailable")

type errorBody struct {
	Error  string       `json:"error"`
	Kind   string       `json:"kind,omitempty"`
	Fields []fieldError `json:"fields,omitempty"`
}

type fieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

func statusFor(err error) int {
	if errors.Is(err, policies.ErrUnauthenticated) {
		return http.StatusUnauthorized
	}
	switch errs.KindOf(err) {
	case errs.KindNotFound:
		return http.StatusNotFound
	case errs.KindConflict:
		return http.StatusConflict
	case errs.KindInvalidInput:
		return http.StatusBadRequest
	case errs.KindForbidden:
		return http.StatusForbidden
	case errs.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the classified error. Unclassified errors are logged
// and hidden from the client.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	status := statusFor(err)
	body := errorBody{Error: err.Error(), Kind: string(errs.KindOf(err))}
	switch status {
	case http.StatusUnauthorized:
		body = errorBody{Error: "authentication required"}
	case http.StatusServiceUnavailable:
		if logger != nil {
			logger.WarnContext(c.Request.Context(), "dependency unavailable", "error", err, "path", c.FullPath())
		}
		body = errorBody{Error: "service unavailable", Kind: string(errs.KindUnavailable)}
	case http.StatusInternalServerError:
		if logger != nil {
			logger.ErrorContext(c.Request.Context(), "request failed", "error", err, "path", c.FullPath())
		}
		body = errorBody{Error: "internal error"}
	}
	var verr *validation.Error
	if errors.As(err, &verr) {
		for _, f := range verr.Fields {
			body.Fields = append(body.Fields, fieldError{Field: f.Field, Rule: f.Rule, Param: f.Param})
		}
	}
	c.AbortWithStatusJSON(status, body)
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorBody{Error: err.Error(), Kind: string(errs.KindInvalidInput)})
}
