package httperrors

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/SafeMPC/wallet-bridge/internal/types"
)

// HTTPValidationErrorDetail 单个字段的校验错误
type HTTPValidationErrorDetail struct {
	Key   string `json:"key"`
	In    string `json:"in"`
	Error string `json:"error"`
}

// HTTPError 桥接层返回的错误体
type HTTPError struct {
	Code             int                          `json:"status"`
	Type             types.PublicHTTPErrorType    `json:"type"`
	Title            string                       `json:"title"`
	Detail           string                       `json:"detail,omitempty"`
	ValidationErrors []*HTTPValidationErrorDetail `json:"validationErrors,omitempty"`
	Internal         error                        `json:"-"`
}

func NewHTTPError(code int, errorType types.PublicHTTPErrorType, title string) *HTTPError {
	return &HTTPError{
		Code:  code,
		Type:  errorType,
		Title: title,
	}
}

func NewHTTPErrorWithDetail(code int, errorType types.PublicHTTPErrorType, title string, detail string) *HTTPError {
	return &HTTPError{
		Code:   code,
		Type:   errorType,
		Title:  title,
		Detail: detail,
	}
}

func NewHTTPValidationError(code int, errorType types.PublicHTTPErrorType, title string, validationErrors []*HTTPValidationErrorDetail) *HTTPError {
	return &HTTPError{
		Code:             code,
		Type:             errorType,
		Title:            title,
		ValidationErrors: validationErrors,
	}
}

// NewFromEcho 转换 echo 内置错误（404、405 等）
func NewFromEcho(e *echo.HTTPError) *HTTPError {
	return &HTTPError{
		Code:  e.Code,
		Type:  types.PublicHTTPErrorTypeGeneric,
		Title: fmt.Sprint(e.Message),
	}
}

func (e *HTTPError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "HTTPError %d (%s): %s", e.Code, e.Type, e.Title)
	if e.Detail != "" {
		fmt.Fprintf(&b, " - %s", e.Detail)
	}
	if e.Internal != nil {
		fmt.Fprintf(&b, ", %v", e.Internal)
	}
	for _, v := range e.ValidationErrors {
		fmt.Fprintf(&b, " - [%s] %s: %s", v.In, v.Key, v.Error)
	}
	return b.String()
}

// HTTPErrorHandler echo 的全局错误处理
// 非 HTTPError 的错误一律按 500 返回，hideInternal 时不暴露细节
func HTTPErrorHandler(hideInternal bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		var httpErr *HTTPError
		var echoErr *echo.HTTPError

		switch {
		case errors.As(err, &httpErr):
		case errors.As(err, &echoErr):
			httpErr = NewFromEcho(echoErr)
		default:
			httpErr = NewHTTPError(http.StatusInternalServerError, types.PublicHTTPErrorTypeGeneric, http.StatusText(http.StatusInternalServerError))
			if !hideInternal {
				httpErr.Detail = err.Error()
			}
			httpErr.Internal = err
		}

		if httpErr.Code >= http.StatusInternalServerError {
			log.Error().Err(err).Str("path", c.Path()).Msg("Request failed with server error")
		}

		if c.Response().Committed {
			return
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(httpErr.Code)
		} else {
			err = c.JSON(httpErr.Code, httpErr)
		}
		if err != nil {
			log.Warn().Err(err).AnErr("http_err", httpErr).Msg("Failed to handle HTTP error")
		}
	}
}
