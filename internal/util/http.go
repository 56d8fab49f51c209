package util

import (
	"net/http"

	oaerrors "github.com/go-openapi/errors"
	"github.com/go-openapi/strfmt"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/SafeMPC/wallet-bridge/internal/api/httperrors"
	"github.com/SafeMPC/wallet-bridge/internal/types"
)

// Validatable go-openapi 生成类型的校验接口
type Validatable interface {
	Validate(formats strfmt.Registry) error
}

// BindAndValidateBody 绑定请求体并执行 go-openapi 校验
func BindAndValidateBody(c echo.Context, v Validatable) error {
	binder := &echo.DefaultBinder{}
	if err := binder.BindBody(c, v); err != nil {
		LogFromContext(c.Request().Context()).Debug().Err(err).Msg("Failed to bind request body")
		return httperrors.NewHTTPErrorWithDetail(http.StatusBadRequest, types.PublicHTTPErrorTypeGeneric, http.StatusText(http.StatusBadRequest), "malformed request body")
	}
	return validatePayload(c, v)
}

// ValidateAndReturn 校验响应体后返回 JSON
func ValidateAndReturn(c echo.Context, code int, v Validatable) error {
	if err := v.Validate(strfmt.Default); err != nil {
		LogFromContext(c.Request().Context()).Error().Err(err).Msg("Response did not match schema")
		return err
	}
	return c.JSON(code, v)
}

func validatePayload(c echo.Context, v Validatable) error {
	err := v.Validate(strfmt.Default)
	if err == nil {
		return nil
	}

	var composite *oaerrors.CompositeError
	if errors.As(err, &composite) {
		LogFromContext(c.Request().Context()).Debug().Errs("validation_errors", composite.Errors).Msg("Payload did not match schema")
		return httperrors.NewHTTPValidationError(http.StatusBadRequest, types.PublicHTTPErrorTypeGeneric, http.StatusText(http.StatusBadRequest), formatValidationErrors(composite))
	}

	return httperrors.NewHTTPErrorWithDetail(http.StatusBadRequest, types.PublicHTTPErrorTypeGeneric, http.StatusText(http.StatusBadRequest), err.Error())
}

func formatValidationErrors(composite *oaerrors.CompositeError) []*httperrors.HTTPValidationErrorDetail {
	details := make([]*httperrors.HTTPValidationErrorDetail, 0, len(composite.Errors))
	for _, err := range composite.Errors {
		var validationErr *oaerrors.Validation
		if errors.As(err, &validationErr) {
			details = append(details, &httperrors.HTTPValidationErrorDetail{
				Key:   validationErr.Name,
				In:    validationErr.In,
				Error: validationErr.Error(),
			})
			continue
		}

		var nested *oaerrors.CompositeError
		if errors.As(err, &nested) {
			details = append(details, formatValidationErrors(nested)...)
			continue
		}

		details = append(details, &httperrors.HTTPValidationErrorDetail{
			Key:   "body",
			In:    "body",
			Error: err.Error(),
		})
	}
	return details
}
