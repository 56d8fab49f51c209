package bridge

import (
	"context"
	"encoding/json"

	"github.com/go-openapi/errors"
	"github.com/go-openapi/strfmt"
	"github.com/go-openapi/swag"
	"github.com/go-openapi/validate"
)

// PostRequestPayload 来源提交的请求信封
type PostRequestPayload struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
	// Origin 仅在没有 Origin 请求头时使用
	Origin string `json:"origin,omitempty"`
}

// Validate validates PostRequestPayload
func (m *PostRequestPayload) Validate(formats strfmt.Registry) error {
	var res []error

	if err := validate.RequiredString("id", "body", m.ID); err != nil {
		res = append(res, err)
	} else if err := validate.MaxLength("id", "body", m.ID, 256); err != nil {
		res = append(res, err)
	}

	if err := validate.RequiredString("type", "body", m.Type); err != nil {
		res = append(res, err)
	}

	if m.Origin != "" {
		if err := validate.MaxLength("origin", "body", m.Origin, 2048); err != nil {
			res = append(res, err)
		}
	}

	if len(res) > 0 {
		return errors.CompositeValidationError(res...)
	}
	return nil
}

// ContextValidate validates this payload based on context it is used
func (m *PostRequestPayload) ContextValidate(ctx context.Context, formats strfmt.Registry) error {
	return nil
}

// MarshalBinary interface implementation
func (m *PostRequestPayload) MarshalBinary() ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	return swag.WriteJSON(m)
}

// UnmarshalBinary interface implementation
func (m *PostRequestPayload) UnmarshalBinary(b []byte) error {
	var res PostRequestPayload
	if err := swag.ReadJSON(b, &res); err != nil {
		return err
	}
	*m = res
	return nil
}
