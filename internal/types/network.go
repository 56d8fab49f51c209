package types

import (
	"context"
	"fmt"
	"strings"

	"github.com/SafeMPC/wallet-bridge/internal/identity"
	"github.com/go-openapi/errors"
	"github.com/go-openapi/strfmt"
	"github.com/go-openapi/swag"
	"github.com/go-openapi/validate"
)

// Network 网络描述
type Network struct {
	Name       string              `json:"name"`
	Blockchain identity.Blockchain `json:"blockchain"`
	Protocol   string              `json:"protocol"`
	Host       string              `json:"host"`
	Port       int64               `json:"port"`
	ChainID    string              `json:"chain_id"`
}

// Validate 网络描述有效性：必需字段齐全且格式正确
func (m *Network) Validate(formats strfmt.Registry) error {
	var res []error

	if err := validate.RequiredString("blockchain", "body", string(m.Blockchain)); err != nil {
		res = append(res, err)
	}

	if err := validate.RequiredString("chain_id", "body", m.ChainID); err != nil {
		res = append(res, err)
	}

	if err := validate.RequiredString("host", "body", m.Host); err != nil {
		res = append(res, err)
	} else if strings.ContainsAny(m.Host, "/ :@?#") {
		res = append(res, errors.InvalidType("host", "body", "hostname", m.Host))
	}

	if err := validate.RequiredString("protocol", "body", m.Protocol); err != nil {
		res = append(res, err)
	} else if err := validate.EnumCase("protocol", "body", m.Protocol, []interface{}{"http", "https"}, false); err != nil {
		res = append(res, err)
	}

	if err := validate.MinimumInt("port", "body", m.Port, 1, false); err != nil {
		res = append(res, err)
	}

	if err := validate.MaximumInt("port", "body", m.Port, 65535, false); err != nil {
		res = append(res, err)
	}

	if len(res) > 0 {
		return errors.CompositeValidationError(res...)
	}
	return nil
}

// ContextValidate validates this payload based on context it is used
func (m *Network) ContextValidate(ctx context.Context, formats strfmt.Registry) error {
	return nil
}

// Endpoint protocol://host:port
func (m *Network) Endpoint() string {
	return fmt.Sprintf("%s://%s:%d", strings.ToLower(m.Protocol), strings.ToLower(m.Host), m.Port)
}

// UniqueKey 唯一键由链ID和端点决定，与显示名称无关
func (m *Network) UniqueKey() string {
	return fmt.Sprintf("%s:%s@%s", m.Blockchain, m.ChainID, m.Endpoint())
}

// Ref 转换为身份请求中的网络引用
func (m *Network) Ref() identity.NetworkRef {
	return identity.NetworkRef{Blockchain: m.Blockchain, ChainID: m.ChainID}
}

// MarshalBinary interface implementation
func (m *Network) MarshalBinary() ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	return swag.WriteJSON(m)
}

// UnmarshalBinary interface implementation
func (m *Network) UnmarshalBinary(b []byte) error {
	var res Network
	if err := swag.ReadJSON(b, &res); err != nil {
		return err
	}
	*m = res
	return nil
}
