package bridge

import (
	"context"
	"strconv"

	"github.com/go-openapi/errors"
	"github.com/go-openapi/strfmt"
	"github.com/go-openapi/validate"

	"github.com/SafeMPC/wallet-bridge/internal/approval"
	"github.com/SafeMPC/wallet-bridge/internal/identity"
	"github.com/SafeMPC/wallet-bridge/internal/types"
)

// ResolveApprovalPayload 持有者对活动审批的决定
type ResolveApprovalPayload struct {
	Accepted          *bool                   `json:"accepted"`
	IdentityPublicKey string                  `json:"identity_public_key,omitempty"`
	Accounts          []identity.Account      `json:"accounts,omitempty"`
	LocationID        string                  `json:"location_id,omitempty"`
	Fields            identity.RequiredFields `json:"fields"`
	Remember          bool                    `json:"remember,omitempty"`
	Unconditional     bool                    `json:"unconditional,omitempty"`
}

// Validate validates ResolveApprovalPayload
func (m *ResolveApprovalPayload) Validate(formats strfmt.Registry) error {
	var res []error

	if err := validate.Required("accepted", "body", m.Accepted); err != nil {
		res = append(res, err)
	}

	if m.Unconditional && !m.Remember {
		res = append(res, errors.New(422, "unconditional in body requires remember"))
	}

	for i, a := range m.Accounts {
		if err := validate.RequiredString("accounts."+strconv.Itoa(i)+".blockchain", "body", string(a.Blockchain)); err != nil {
			res = append(res, err)
		}
		if err := validate.RequiredString("accounts."+strconv.Itoa(i)+".name", "body", a.Name); err != nil {
			res = append(res, err)
		}
	}

	if len(res) > 0 {
		return errors.CompositeValidationError(res...)
	}
	return nil
}

// ContextValidate validates this payload based on context it is used
func (m *ResolveApprovalPayload) ContextValidate(ctx context.Context, formats strfmt.Registry) error {
	return nil
}

// Result 转换为队列的审批结果
func (m *ResolveApprovalPayload) Result() approval.Result {
	if m.Accepted == nil || !*m.Accepted {
		return approval.Rejected()
	}
	return approval.Result{
		Accepted:          true,
		IdentityPublicKey: m.IdentityPublicKey,
		Accounts:          m.Accounts,
		LocationID:        m.LocationID,
		Fields:            m.Fields,
		Remember:          m.Remember,
		Unconditional:     m.Unconditional,
	}
}

// ApprovalResponse 单个审批
type ApprovalResponse struct {
	Approval approval.Request `json:"approval"`
}

// Validate validates ApprovalResponse
func (m *ApprovalResponse) Validate(formats strfmt.Registry) error {
	if err := validate.RequiredString("approval.id", "body", m.Approval.ID); err != nil {
		return err
	}
	return nil
}

// ApprovalListResponse 队列中的审批，第一个为活动审批
type ApprovalListResponse struct {
	Approvals []approval.Request `json:"approvals"`
}

// Validate validates ApprovalListResponse
func (m *ApprovalListResponse) Validate(formats strfmt.Registry) error {
	return nil
}

// NetworkListResponse 已知网络
type NetworkListResponse struct {
	Networks []types.Network `json:"networks"`
}

// Validate validates NetworkListResponse
func (m *NetworkListResponse) Validate(formats strfmt.Registry) error {
	var res []error
	for i := range m.Networks {
		if err := m.Networks[i].Validate(formats); err != nil {
			res = append(res, err)
		}
	}
	if len(res) > 0 {
		return errors.CompositeValidationError(res...)
	}
	return nil
}
