package dispatch

import (
	"encoding/json"

	"github.com/SafeMPC/wallet-bridge/internal/identity"
	"github.com/SafeMPC/wallet-bridge/internal/types"
)

// Request 来源提交的请求
type Request struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Origin  string          `json:"origin"`
}

// Response 成功时只有 result，失败时只有 error
type Response struct {
	ID     string
	Result interface{}
	Error  *types.Error
}

func (r Response) MarshalJSON() ([]byte, error) {
	if r.Error != nil {
		return json.Marshal(struct {
			ID    string       `json:"id"`
			Error *types.Error `json:"error"`
		}{r.ID, r.Error})
	}
	return json.Marshal(struct {
		ID     string      `json:"id"`
		Result interface{} `json:"result"`
	}{r.ID, r.Result})
}

type identityPayload struct {
	Fields identity.RequiredFields `json:"fields"`
}

type authenticatePayload struct {
	Nonce string `json:"nonce"`
}

type arbitrarySignaturePayload struct {
	PublicKey string `json:"publicKey"`
	Data      string `json:"data"`
	IsHash    bool   `json:"isHash"`
}

type networkPayload struct {
	Network *types.Network `json:"network"`
}

// SignatureResult requestSignature 的结果
type SignatureResult struct {
	Signatures     []string       `json:"signatures"`
	ReturnedFields ReturnedFields `json:"returnedFields"`
}

// ReturnedFields 随签名一起返回给来源的身份字段
type ReturnedFields struct {
	Personal map[string]string `json:"personal,omitempty"`
	Location map[string]string `json:"location,omitempty"`
}
