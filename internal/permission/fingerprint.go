package permission

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/pkg/errors"

	"github.com/SafeMPC/wallet-bridge/internal/chain"
)

// Fingerprint 有序消息序列的规范指纹：SHA-256(CanonicalJSON(messages)) 的 hex
// 消息顺序有意义，字符串按字节比较
func Fingerprint(messages []chain.Message) (string, error) {
	if len(messages) == 0 {
		return "", errors.New("no messages to fingerprint")
	}
	canonical, err := chain.CanonicalJSON(messages)
	if err != nil {
		return "", errors.Wrap(err, "failed to canonicalize messages")
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
