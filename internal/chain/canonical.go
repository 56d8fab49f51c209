package chain

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
)

// CanonicalJSON 结构化规范编码：
// map 键排序、无多余空白、数字保留原始文本、字符串按字节比较（不做 Unicode 规范化）
func CanonicalJSON(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal value")
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic interface{}
	if err := dec.Decode(&generic); err != nil {
		return nil, errors.Wrap(err, "failed to decode value")
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(generic); err != nil {
		return nil, errors.Wrap(err, "failed to encode canonical value")
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
