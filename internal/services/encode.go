package services

import (
	"bytes"
	"encoding/json"
	"strings"

	"kopilka/internal/core"
)

// Indent is the indentation of every report document.
const Indent = "    "

// EncodeJSON renders v as indented JSON with non-ASCII and HTML characters
// left as is. Money is written as JSON numbers.
func EncodeJSON(v any) (string, error) {
	core.NumericMoney()
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", Indent)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}
