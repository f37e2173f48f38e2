package cmdhelper

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// Fprintf writes formatted command output, discarding the write error. A
// trailing newline is appended when the format does not already end with one.
func Fprintf(w io.Writer, format string, args ...any) {
	if len(format) == 0 || format[len(format)-1] != '\n' {
		format += "\n"
	}
	_, _ = fmt.Fprintf(w, format, args...)
}

// PrettifyJSON renders data as indented JSON. Byte slices and strings are
// treated as raw JSON and re-indented, everything else is marshaled.
func PrettifyJSON(data any) ([]byte, error) {
	var raw []byte
	switch v := data.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return json.MarshalIndent(data, "", "  ")
	}
	buf := &bytes.Buffer{}
	if err := json.Indent(buf, raw, "", "  "); err != nil {
		return nil, fmt.Errorf("indent json: %w", err)
	}
	return buf.Bytes(), nil
}
