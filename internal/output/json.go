package output

import "encoding/json"

// JSONFormatter renders snapshots as JSON.
type JSONFormatter struct {
	Indent bool
}

// FormatSnapshot renders a snapshot as JSON.
func (f *JSONFormatter) FormatSnapshot(s Snapshot) (string, error) {
	return f.FormatValue(s)
}

// FormatValue renders any JSON-encodable value.
func (f *JSONFormatter) FormatValue(v any) (string, error) {
	var (
		data []byte
		err  error
	)

	if f.Indent {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return "", err
	}

	return string(data), nil
}
