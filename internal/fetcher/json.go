package fetcher

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
)

// DecodeJSONArray decodes a top-level JSON array of objects one element
// at a time. Feeds in this format look like [{...},{...}].
func DecodeJSONArray[T any](r io.Reader) ([]T, error) {
	decoder := json.NewDecoder(r)

	tok, err := decoder.Token()
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, eris.Wrap(err, "json: read opening token")
	}
	delim, ok := tok.(json.Delim)
	if !ok || delim != '[' {
		return nil, eris.Errorf("json: expected '[', got %v", tok)
	}

	var out []T
	for decoder.More() {
		var v T
		if err := decoder.Decode(&v); err != nil {
			return nil, eris.Wrap(err, "json: decode element")
		}
		out = append(out, v)
	}
	return out, nil
}
