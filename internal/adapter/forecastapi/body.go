package forecastapi

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"strings"
)

// Media types the forecast service answers with.
const (
	MediaTypeJSON = "application/json"
	MediaTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MediaTypeXLS  = "application/vnd.ms-excel"
)

// Body is a decoded response payload: JSONBody, BinaryBody, or TextBody.
// The variant is chosen once from the response Content-Type.
type Body interface {
	isBody()
}

// JSONBody holds a syntactically valid JSON document.
type JSONBody struct {
	Raw json.RawMessage
}

// Decode unmarshals the document into v.
func (b JSONBody) Decode(v any) error {
	if err := json.Unmarshal(b.Raw, v); err != nil {
		return fmt.Errorf("decode json body: %w", err)
	}
	return nil
}

// BinaryBody holds a spreadsheet payload and the headers it arrived with.
type BinaryBody struct {
	Data   []byte
	Header http.Header
}

// TextBody holds any other payload as text.
type TextBody struct {
	Text string
}

func (JSONBody) isBody()   {}
func (BinaryBody) isBody() {}
func (TextBody) isBody()   {}

type bodyKind int

const (
	kindText bodyKind = iota
	kindJSON
	kindBinary
)

func classify(contentType string) bodyKind {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType, _, _ = strings.Cut(contentType, ";")
		mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	}
	switch {
	case mediaType == MediaTypeJSON, strings.HasSuffix(mediaType, "+json"):
		return kindJSON
	case mediaType == MediaTypeXLSX, mediaType == MediaTypeXLS:
		return kindBinary
	default:
		return kindText
	}
}

// errorMessage picks the most useful description of a failed response:
// a JSON "error" or "message" string, then the raw text, then the status.
func errorMessage(kind bodyKind, data []byte, status int) string {
	if kind == kindJSON || json.Valid(data) {
		var fields map[string]any
		if err := json.Unmarshal(data, &fields); err == nil {
			for _, key := range []string{"error", "message"} {
				if s, ok := fields[key].(string); ok && strings.TrimSpace(s) != "" {
					return s
				}
			}
		}
	}
	if kind != kindBinary {
		if text := strings.TrimSpace(string(data)); text != "" {
			return text
		}
	}
	return fmt.Sprintf("request failed with status %d", status)
}
