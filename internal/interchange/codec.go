package interchange

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"

	"github.com/jsamuelsen/promptlib/internal/domain"
)

// Format is a document serialization format.
type Format string

// Supported formats.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat maps a user-supplied name to a Format. The empty string selects JSON.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", domain.NewValidationErrorWithValue("format", "must be json or yaml", s)
	}
}

// ContentType returns the media type for the format.
func (f Format) ContentType() string {
	if f == FormatYAML {
		return "application/yaml"
	}

	return "application/json"
}

// Encode writes doc to w.
func Encode(w io.Writer, doc *Document, format Format) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)

		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encoding yaml document: %w", err)
		}

		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)

		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encoding json document: %w", err)
		}

		return nil
	}
}

// Decode reads a document from r and checks it against the document schema.
//
// Any parse or shape failure is reported as a MalformedDocumentError. Unknown
// fields are ignored. Read errors from r are wrapped, not classified.
func Decode(r io.Reader, format Format) (*Document, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}

	if format == FormatYAML {
		raw, err = yamlToJSON(raw)
		if err != nil {
			return nil, err
		}
	}

	if err := validate(raw); err != nil {
		return nil, err
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, domain.NewMalformedDocumentError(err.Error())
	}

	return &doc, nil
}

// validate checks raw JSON against the embedded schema.
func validate(raw []byte) error {
	sch, err := documentSchema()
	if err != nil {
		return err
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return domain.NewMalformedDocumentError("invalid json: " + err.Error())
	}

	if err := sch.Validate(inst); err != nil {
		return domain.NewMalformedDocumentError(err.Error())
	}

	return nil
}

// yamlToJSON re-encodes a YAML document as JSON so both formats share one
// validation path. YAML timestamps become RFC 3339 strings.
func yamlToJSON(raw []byte) ([]byte, error) {
	var v any
	if err := yaml.Unmarshal(raw, &v); err != nil {
		return nil, domain.NewMalformedDocumentError("invalid yaml: " + err.Error())
	}

	out, err := json.Marshal(v)
	if err != nil {
		return nil, domain.NewMalformedDocumentError("unsupported yaml structure: " + err.Error())
	}

	return out, nil
}
