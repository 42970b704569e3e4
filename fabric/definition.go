package fabric

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"
)

// PayloadType identifies the wire encoding of a definition part's payload.
// Only InlineBase64 is decoded today; other values are carried opaque
// pending future support.
type PayloadType string

// PayloadInlineBase64 is the only payload encoding the service currently
// emits: the part content base64-encoded inline in the JSON document.
const PayloadInlineBase64 PayloadType = "InlineBase64"

const (
	// ManifestPath is the fixed path of the platform manifest part seeded
	// into every builder-constructed definition.
	ManifestPath = ".platform"

	// ContentPath is the well-known path of the job configuration part.
	ContentPath = "apacheairflowjob-content.json"

	manifestSchema = "https://developer.microsoft.com/json-schemas/fabric/gitIntegration/platformProperties/2.0.0/schema.json"

	// ItemType is the Fabric item type for Apache Airflow jobs.
	ItemType = "ApacheAirflowJob"
)

// ErrNotJSON signals that a part's payload could not be parsed as JSON.
// The part's original payload is left untouched.
var ErrNotJSON = errors.New("fabric: part payload is not valid JSON")

// payloadKind discriminates the authoritative in-memory representation of a
// part's payload. Exactly one representation is authoritative at a time.
type payloadKind int

const (
	payloadText payloadKind = iota
	payloadStructured
	payloadRaw
	payloadOpaque // undecoded wire payload of an unsupported PayloadType
)

// DocumentPart is one named, independently addressable chunk of a
// definition. The payload is held decoded (text, structured JSON value, or
// raw bytes); encoding to the wire form happens only in Definition.Encode.
type DocumentPart struct {
	Path string

	payloadType PayloadType
	kind        payloadKind
	text        string
	structured  any
	raw         []byte
	opaque      string
}

// TextPart creates a part whose payload is decoded text.
func TextPart(path, content string) DocumentPart {
	return DocumentPart{Path: path, payloadType: PayloadInlineBase64, kind: payloadText, text: content}
}

// JSONPart creates a part whose payload is a structured JSON-serializable
// value. The value is retained as-is until encode time.
func JSONPart(path string, content any) DocumentPart {
	return DocumentPart{Path: path, payloadType: PayloadInlineBase64, kind: payloadStructured, structured: content}
}

// BinaryPart creates a part whose payload is raw bytes.
func BinaryPart(path string, content []byte) DocumentPart {
	return DocumentPart{Path: path, payloadType: PayloadInlineBase64, kind: payloadRaw, raw: content}
}

// PayloadType returns the part's wire encoding kind.
func (p *DocumentPart) PayloadType() PayloadType {
	return p.payloadType
}

// Text returns the payload as text and whether text is its authoritative
// representation.
func (p *DocumentPart) Text() (string, bool) {
	if p.kind != payloadText {
		return "", false
	}

	return p.text, true
}

// Raw returns the payload as raw bytes and whether bytes are its
// authoritative representation.
func (p *DocumentPart) Raw() ([]byte, bool) {
	if p.kind != payloadRaw {
		return nil, false
	}

	return p.raw, true
}

// JSON returns the payload parsed as JSON. On the first successful parse the
// parsed value becomes the part's authoritative payload, so mutations of the
// returned structure are visible to later Encode calls without reassignment.
// Returns ErrNotJSON on parse failure, leaving the original payload intact.
func (p *DocumentPart) JSON() (any, error) {
	switch p.kind {
	case payloadStructured:
		return p.structured, nil
	case payloadText, payloadRaw:
		data := p.raw
		if p.kind == payloadText {
			data = []byte(p.text)
		}

		var v any
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("%w: %q", ErrNotJSON, p.Path)
		}

		p.kind = payloadStructured
		p.structured = v
		p.text = ""
		p.raw = nil

		return v, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrNotJSON, p.Path)
	}
}

// payloadBytes serializes the authoritative payload to bytes: structured
// content as canonical JSON text, text as UTF-8, raw bytes unchanged.
func (p *DocumentPart) payloadBytes() ([]byte, error) {
	switch p.kind {
	case payloadText:
		return []byte(p.text), nil
	case payloadStructured:
		data, err := json.Marshal(p.structured)
		if err != nil {
			return nil, fmt.Errorf("fabric: encoding part %q: %w", p.Path, err)
		}

		return data, nil
	case payloadRaw:
		return p.raw, nil
	default:
		return nil, fmt.Errorf("fabric: part %q has no decodable payload", p.Path)
	}
}

// WirePart is the bit-exact wire form of one definition part.
type WirePart struct {
	Path        string      `json:"path"`
	Payload     string      `json:"payload"`
	PayloadType PayloadType `json:"payloadType"`
}

// PartList is the parts container inside the wire definition document.
type PartList struct {
	Parts []WirePart `json:"parts"`
}

// DefinitionRequest is the wire form of a complete definition document, as
// sent to create/updateDefinition endpoints.
type DefinitionRequest struct {
	DisplayName string   `json:"displayName"`
	Description string   `json:"description,omitempty"`
	Definition  PartList `json:"definition"`
}

// Definition represents a job's configuration and files as an ordered,
// path-keyed list of content parts. Parts are held decoded; the wire
// encoding happens in Encode, immediately before a network call.
type Definition struct {
	DisplayName string
	Description string

	parts []*DocumentPart
}

// NewDefinition builds a fresh definition: the platform manifest part is
// seeded at ManifestPath and the job configuration at ContentPath. Further
// parts (DAG files, plugins, requirements) are added with AddPart.
func NewDefinition(displayName string, cfg JobConfig) *Definition {
	d := &Definition{DisplayName: displayName}

	d.AddPart(JSONPart(ManifestPath, map[string]any{
		"$schema": manifestSchema,
		"metadata": map[string]any{
			"type":        ItemType,
			"displayName": displayName,
		},
		"config": map[string]any{
			"version":   "2.0",
			"logicalId": uuid.NewString(),
		},
	}))
	d.AddPart(JSONPart(ContentPath, cfg.document()))

	return d
}

// DecodeDefinition reconstructs a definition from the wire form of a remote
// fetch. InlineBase64 payloads are base64-decoded, then kept as text when
// they decode as UTF-8 and as raw bytes otherwise. Parts with other payload
// types are stored unmodified.
func DecodeDefinition(displayName, description string, parts []WirePart) (*Definition, error) {
	d := &Definition{DisplayName: displayName, Description: description}

	for _, wp := range parts {
		if wp.PayloadType != PayloadInlineBase64 {
			d.AddPart(DocumentPart{
				Path:        wp.Path,
				payloadType: wp.PayloadType,
				kind:        payloadOpaque,
				opaque:      wp.Payload,
			})

			continue
		}

		raw, err := base64.StdEncoding.DecodeString(wp.Payload)
		if err != nil {
			return nil, fmt.Errorf("fabric: decoding part %q: %w", wp.Path, err)
		}

		if utf8.Valid(raw) {
			d.AddPart(TextPart(wp.Path, string(raw)))
		} else {
			d.AddPart(BinaryPart(wp.Path, raw))
		}
	}

	return d, nil
}

// AddPart inserts a part. A part already occupying the same path is removed
// first, so at most one part per path exists after the call. Path matching
// is exact and case-sensitive.
func (d *Definition) AddPart(part DocumentPart) {
	d.RemovePart(part.Path)
	d.parts = append(d.parts, &part)
}

// Part returns the part at the given path, or false when absent. Lookup is
// exact match only.
func (d *Definition) Part(path string) (*DocumentPart, bool) {
	for _, p := range d.parts {
		if p.Path == path {
			return p, true
		}
	}

	return nil, false
}

// RemovePart deletes the part at the given path, reporting whether one
// existed.
func (d *Definition) RemovePart(path string) bool {
	for i, p := range d.parts {
		if p.Path == path {
			d.parts = append(d.parts[:i], d.parts[i+1:]...)
			return true
		}
	}

	return false
}

// Parts returns the parts in document order.
func (d *Definition) Parts() []*DocumentPart {
	out := make([]*DocumentPart, len(d.parts))
	copy(out, d.parts)

	return out
}

// Len returns the number of parts.
func (d *Definition) Len() int {
	return len(d.parts)
}

// Encode serializes the definition to its wire form. This is the only place
// encoding happens: each payload is serialized to bytes and base64-encoded.
// Opaque parts of unsupported payload types pass through unchanged.
func (d *Definition) Encode() (*DefinitionRequest, error) {
	req := &DefinitionRequest{
		DisplayName: d.DisplayName,
		Description: d.Description,
		Definition:  PartList{Parts: make([]WirePart, 0, len(d.parts))},
	}

	for _, p := range d.parts {
		if p.kind == payloadOpaque {
			req.Definition.Parts = append(req.Definition.Parts, WirePart{
				Path:        p.Path,
				Payload:     p.opaque,
				PayloadType: p.payloadType,
			})

			continue
		}

		data, err := p.payloadBytes()
		if err != nil {
			return nil, err
		}

		req.Definition.Parts = append(req.Definition.Parts, WirePart{
			Path:        p.Path,
			Payload:     base64.StdEncoding.EncodeToString(data),
			PayloadType: p.payloadType,
		})
	}

	return req, nil
}
