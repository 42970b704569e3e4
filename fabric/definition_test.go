package fabric

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wireText builds the wire form of a text payload.
func wireText(t *testing.T, path, content string) WirePart {
	t.Helper()

	return WirePart{
		Path:        path,
		Payload:     base64.StdEncoding.EncodeToString([]byte(content)),
		PayloadType: PayloadInlineBase64,
	}
}

func TestDefinition_RoundTripExact(t *testing.T) {
	manifest := `{"$schema":"s","metadata":{"type":"ApacheAirflowJob"}}`
	wire := []WirePart{
		wireText(t, ".platform", manifest),
		wireText(t, "dags/a.py", "print(1)"),
	}

	def, err := DecodeDefinition("my-job", "", wire)
	require.NoError(t, err)
	require.Equal(t, 2, def.Len())

	dag, ok := def.Part("dags/a.py")
	require.True(t, ok)
	text, ok := dag.Text()
	require.True(t, ok)
	assert.Equal(t, "print(1)", text)

	encoded, err := def.Encode()
	require.NoError(t, err)
	assert.Equal(t, wire, encoded.Definition.Parts)
}

func TestDefinition_EmptyRoundTrip(t *testing.T) {
	def, err := DecodeDefinition("my-job", "", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, def.Len())

	encoded, err := def.Encode()
	require.NoError(t, err)
	assert.Empty(t, encoded.Definition.Parts)
}

func TestDefinition_BinaryRoundTrip(t *testing.T) {
	payload := []byte{0x00, 0x9f, 0x92, 0xff}
	wire := []WirePart{{
		Path:        "plugins/blob.bin",
		Payload:     base64.StdEncoding.EncodeToString(payload),
		PayloadType: PayloadInlineBase64,
	}}

	def, err := DecodeDefinition("my-job", "", wire)
	require.NoError(t, err)

	part, ok := def.Part("plugins/blob.bin")
	require.True(t, ok)
	raw, ok := part.Raw()
	require.True(t, ok)
	assert.Equal(t, payload, raw)

	_, isText := part.Text()
	assert.False(t, isText)

	encoded, err := def.Encode()
	require.NoError(t, err)
	assert.Equal(t, wire, encoded.Definition.Parts)
}

func TestDefinition_UnknownPayloadTypePassesThrough(t *testing.T) {
	wire := []WirePart{{
		Path:        "external/ref",
		Payload:     "opaque-token-not-base64!!",
		PayloadType: "ExternalReference",
	}}

	def, err := DecodeDefinition("my-job", "", wire)
	require.NoError(t, err)

	part, ok := def.Part("external/ref")
	require.True(t, ok)
	assert.Equal(t, PayloadType("ExternalReference"), part.PayloadType())

	encoded, err := def.Encode()
	require.NoError(t, err)
	assert.Equal(t, wire, encoded.Definition.Parts)
}

func TestDefinition_InvalidBase64Rejected(t *testing.T) {
	wire := []WirePart{{
		Path:        "dags/bad.py",
		Payload:     "!!!not base64!!!",
		PayloadType: PayloadInlineBase64,
	}}

	_, err := DecodeDefinition("my-job", "", wire)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dags/bad.py")
}

func TestDefinition_AddPartReplacesSamePath(t *testing.T) {
	def := &Definition{DisplayName: "my-job"}

	def.AddPart(TextPart("dags/a.py", "print(1)"))
	def.AddPart(TextPart("dags/a.py", "print(2)"))

	require.Equal(t, 1, def.Len())
	part, ok := def.Part("dags/a.py")
	require.True(t, ok)
	text, _ := part.Text()
	assert.Equal(t, "print(2)", text)
}

func TestDefinition_PathMatchIsExact(t *testing.T) {
	def := &Definition{DisplayName: "my-job"}
	def.AddPart(TextPart("dags/a.py", "print(1)"))

	_, ok := def.Part("dags/A.py")
	assert.False(t, ok)
	_, ok = def.Part("a.py")
	assert.False(t, ok)
}

func TestDefinition_RemovePart(t *testing.T) {
	def := &Definition{DisplayName: "my-job"}
	def.AddPart(TextPart("dags/a.py", "print(1)"))

	assert.True(t, def.RemovePart("dags/a.py"))
	assert.False(t, def.RemovePart("dags/a.py"))
	assert.Equal(t, 0, def.Len())
}

func TestDocumentPart_JSONAdoptsParsedValue(t *testing.T) {
	def := &Definition{DisplayName: "my-job"}
	def.AddPart(TextPart("conf.json", `{"retries":1}`))

	part, _ := def.Part("conf.json")
	v, err := part.JSON()
	require.NoError(t, err)

	// The parsed structure is now authoritative; mutations feed Encode.
	v.(map[string]any)["retries"] = float64(5)

	encoded, err := def.Encode()
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(encoded.Definition.Parts[0].Payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"retries":5}`, string(raw))
}

func TestDocumentPart_JSONOnNonJSONPayload(t *testing.T) {
	part := TextPart("dags/a.py", "print(1)")

	_, err := part.JSON()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotJSON))

	// The original text payload survives the failed parse.
	text, ok := part.Text()
	require.True(t, ok)
	assert.Equal(t, "print(1)", text)
}

func TestNewDefinition_SeedsManifestAndContent(t *testing.T) {
	def := NewDefinition("my-job", DefaultJobConfig())

	require.Equal(t, 2, def.Len())

	manifest, ok := def.Part(ManifestPath)
	require.True(t, ok)
	v, err := manifest.JSON()
	require.NoError(t, err)

	m := v.(map[string]any)
	metadata := m["metadata"].(map[string]any)
	assert.Equal(t, ItemType, metadata["type"])
	assert.Equal(t, "my-job", metadata["displayName"])

	config := m["config"].(map[string]any)
	assert.Equal(t, "2.0", config["version"])
	assert.NotEmpty(t, config["logicalId"])

	content, ok := def.Part(ContentPath)
	require.True(t, ok)
	cv, err := content.JSON()
	require.NoError(t, err)

	data, err := json.Marshal(cv)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"Airflow"`)
	assert.Contains(t, string(data), `"computePool":"StarterPool"`)
}

func TestDefinition_EncodeOrderIsDocumentOrder(t *testing.T) {
	def := &Definition{DisplayName: "my-job"}
	def.AddPart(TextPart("z.txt", "z"))
	def.AddPart(TextPart("a.txt", "a"))
	def.AddPart(TextPart("m.txt", "m"))

	encoded, err := def.Encode()
	require.NoError(t, err)

	paths := make([]string, 0, len(encoded.Definition.Parts))
	for _, p := range encoded.Definition.Parts {
		paths = append(paths, p.Path)
	}

	assert.Equal(t, []string{"z.txt", "a.txt", "m.txt"}, paths)
}

func TestDefinitionRequest_WireShape(t *testing.T) {
	def := &Definition{DisplayName: "my-job", Description: "desc"}
	def.AddPart(TextPart("dags/a.py", "print(1)"))

	encoded, err := def.Encode()
	require.NoError(t, err)

	data, err := json.Marshal(encoded)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"displayName": "my-job",
		"description": "desc",
		"definition": {
			"parts": [
				{"path": "dags/a.py", "payload": "cHJpbnQoMSk=", "payloadType": "InlineBase64"}
			]
		}
	}`, string(data))
}
