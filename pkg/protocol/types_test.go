package protocol_test

import (
	"encoding/json"
	"testing"

	"release-portal/pkg/protocol"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSizeBytesBeyondFloatPrecision(t *testing.T) {
	// 2^53 + 1 用 float64 表示会丢精度
	v := protocol.SoftwareVersion{SizeBytes: 9007199254740993}

	data, err := json.Marshal(v)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"sizeBytes":"9007199254740993"`)

	var back protocol.SoftwareVersion
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, protocol.SizeBytes(9007199254740993), back.SizeBytes)
}

func TestSizeBytesAcceptsNumberAndString(t *testing.T) {
	var body struct {
		Size protocol.SizeBytes `json:"sizeBytes"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"sizeBytes": 5000}`), &body))
	assert.Equal(t, protocol.SizeBytes(5000), body.Size)

	require.NoError(t, json.Unmarshal([]byte(`{"sizeBytes": "9223372036854775807"}`), &body))
	assert.Equal(t, protocol.SizeBytes(9223372036854775807), body.Size)

	assert.Error(t, json.Unmarshal([]byte(`{"sizeBytes": "12abc"}`), &body))
	assert.Error(t, json.Unmarshal([]byte(`{"sizeBytes": -1}`), &body))
	assert.Error(t, json.Unmarshal([]byte(`{"sizeBytes": 1.5}`), &body))
}

func TestVersionRefNumberOrString(t *testing.T) {
	var req struct {
		VersionID protocol.VersionRef `json:"versionId"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"versionId": 12}`), &req))
	assert.Equal(t, protocol.VersionRef("12"), req.VersionID)

	require.NoError(t, json.Unmarshal([]byte(`{"versionId": " 1.2.0 "}`), &req))
	assert.Equal(t, protocol.VersionRef("1.2.0"), req.VersionID)

	assert.Error(t, json.Unmarshal([]byte(`{"versionId": true}`), &req))
}
