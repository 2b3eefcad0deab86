package github

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"action":"opened","repository":{"name":"demo"}}`)
	secret := "s3cret"

	tests := []struct {
		name      string
		body      []byte
		signature string
		secret    string
		want      bool
	}{
		{
			name:      "valid signature",
			body:      body,
			signature: SignBody(body, secret),
			secret:    secret,
			want:      true,
		},
		{
			name:      "wrong secret",
			body:      body,
			signature: SignBody(body, "other"),
			secret:    secret,
			want:      false,
		},
		{
			name:      "tampered body",
			body:      []byte(`{"action":"closed"}`),
			signature: SignBody(body, secret),
			secret:    secret,
			want:      false,
		},
		{
			name:      "missing secret fails closed",
			body:      body,
			signature: SignBody(body, secret),
			secret:    "",
			want:      false,
		},
		{
			name:      "missing header fails closed",
			body:      body,
			signature: "",
			secret:    secret,
			want:      false,
		},
		{
			name:      "empty body fails closed",
			body:      nil,
			signature: SignBody(body, secret),
			secret:    secret,
			want:      false,
		},
		{
			name:      "wrong scheme prefix",
			body:      body,
			signature: "sha256=" + SignBody(body, secret)[5:],
			secret:    secret,
			want:      false,
		},
		{
			name:      "malformed hex",
			body:      body,
			signature: "sha1=not-hex",
			secret:    secret,
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, VerifySignature(tt.body, tt.signature, tt.secret))
		})
	}
}

// A payload that is parsed and marshaled again usually differs byte-for-byte
// from what was received, so a signature computed over the re-serialized form
// must not verify. This guards the raw-bytes requirement.
func TestVerifySignatureRejectsReserializedPayload(t *testing.T) {
	raw := []byte(`{"action": "opened",  "number": 7}`)
	secret := "s3cret"
	signature := SignBody(raw, secret)

	var decoded map[string]any
	assert.NoError(t, json.Unmarshal(raw, &decoded))
	reserialized, err := json.Marshal(decoded)
	assert.NoError(t, err)

	assert.NotEqual(t, raw, reserialized)
	assert.True(t, VerifySignature(raw, signature, secret))
	assert.False(t, VerifySignature(reserialized, signature, secret))
}
