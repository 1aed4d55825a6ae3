package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"

	dErrors "repute/pkg/domain-errors"
)

func TestParseDID(t *testing.T) {
	t.Run("extracts final segment as owner key", func(t *testing.T) {
		key, err := ParseDID("did:sol:devnet:Abc123")
		assert.NoError(t, err)
		assert.Equal(t, "Abc123", key)
	})

	t.Run("accepts exactly three segments", func(t *testing.T) {
		key, err := ParseDID("did:sol:SomeKey")
		assert.NoError(t, err)
		assert.Equal(t, "SomeKey", key)
	})

	t.Run("rejects fewer than three segments", func(t *testing.T) {
		for _, did := range []string{"", "did", "did:sol", "plainstring"} {
			_, err := ParseDID(did)
			assert.Error(t, err, "did=%q", did)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
		}
	})

	t.Run("rejects empty final segment", func(t *testing.T) {
		_, err := ParseDID("did:sol:devnet:")
		assert.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})
}
