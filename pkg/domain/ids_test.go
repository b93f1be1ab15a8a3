package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "chainguard/pkg/domain-errors"
)

// TestParseEvidenceID_Invariants validates that identifiers embedded in
// composite keys are non-empty and free of separators.
func TestParseEvidenceID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseEvidenceID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("rejects whitespace only", func(t *testing.T) {
		_, err := ParseEvidenceID("   ")
		require.Error(t, err)
	})

	t.Run("rejects key separator", func(t *testing.T) {
		_, err := ParseEvidenceID("E1\x1fE2")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("rejects overlong ids", func(t *testing.T) {
		_, err := ParseEvidenceID(strings.Repeat("a", maxIDLength+1))
		require.Error(t, err)
	})

	t.Run("accepts printable ids", func(t *testing.T) {
		id, err := ParseEvidenceID("E1")
		require.NoError(t, err)
		assert.Equal(t, EvidenceID("E1"), id)
	})
}

func TestParseCustodianRef(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    CustodianRef
		wantErr bool
	}{
		{name: "issuer and subject", input: "OrgB:Bob", want: CustodianRef{Issuer: "OrgB", Subject: "Bob"}},
		{name: "subject with colon", input: "OrgB:x509::CN=Bob", want: CustodianRef{Issuer: "OrgB", Subject: "x509::CN=Bob"}},
		{name: "missing separator", input: "Bob", wantErr: true},
		{name: "empty issuer", input: ":Bob", wantErr: true},
		{name: "empty subject", input: "OrgB:", wantErr: true},
		{name: "control character", input: "OrgB:\x00Bob", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCustodianRef(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.input, got.String())
		})
	}
}

func TestIdentity(t *testing.T) {
	id := Identity{Issuer: "OrgA", Subject: "Alice", Role: RoleCustodian}
	assert.Equal(t, "OrgA:Alice", id.Actor())
	assert.True(t, id.HasRole())
	assert.True(t, id.Role.Known())
	assert.False(t, Role("janitor").Known())
	assert.False(t, Identity{Issuer: "OrgA", Subject: "Alice"}.HasRole())
}
