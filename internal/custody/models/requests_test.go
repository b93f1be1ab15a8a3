package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	dErrors "chainguard/pkg/domain-errors"
)

func TestCreateEvidenceRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     CreateEvidenceRequest
		wantErr bool
	}{
		{"valid", CreateEvidenceRequest{EvidenceID: "E1", CaseID: "CASE-42"}, false},
		{"missing evidence id", CreateEvidenceRequest{CaseID: "CASE-42"}, true},
		{"missing case id", CreateEvidenceRequest{EvidenceID: "E1"}, true},
		{"separator in id", CreateEvidenceRequest{EvidenceID: "E\x1f1", CaseID: "CASE-42"}, true},
		{"oversized description", CreateEvidenceRequest{EvidenceID: "E1", CaseID: "C", Description: strings.Repeat("x", maxTextLength+1)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.Normalize()
			err := tt.req.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		})
	}
}

func TestTransferRequestRequiresCustodianRef(t *testing.T) {
	req := TransferRequest{EvidenceID: "E1", NewCustodian: "Bob"}
	assert.True(t, dErrors.HasCode(req.Validate(), dErrors.CodeValidation))

	req.NewCustodian = " OrgB:Bob "
	req.Normalize()
	assert.NoError(t, req.Validate())
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("CHECKED_OUT")
	assert.NoError(t, err)
	assert.Equal(t, StatusCheckedOut, s)

	_, err = ParseStatus("LOST")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}
