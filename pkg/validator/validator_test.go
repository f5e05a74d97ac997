package validator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type interestPayload struct {
	OpportunityID string `json:"opportunity_id" validate:"required,uuid4"`
	Reason        string `json:"reason" validate:"max=500"`
}

func TestValidateStructReportsJSONFieldNames(t *testing.T) {
	err := ValidateStruct(&interestPayload{})
	require.Error(t, err)

	failures, ok := err.(ValidationErrors)
	require.True(t, ok)
	require.Len(t, failures, 1)
	require.Equal(t, "opportunity_id", failures[0].Field)
	require.Equal(t, "required", failures[0].Tag)
}

func TestValidateStructPassesValidPayload(t *testing.T) {
	payload := interestPayload{OpportunityID: "0b6f1a52-9f9f-4f6e-95a0-0f6eae2f8b11"}
	require.NoError(t, ValidateStruct(&payload))
}

func TestValidationErrorsMessage(t *testing.T) {
	errs := ValidationErrors{
		{Field: "reason", Tag: "max", Param: "500"},
	}
	require.Contains(t, errs.Error(), "reason: max=500")
}
