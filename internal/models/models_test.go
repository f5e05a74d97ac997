package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpportunityRefValidation(t *testing.T) {
	ref, err := NewOpportunityRef(KindMna, "opp-1")
	require.NoError(t, err)
	require.Equal(t, KindMna, ref.Kind)
	require.False(t, ref.IsZero())

	_, err = NewOpportunityRef("PRIVATE_EQUITY", "opp-1")
	require.Error(t, err)

	_, err = NewOpportunityRef(KindRealEstate, "")
	require.Error(t, err)
}

func TestNotificationRefRoundTrip(t *testing.T) {
	kind := KindRealEstate
	id := "opp-9"
	n := Notification{OpportunityID: &id, OpportunityKind: &kind}
	require.Equal(t, OpportunityRef{Kind: KindRealEstate, ID: "opp-9"}, n.Ref())

	require.True(t, (&Notification{}).Ref().IsZero())
}

func TestUserFullName(t *testing.T) {
	u := User{Email: "jo@example.com"}
	require.Equal(t, "jo@example.com", u.FullName())

	u.FirstName = "Jo"
	require.Equal(t, "Jo", u.FullName())

	u.LastName = "Vermeer"
	require.Equal(t, "Jo Vermeer", u.FullName())
}

func TestStaffRoles(t *testing.T) {
	require.True(t, (&User{Role: RoleAdmin}).IsStaff())
	require.True(t, (&User{Role: RoleTeam}).IsStaff())
	require.False(t, (&User{Role: RoleInvestor}).IsStaff())
	require.False(t, (&User{Role: RoleAdvisor}).IsStaff())
}
