package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRole_Can(t *testing.T) {
	tests := []struct {
		role Role
		cap  Capability
		want bool
	}{
		{RoleEmployee, CapSubmit, true},
		{RoleEmployee, CapApprove, false},
		{RoleEmployee, CapViewAll, false},
		{RoleSupplyChainManager, CapViewAll, true},
		{RoleSupplyChainManager, CapApprove, false},
		{RoleGeneralManager, CapApprove, true},
		{RoleGeneralManager, CapMarkPurchased, false},
		{RoleGeneralManager, CapRetryCart, false},
		{RoleAdmin, CapApprove, true},
		{RoleAdmin, CapMarkPurchased, true},
		{RoleAdmin, CapRetryCart, true},
		{Role("superuser"), CapSubmit, false},
	}

	for _, tt := range tests {
		t.Run(tt.role.String()+"/"+tt.cap.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.role.Can(tt.cap))
		})
	}
}

func TestParseRole(t *testing.T) {
	r, ok := ParseRole("general_manager")
	assert.True(t, ok)
	assert.Equal(t, RoleGeneralManager, r)

	_, ok = ParseRole("GM")
	assert.False(t, ok)
}
