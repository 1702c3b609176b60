package service

import (
	"testing"

	"github.com/orderpulse/internal/constants"
)

func TestStateRanksStrictlyOrdered(t *testing.T) {
	pipeline := []string{
		constants.ManagementStatePending,
		constants.ManagementStateFinancePending,
		constants.ManagementStateFinancialReviewing,
		constants.ManagementStateFinancialApproved,
		constants.ManagementStateWarehousePending,
		constants.ManagementStateWarehouseProcessing,
		constants.ManagementStateWarehouseApproved,
		constants.ManagementStateLogisticsAssigned,
		constants.ManagementStateLogisticsProcessing,
		constants.ManagementStateLogisticsDispatched,
		constants.ManagementStateInTransit,
		constants.ManagementStateLogisticsDelivered,
		constants.ManagementStateDelivered,
		constants.ManagementStateCompleted,
	}
	for i, state := range pipeline {
		if StateRank(state) != i+1 {
			t.Fatalf("state %s: expected rank %d, got %d", state, i+1, StateRank(state))
		}
	}
	for _, state := range []string{
		constants.ManagementStateCancelled,
		constants.ManagementStateFinancialRejected,
		constants.ManagementStateWarehouseRejected,
	} {
		if StateRank(state) < 100 {
			t.Fatalf("state %s should be out-of-band, got rank %d", state, StateRank(state))
		}
		if !IsOutOfBandState(state) {
			t.Fatalf("state %s should be out-of-band", state)
		}
	}
}

func TestIsRegression(t *testing.T) {
	cases := []struct {
		from string
		to   string
		want bool
	}{
		{constants.ManagementStateWarehousePending, constants.ManagementStateFinancePending, true},
		{constants.ManagementStateCompleted, constants.ManagementStatePending, true},
		{constants.ManagementStateFinancePending, constants.ManagementStateWarehousePending, false},
		{constants.ManagementStateWarehousePending, constants.ManagementStateWarehousePending, false},
		// 取消与驳回不受回退限制
		{constants.ManagementStateLogisticsDispatched, constants.ManagementStateCancelled, false},
		{constants.ManagementStateWarehouseProcessing, constants.ManagementStateWarehouseRejected, false},
		{constants.ManagementStateFinancialReviewing, constants.ManagementStateFinancialRejected, false},
		// 吸收态不可回到主线，豁免只看目标侧
		{constants.ManagementStateCancelled, constants.ManagementStatePending, true},
		{constants.ManagementStateCancelled, constants.ManagementStateWarehousePending, true},
		{constants.ManagementStateFinancialRejected, constants.ManagementStateCompleted, true},
		{constants.ManagementStateWarehouseRejected, constants.ManagementStateInTransit, true},
		// 取消/驳回态之间互转仍豁免
		{constants.ManagementStateCancelled, constants.ManagementStateFinancialRejected, false},
	}
	for _, tc := range cases {
		if got := IsRegression(tc.from, tc.to); got != tc.want {
			t.Fatalf("IsRegression(%s, %s): expected %v, got %v", tc.from, tc.to, tc.want, got)
		}
	}
}

func TestDepartmentMayAct(t *testing.T) {
	cases := []struct {
		department string
		state      string
		want       bool
	}{
		{constants.DepartmentFinancial, constants.ManagementStateFinancePending, true},
		{constants.DepartmentFinancial, constants.ManagementStateFinancialReviewing, true},
		{constants.DepartmentFinancial, constants.ManagementStateWarehousePending, false},
		{constants.DepartmentWarehouse, constants.ManagementStateFinancialApproved, true},
		{constants.DepartmentWarehouse, constants.ManagementStateWarehouseProcessing, true},
		{constants.DepartmentWarehouse, constants.ManagementStateLogisticsAssigned, false},
		{constants.DepartmentLogistics, constants.ManagementStateWarehouseApproved, true},
		{constants.DepartmentLogistics, constants.ManagementStateLogisticsDispatched, true},
		{constants.DepartmentLogistics, constants.ManagementStateFinancePending, false},
		{constants.DepartmentLogistics, constants.ManagementStateInTransit, false},
		{constants.DepartmentSystem, constants.ManagementStatePending, true},
		{constants.DepartmentSystem, constants.ManagementStateCompleted, true},
		{"unknown", constants.ManagementStateFinancePending, false},
	}
	for _, tc := range cases {
		if got := DepartmentMayAct(tc.department, tc.state); got != tc.want {
			t.Fatalf("DepartmentMayAct(%s, %s): expected %v, got %v", tc.department, tc.state, tc.want, got)
		}
	}
}

func TestDepartmentVisibleStates(t *testing.T) {
	visible := DepartmentVisibleStates(constants.DepartmentWarehouse)
	expected := []string{
		constants.ManagementStateFinancialApproved,
		constants.ManagementStateWarehousePending,
		constants.ManagementStateWarehouseProcessing,
	}
	if len(visible) != len(expected) {
		t.Fatalf("expected %d states, got %d: %v", len(expected), len(visible), visible)
	}
	for i, state := range expected {
		if visible[i] != state {
			t.Fatalf("expected %s at position %d, got %s", state, i, visible[i])
		}
	}
	if states := DepartmentVisibleStates("unknown"); states != nil {
		t.Fatalf("expected nil for unknown department, got %v", states)
	}
}
