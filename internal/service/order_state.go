package service

import (
	"sort"

	"github.com/orderpulse/internal/constants"
)

// stateRanks 管理状态的流水线序号。
// 主线 1..14 严格递增；取消与驳回类状态位于 100 以上，不参与回退判定。
var stateRanks = map[string]int{
	constants.ManagementStatePending:             1,
	constants.ManagementStateFinancePending:      2,
	constants.ManagementStateFinancialReviewing:  3,
	constants.ManagementStateFinancialApproved:   4,
	constants.ManagementStateWarehousePending:    5,
	constants.ManagementStateWarehouseProcessing: 6,
	constants.ManagementStateWarehouseApproved:   7,
	constants.ManagementStateLogisticsAssigned:   8,
	constants.ManagementStateLogisticsProcessing: 9,
	constants.ManagementStateLogisticsDispatched: 10,
	constants.ManagementStateInTransit:           11,
	constants.ManagementStateLogisticsDelivered:  12,
	constants.ManagementStateDelivered:           13,
	constants.ManagementStateCompleted:           14,

	constants.ManagementStateCancelled:         100,
	constants.ManagementStateFinancialRejected: 101,
	constants.ManagementStateWarehouseRejected: 102,
}

// terminalStates 吸收态：到达后对账不再纠偏
var terminalStates = map[string]bool{
	constants.ManagementStateDelivered:         true,
	constants.ManagementStateCompleted:         true,
	constants.ManagementStateCancelled:         true,
	constants.ManagementStateFinancialRejected: true,
	constants.ManagementStateWarehouseRejected: true,
}

// departmentWindows 各部门可操作的状态序号窗口 [min, max]
var departmentWindows = map[string][2]int{
	constants.DepartmentFinancial: {
		stateRanks[constants.ManagementStateFinancePending],
		stateRanks[constants.ManagementStateFinancialReviewing],
	},
	constants.DepartmentWarehouse: {
		stateRanks[constants.ManagementStateFinancialApproved],
		stateRanks[constants.ManagementStateWarehouseProcessing],
	},
	constants.DepartmentLogistics: {
		stateRanks[constants.ManagementStateWarehouseApproved],
		stateRanks[constants.ManagementStateLogisticsDispatched],
	},
}

// StateRank 返回状态序号；未知状态返回 0
func StateRank(state string) int {
	return stateRanks[state]
}

// IsKnownState 判断是否为已定义的管理状态
func IsKnownState(state string) bool {
	_, ok := stateRanks[state]
	return ok
}

// IsTerminalState 判断是否为吸收态
func IsTerminalState(state string) bool {
	return terminalStates[state]
}

// IsOutOfBandState 判断是否为取消/驳回类状态（不受回退限制）
func IsOutOfBandState(state string) bool {
	return stateRanks[state] >= 100
}

// IsRegression 判断从 from 到 to 的流转是否为回退。
// 豁免只看目标侧：目标为取消/驳回类状态时不算回退。
// 当前已在取消/驳回类状态（吸收态）时，任何回到主线的流转都是回退。
func IsRegression(from, to string) bool {
	fromRank, ok := stateRanks[from]
	if !ok {
		return false
	}
	toRank, ok := stateRanks[to]
	if !ok {
		return false
	}
	if toRank >= 100 {
		return false
	}
	return toRank < fromRank
}

// DepartmentMayAct 判断部门是否有权在 current 状态下操作。
// 超级部门（system）不受窗口限制。
func DepartmentMayAct(department, current string) bool {
	if department == constants.DepartmentSystem {
		return true
	}
	window, ok := departmentWindows[department]
	if !ok {
		return false
	}
	rank, ok := stateRanks[current]
	if !ok {
		return false
	}
	return rank >= window[0] && rank <= window[1]
}

// DepartmentVisibleStates 返回部门队列可见的状态集合。
// 可见性是对 current_state 的纯谓词，与窗口一致。
func DepartmentVisibleStates(department string) []string {
	window, ok := departmentWindows[department]
	if !ok {
		return nil
	}
	states := make([]string, 0, window[1]-window[0]+1)
	for state, rank := range stateRanks {
		if rank >= window[0] && rank <= window[1] {
			states = append(states, state)
		}
	}
	sort.Slice(states, func(i, j int) bool {
		return stateRanks[states[i]] < stateRanks[states[j]]
	})
	return states
}
