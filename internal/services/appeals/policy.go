package appeals

import "github.com/Appeals-service/Appeals-service/internal/domain/enums"

type operation int

const (
	opCreate operation = iota
	opUserEdit
	opExecutorEdit
	opAssign
	opDelete
)

// mutationPolicies is the role-scoped operation matrix. Each entry yields the
// ownership/status constraints applied on top of the appeal id; a role absent
// from an operation's row is not permitted to perform it. Authorization is
// then enforced by the conditional write itself: a filter the actor does not
// satisfy matches zero rows.
var mutationPolicies = map[operation]map[enums.Role]func(actorID string) MutationFilter{
	opUserEdit: {
		enums.RoleUser: func(actorID string) MutationFilter {
			return MutationFilter{UserID: actorID, Status: enums.AppealStatusAccepted}
		},
		enums.RoleAdmin: func(string) MutationFilter { return MutationFilter{} },
	},
	opExecutorEdit: {
		enums.RoleExecutor: func(actorID string) MutationFilter {
			return MutationFilter{ExecutorID: actorID, Status: enums.AppealStatusInProgress}
		},
		enums.RoleAdmin: func(string) MutationFilter { return MutationFilter{} },
	},
	opAssign: {
		enums.RoleExecutor: func(string) MutationFilter {
			return MutationFilter{Status: enums.AppealStatusAccepted}
		},
		enums.RoleAdmin: func(string) MutationFilter {
			return MutationFilter{Status: enums.AppealStatusAccepted}
		},
	},
	opDelete: {
		enums.RoleUser: func(actorID string) MutationFilter {
			return MutationFilter{UserID: actorID, Status: enums.AppealStatusAccepted}
		},
		enums.RoleAdmin: func(string) MutationFilter { return MutationFilter{} },
	},
}

var createRoles = map[enums.Role]bool{
	enums.RoleAdmin: true,
	enums.RoleUser:  true,
}

func mutationFilter(op operation, role enums.Role, actorID string, appealID int64) (MutationFilter, bool) {
	byRole, ok := mutationPolicies[op]
	if !ok {
		return MutationFilter{}, false
	}
	build, ok := byRole[role]
	if !ok {
		return MutationFilter{}, false
	}

	filter := build(actorID)
	filter.ID = appealID
	return filter, true
}
