package coup

// ActionType is one entry of the action catalog
type ActionType string

const (
	ActionIncome      ActionType = "income"
	ActionForeignAid  ActionType = "foreign_aid"
	ActionTax         ActionType = "tax"
	ActionSteal       ActionType = "steal"
	ActionAssassinate ActionType = "assassinate"
	ActionExchange    ActionType = "exchange"
	ActionCoup        ActionType = "coup"
)

// actionSpec describes how one catalog entry moves through the contest
// pipeline. A zero ClaimedRole means the action is unchallengeable; an
// empty BlockableBy means it cannot be blocked.
type actionSpec struct {
	Cost           int
	RequiresTarget bool
	ClaimedRole    Role
	BlockableBy    []Role
}

var actionCatalog = map[ActionType]actionSpec{
	ActionIncome:      {},
	ActionForeignAid:  {BlockableBy: []Role{RoleChancellor}},
	ActionTax:         {ClaimedRole: RoleChancellor},
	ActionSteal:       {RequiresTarget: true, ClaimedRole: RoleAgent, BlockableBy: []Role{RoleAgent, RoleDiplomat}},
	ActionAssassinate: {Cost: 3, RequiresTarget: true, ClaimedRole: RoleShadow, BlockableBy: []Role{RoleProtector}},
	ActionExchange:    {ClaimedRole: RoleDiplomat},
	ActionCoup:        {Cost: 7, RequiresTarget: true},
}

func (a ActionType) spec() (actionSpec, bool) {
	s, ok := actionCatalog[a]
	return s, ok
}

// blockableByRole reports whether role is a legal block claim for action a
func (a ActionType) blockableByRole(role Role) bool {
	spec, ok := a.spec()
	if !ok {
		return false
	}
	for _, r := range spec.BlockableBy {
		if r == role {
			return true
		}
	}
	return false
}
