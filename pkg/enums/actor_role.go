package enums

// ActorRole is the shop role carried in access tokens.
type ActorRole string

const (
	ActorRoleAdmin        ActorRole = "admin"
	ActorRoleManager      ActorRole = "manager"
	ActorRoleMechanic     ActorRole = "mechanic"
	ActorRoleReceptionist ActorRole = "receptionist"
)

var actorRoles = set[ActorRole]{ActorRoleAdmin, ActorRoleManager, ActorRoleMechanic, ActorRoleReceptionist}

func (r ActorRole) String() string { return string(r) }

func (r ActorRole) IsValid() bool { return actorRoles.has(r) }

// ParseActorRole is case-sensitive; roles come from signed tokens.
func ParseActorRole(value string) (ActorRole, error) {
	return actorRoles.parse(value, "actor role", false)
}
