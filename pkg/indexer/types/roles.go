package types

// RootRole is the synthetic role held by the node wallet.
const RootRole = "root"

// Role is an issuable {associationType, role} pair.
type Role struct {
	Type int    `json:"type"`
	Role string `json:"role"`
}

// RoleDefinition describes one role of the trust network hierarchy.
type RoleDefinition struct {
	Description   string   `json:"description"`
	Issues        []Role   `json:"issues,omitempty"`
	Authorization []string `json:"authorization,omitempty"`
	Sponsored     bool     `json:"sponsored,omitempty"`
}

// Hierarchy is the immutable role configuration. The zero value is an empty hierarchy.
type Hierarchy struct {
	roles map[string]RoleDefinition
}

// NewHierarchy copies defs so later changes to the caller's map are not observed.
func NewHierarchy(defs map[string]RoleDefinition) Hierarchy {
	roles := make(map[string]RoleDefinition, len(defs))
	for name, def := range defs {
		def.Issues = append([]Role(nil), def.Issues...)
		def.Authorization = append([]string(nil), def.Authorization...)
		roles[name] = def
	}
	return Hierarchy{roles: roles}
}

// Lookup returns the definition of a role.
func (h Hierarchy) Lookup(name string) (RoleDefinition, bool) {
	def, ok := h.roles[name]
	return def, ok
}

// IsSponsored reports whether holding name entitles the holder to node sponsorship.
// Undefined roles are never sponsored.
func (h Hierarchy) IsSponsored(name string) bool {
	return h.roles[name].Sponsored
}

// Len is the number of defined roles.
func (h Hierarchy) Len() int {
	return len(h.roles)
}

// Names returns the defined role names in no particular order.
func (h Hierarchy) Names() []string {
	out := make([]string, 0, len(h.roles))
	for name := range h.roles {
		out = append(out, name)
	}
	return out
}

// RoleAssignment records who granted Role to an address, and under which association type.
type RoleAssignment struct {
	Role   string `json:"-"`
	Sender string `json:"sender"`
	Type   int    `json:"type"`
}

// RoleAssignments is the ordered set of roles held by one address, in storage order.
type RoleAssignments []RoleAssignment

// Names returns the held role names in order.
func (r RoleAssignments) Names() []string {
	out := make([]string, len(r))
	for i, a := range r {
		out[i] = a.Role
	}
	return out
}

// RoleData is the entitlement expansion for one address.
type RoleData struct {
	Roles               []string `json:"roles"`
	IssuesRoles         []Role   `json:"issues_roles"`
	IssuesAuthorization []string `json:"issues_authorization"`
}

// Associations lists the direct neighbours of an address in the association graph.
type Associations struct {
	Children []string `json:"children"`
	Parents  []string `json:"parents"`
}

// AnchorRecord locates the transaction that anchored a hash.
type AnchorRecord struct {
	ID          string `json:"id"`
	BlockHeight uint64 `json:"blockHeight"`
	Position    int    `json:"position"`
}
