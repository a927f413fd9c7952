package entity

// Role is the closed set of user roles known to the workflow
type Role string

const (
	RoleEmployee           Role = "employee"
	RoleSupplyChainManager Role = "supply_chain_manager"
	RoleGeneralManager     Role = "general_manager"
	RoleAdmin              Role = "admin"
)

// Capability is an action a role may or may not perform
type Capability int

const (
	CapSubmit Capability = iota
	CapApprove
	CapMarkPurchased
	CapRetryCart
	CapViewAll
)

var capabilityNames = map[Capability]string{
	CapSubmit:        "submit",
	CapApprove:       "approve",
	CapMarkPurchased: "mark_purchased",
	CapRetryCart:     "retry_cart",
	CapViewAll:       "view_all",
}

// String returns the capability name
func (c Capability) String() string {
	if name, ok := capabilityNames[c]; ok {
		return name
	}
	return "unknown"
}

var roleCapabilities = map[Role]map[Capability]bool{
	RoleEmployee: {
		CapSubmit: true,
	},
	RoleSupplyChainManager: {
		CapSubmit:  true,
		CapViewAll: true,
	},
	RoleGeneralManager: {
		CapSubmit:  true,
		CapApprove: true,
		CapViewAll: true,
	},
	RoleAdmin: {
		CapSubmit:        true,
		CapApprove:       true,
		CapMarkPurchased: true,
		CapRetryCart:     true,
		CapViewAll:       true,
	},
}

// ParseRole converts a raw string into a Role, reporting whether it is known
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	_, ok := roleCapabilities[r]
	return r, ok
}

// IsValid returns true if the role is one of the defined constants
func (r Role) IsValid() bool {
	_, ok := roleCapabilities[r]
	return ok
}

// Can reports whether the role grants the capability. Unknown roles grant nothing.
func (r Role) Can(c Capability) bool {
	return roleCapabilities[r][c]
}

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}
