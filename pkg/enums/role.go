package enums

// Role is the caller role claim issued by the auth provider.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleSeller Role = "seller"
	RoleClient Role = "client"
)

var validRoles = []Role{
	RoleAdmin,
	RoleSeller,
	RoleClient,
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}

// IsValid reports whether the value is a known Role.
func (r Role) IsValid() bool {
	return oneOf(r, validRoles)
}

// ParseRole converts raw input into a Role.
func ParseRole(value string) (Role, error) {
	return parse("role", value, validRoles)
}

// SeesWholesale reports whether the role is entitled to wholesale price and MOQ.
func (r Role) SeesWholesale() bool {
	return r == RoleAdmin || r == RoleSeller
}
