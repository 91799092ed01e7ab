package enums

import "fmt"

// Role gates which operations a user may perform. Immutable after signup.
type Role string

const (
	RoleFarmer   Role = "farmer"
	RoleConsumer Role = "consumer"
	RoleBusiness Role = "business"
	RoleNGO      Role = "ngo"
)

var validRoles = []Role{
	RoleFarmer,
	RoleConsumer,
	RoleBusiness,
	RoleNGO,
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}

// IsValid reports whether the value is a known Role.
func (r Role) IsValid() bool {
	for _, candidate := range validRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRole converts raw input into a Role.
func ParseRole(value string) (Role, error) {
	for _, candidate := range validRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid role %q", value)
}
