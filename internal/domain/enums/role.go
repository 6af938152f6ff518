package enums

import "fmt"

// Role is the closed set of actor roles resolved by the authorization service.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleUser     Role = "user"
	RoleExecutor Role = "executor"
)

func ParseRole(value string) (Role, error) {
	switch Role(value) {
	case RoleAdmin, RoleUser, RoleExecutor:
		return Role(value), nil
	default:
		return "", fmt.Errorf("unknown role %q", value)
	}
}
