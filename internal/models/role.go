package models

import "fmt"

// Role selects the prompt template used for a code transform.
type Role string

// Transform roles
const (
	RoleGenerate Role = "generate"
	RoleFix      Role = "fix"
	RoleOptimize Role = "optimize"
	RoleLintFix  Role = "lint-fix"
)

// Roles lists every transform role in pipeline order.
var Roles = []Role{RoleGenerate, RoleFix, RoleOptimize, RoleLintFix}

// Validate returns an error for roles outside the closed set.
func (r Role) Validate() error {
	for _, known := range Roles {
		if r == known {
			return nil
		}
	}
	return fmt.Errorf("unknown transform role %q", string(r))
}
