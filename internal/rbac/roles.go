package rbac

// Role names are carried in signed tokens; renaming one invalidates outstanding tokens.
const (
	RoleOwner      = "owner"
	RoleDispatcher = "dispatcher"
	RoleTechnician = "technician"
	RoleFinance    = "finance"
	RoleSuperAdmin = "super_admin"
	RoleSupport    = "support" // hidden role
)

func IsSuperAdmin(role string) bool { return role == RoleSuperAdmin }

func IsHiddenRole(role string) bool { return role == RoleSupport }

// IsCompanyRole reports whether role belongs to a company's own staff, as opposed to
// platform operators.
func IsCompanyRole(role string) bool {
	switch role {
	case RoleOwner, RoleDispatcher, RoleTechnician, RoleFinance:
		return true
	}
	return false
}

func IsKnownRole(role string) bool {
	return IsCompanyRole(role) || IsSuperAdmin(role) || IsHiddenRole(role)
}
