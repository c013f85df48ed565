package rbac

// Role names. Keep these stable; they are part of auth/RBAC contracts.
//
// owner is a business account holder using the dashboard; admin is a
// platform operator with access to the admin panel (orphan call repair,
// cross-account views).
const (
	RoleOwner = "owner"
	RoleAdmin = "admin"
)

func IsAdmin(role string) bool { return role == RoleAdmin }
