package auth

// Role is the caller's access level. Permissions derive from the role plus
// ownership of the order, never from per-resource grants.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleSeller Role = "seller"
	RoleUser   Role = "user"
)

// Actor identifies the authenticated caller of a policy operation.
type Actor struct {
	UID      string
	Role     Role
	SellerID string
	Email    string
}

// Anonymous is the zero actor used for public endpoints.
var Anonymous = Actor{}

// Authenticated reports whether the actor carries a user identity.
func (a Actor) Authenticated() bool {
	return a.UID != ""
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool {
	return a.Authenticated() && a.Role == RoleAdmin
}

// IsSeller reports whether the actor holds the seller role.
func (a Actor) IsSeller() bool {
	return a.Authenticated() && a.Role == RoleSeller
}
