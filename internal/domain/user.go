package domain

type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleAdmin
}

type User struct {
	ID           int64   `json:"id"`
	Username     string  `json:"username"`
	PasswordHash string  `json:"-"`
	Email        string  `json:"email"`
	FullName     string  `json:"fullName"`
	Phone        *string `json:"phone"`
	Role         Role    `json:"role"`
}

// Identity is the authenticated caller as seen by the services.
// A nil *Identity means the request is anonymous.
type Identity struct {
	UserID int64
	Role   Role
}

func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == RoleAdmin
}

// CanAccess reports whether the identity owns the resource or administers everything.
func (i *Identity) CanAccess(ownerID int64) bool {
	return i != nil && (i.Role == RoleAdmin || i.UserID == ownerID)
}
