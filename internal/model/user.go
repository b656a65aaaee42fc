package model

type Role string

const (
	RoleAdmin     Role = "ADMIN"
	RoleStaff     Role = "STAFF"
	RoleConnector Role = "CONNECTOR"
	RoleCustomer  Role = "CUSTOMER"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleStaff, RoleConnector, RoleCustomer:
		return true
	}
	return false
}

type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username,omitempty"`
	Phone     string `json:"phone"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Role      Role   `json:"role"`
	IsActive  bool   `json:"is_active,omitempty"`
}

// TokenPair holds the opaque bearer credentials issued at login. The refresh
// token is persisted but never exchanged; there is no rotation logic.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Session couples the authenticated user with their credentials. The two are
// always both present or both absent, never one without the other.
type Session struct {
	User   User      `json:"user"`
	Tokens TokenPair `json:"tokens"`
}

type RegisterParams struct {
	Phone     string `json:"phone"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Role      Role   `json:"role"`
	Password  string `json:"password"`
	Password2 string `json:"password2"`
}
