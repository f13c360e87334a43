package models

// UserRole is a staff role. Admins manage users and services, petugas handle requests.
type UserRole string

const (
	RoleAdmin   UserRole = "admin"
	RolePetugas UserRole = "petugas"
)

// UserStatus toggles whether a staff account may sign in.
type UserStatus string

const (
	UserAktif    UserStatus = "aktif"
	UserNonaktif UserStatus = "nonaktif"
)

// User is a staff account as exposed by the upstream. The credential is never decoded.
type User struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	Role        UserRole   `json:"role"`
	Status      UserStatus `json:"status"`
	LastLoginAt Timestamp  `json:"last_login_at"`
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// UserInput is the create/update payload. Password is write-only and omitted on update when empty.
type UserInput struct {
	Name     string     `json:"name" binding:"required,max=255"`
	Username string     `json:"username" binding:"required,max=100"`
	Email    string     `json:"email" binding:"required,email_id"`
	Password string     `json:"password,omitempty" binding:"omitempty,min=8"`
	Role     UserRole   `json:"role" binding:"required,oneof=admin petugas"`
	Status   UserStatus `json:"status" binding:"omitempty,oneof=aktif nonaktif"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	CurrentPage int `json:"current_page"`
	LastPage    int `json:"last_page"`
	PerPage     int `json:"per_page"`
	Total       int `json:"total"`
}
