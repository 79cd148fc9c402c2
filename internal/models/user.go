// models — доменные типы клиента портала в том виде, в каком их отдаёт REST API.
package models

// Role — роль пользователя.
type Role string

const (
	RoleUser       Role = "USER"
	RoleAdmin      Role = "ADMIN"
	RoleSuperAdmin Role = "SUPER_ADMIN"
)

// IsAdmin — ADMIN или SUPER_ADMIN.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// User — кэшируемая запись пользователя (ключ data в хранилище).
type User struct {
	ID       string `json:"_id"`
	FullName string `json:"fullName,omitempty"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phoneNumber,omitempty"`
	Role     Role   `json:"role"`
}

// Credentials — тело запроса входа.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
