package entity

import "time"

// Roles conocidos. El rol es informativo: ninguna operación lo consulta.
const (
	RoleAdmin     = "admin"
	RoleBodeguero = "bodeguero"
	RoleVendedor  = "vendedor"
)

// User representa al actor que registra movimientos de stock.
type User struct {
	ID           string
	Username     string // único
	DisplayName  string
	PasswordHash string // bcrypt hash, nunca en texto plano
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ValidRole indica si r es uno de los roles conocidos.
func ValidRole(r string) bool {
	switch r {
	case RoleAdmin, RoleBodeguero, RoleVendedor:
		return true
	}
	return false
}
