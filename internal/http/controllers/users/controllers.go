// Package users contiene los controllers de /api/users.
package users

import svc "github.com/dropDatabas3/adminpanel/internal/http/services/users"

// Controllers agrupa los controllers del dominio users.
type Controllers struct {
	Users *UsersController
}

// NewControllers crea el agregador de controllers users.
func NewControllers(s svc.Services) *Controllers {
	return &Controllers{Users: NewUsersController(s.Users)}
}
