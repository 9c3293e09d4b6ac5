// Package users contiene los DTOs de /api/users.
package users

import (
	"github.com/dropDatabas3/adminpanel/internal/store/core"
	"github.com/dropDatabas3/adminpanel/internal/wire"
)

// CreateUserRequest es el body de POST /api/users.
type CreateUserRequest struct {
	Email  string `json:"email"`
	Role   string `json:"role,omitempty"`
	Status string `json:"status,omitempty"`
}

// UpdateUserRequest es el body de PUT /api/users/{id}. Vacío = no modificar.
type UpdateUserRequest struct {
	Email  string `json:"email,omitempty"`
	Role   string `json:"role,omitempty"`
	Status string `json:"status,omitempty"`
}

// User es la representación JSON de un usuario. Los timestamps usan el mismo
// formato que el export.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	Status    string `json:"status"`
	EmailHash string `json:"emailHash"`
	Signature string `json:"signature"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// FromUser convierte la fila persistida.
func FromUser(u core.User) User {
	return User{
		ID:        u.ID,
		Email:     u.Email,
		Role:      string(u.Role),
		Status:    string(u.Status),
		EmailHash: u.EmailHash,
		Signature: u.Signature,
		CreatedAt: wire.FormatTimestamp(u.CreatedAt),
		UpdatedAt: wire.FormatTimestamp(u.UpdatedAt),
	}
}

// FromUsers convierte una página; nunca devuelve nil para que el JSON sea [].
func FromUsers(in []core.User) []User {
	out := make([]User, len(in))
	for i := range in {
		out[i] = FromUser(in[i])
	}
	return out
}

type Pagination struct {
	CurrentPage     int  `json:"currentPage"`
	TotalPages      int  `json:"totalPages"`
	TotalCount      int  `json:"totalCount"`
	PageSize        int  `json:"pageSize"`
	HasNextPage     bool `json:"hasNextPage"`
	HasPreviousPage bool `json:"hasPreviousPage"`
}

// NewPagination calcula la metadata de paginación (totalPages = ceil(total/limit)).
func NewPagination(page, limit, total int) Pagination {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return Pagination{
		CurrentPage:     page,
		TotalPages:      pages,
		TotalCount:      total,
		PageSize:        limit,
		HasNextPage:     page < pages,
		HasPreviousPage: page > 1,
	}
}

type CreateUserResponse struct {
	Message string `json:"message"`
	User    User   `json:"user"`
}

type ListUsersResponse struct {
	Users      []User     `json:"users"`
	Pagination Pagination `json:"pagination"`
}

type GetUserResponse struct {
	User User `json:"user"`
}

// UpdateUserResponse incluye la clave pública para que el cliente pueda
// re-verificar la firma regenerada.
type UpdateUserResponse struct {
	Message   string `json:"message"`
	User      User   `json:"user"`
	PublicKey string `json:"publicKey"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type PublicKeyResponse struct {
	PublicKey string `json:"publicKey"`
}
