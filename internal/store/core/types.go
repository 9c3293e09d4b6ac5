package core

import (
	"math"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// Roles en el orden en que se listan en mensajes de validación.
var Roles = []Role{RoleAdmin, RoleUser}

type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
)

var Statuses = []Status{StatusActive, StatusInactive}

// User es la fila persistida. Email ya está canonicalizado y EmailHash/Signature
// se calcularon sobre ese valor exacto.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	Status    Status    `json:"status"`
	EmailHash string    `json:"emailHash"`
	Signature string    `json:"signature"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UserUpdate lleva sólo los campos a modificar (nil = no tocar).
// Si Email != nil, EmailHash y Signature también deben venir.
type UserUpdate struct {
	Email     *string
	Role      *Role
	Status    *Status
	EmailHash *string
	Signature *string
}

// Empty indica que no hay nada para escribir.
func (u UserUpdate) Empty() bool {
	return u.Email == nil && u.Role == nil && u.Status == nil && u.EmailHash == nil && u.Signature == nil
}

// Columnas válidas para ordenar.
const (
	SortEmail     = "email"
	SortRole      = "role"
	SortStatus    = "status"
	SortCreatedAt = "createdAt"
	SortUpdatedAt = "updatedAt"
)

// ListQuery ya normalizada (ver validation.NormalizeListQuery).
// FilterRole/FilterStatus vacíos = sin filtro. Search es substring case-insensitive sobre email.
type ListQuery struct {
	Page         int
	Limit        int
	Search       string
	SortBy       string
	SortDesc     bool
	FilterRole   Role
	FilterStatus Status
}

// Offset de la página pedida. Satura en math.MaxInt en vez de desbordar.
func (q ListQuery) Offset() int {
	if q.Page < 1 || q.Limit < 1 {
		return 0
	}
	if q.Page-1 > math.MaxInt/q.Limit {
		return math.MaxInt
	}
	return (q.Page - 1) * q.Limit
}

// UserPage es una página de resultados más el total que matchea el filtro.
type UserPage struct {
	Users      []User
	TotalCount int
}

// ApplyDefaults completa ID, timestamps (UTC, precisión de milisegundos), role y status.
// Los drivers la llaman en Create para que los tres se comporten igual.
func (u *User) ApplyDefaults(now time.Time) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now.UTC().Truncate(time.Millisecond)
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = u.CreatedAt
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	if u.Status == "" {
		u.Status = StatusActive
	}
}
