package core

import "context"

// Repository es el contrato de persistencia de usuarios.
// Create/Update retornan ErrConflict si el email ya existe; Get*/Update/Delete
// retornan ErrNotFound si no hay fila.
type Repository interface {
	Ping(ctx context.Context) error
	Close() error

	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context, q ListQuery) (UserPage, error)
	// ListAll ordena por created_at desc (orden de exportación).
	ListAll(ctx context.Context) ([]User, error)
	Update(ctx context.Context, id string, upd UserUpdate) (*User, error)
	Delete(ctx context.Context, id string) error
}
