package validation

import (
	"regexp"
	"strings"

	"github.com/dropDatabas3/adminpanel/internal/store/core"
)

// Email: local part con los caracteres imprimibles de RFC 5322, dominio con labels
// alfanuméricos de hasta 63 chars y al menos un punto.
var emailRe = regexp.MustCompile(`^[a-zA-Z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)+$`)

// UUID versiones 1..5, variante RFC 4122.
var uuidRe = regexp.MustCompile(`(?i)^[0-9a-f]{8}-[0-9a-f]{4}-[1-5][0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

const (
	maxEmailLen = 254
	maxLocalLen = 64
)

// ValidEmail valida formato y longitudes (total ≤ 254, local part ≤ 64).
func ValidEmail(email string) bool {
	if email == "" || len(email) > maxEmailLen {
		return false
	}
	local, _, ok := strings.Cut(email, "@")
	if !ok || len(local) > maxLocalLen {
		return false
	}
	return emailRe.MatchString(email)
}

func ValidRole(r string) bool {
	for _, v := range core.Roles {
		if string(v) == r {
			return true
		}
	}
	return false
}

func ValidStatus(s string) bool {
	for _, v := range core.Statuses {
		if string(v) == s {
			return true
		}
	}
	return false
}

func ValidUUID(id string) bool {
	return uuidRe.MatchString(id)
}

// CanonicalEmail es la única normalización previa a firmar: trim + lower.
func CanonicalEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UserInput son los campos crudos que llegan del request.
type UserInput struct {
	Email  string
	Role   string
	Status string
}

// Result acumula todos los errores en vez de cortar en el primero.
type Result struct {
	Errors []string
}

func (r Result) Valid() bool { return len(r.Errors) == 0 }

// Message arma "Validation failed: a, b" ("" si es válido).
func (r Result) Message() string {
	if r.Valid() {
		return ""
	}
	return "Validation failed: " + strings.Join(r.Errors, ", ")
}

// ValidateCreate exige email; role y status son opcionales.
func ValidateCreate(in UserInput) Result {
	return validateUser(in, true)
}

// ValidateUpdate: todos los campos opcionales, pero si vienen deben ser válidos.
func ValidateUpdate(in UserInput) Result {
	return validateUser(in, false)
}

func validateUser(in UserInput, emailRequired bool) Result {
	var res Result
	email := strings.TrimSpace(in.Email)

	switch {
	case emailRequired && email == "":
		res.Errors = append(res.Errors, "Email is required")
	case email != "" && !ValidEmail(email):
		res.Errors = append(res.Errors, "Invalid email format")
	}
	if in.Role != "" && !ValidRole(in.Role) {
		res.Errors = append(res.Errors, "Invalid role. Must be one of: "+joinRoles())
	}
	if in.Status != "" && !ValidStatus(in.Status) {
		res.Errors = append(res.Errors, "Invalid status. Must be one of: "+joinStatuses())
	}
	return res
}

func joinRoles() string {
	out := make([]string, len(core.Roles))
	for i, r := range core.Roles {
		out[i] = string(r)
	}
	return strings.Join(out, ", ")
}

func joinStatuses() string {
	out := make([]string, len(core.Statuses))
	for i, s := range core.Statuses {
		out[i] = string(s)
	}
	return strings.Join(out, ", ")
}
