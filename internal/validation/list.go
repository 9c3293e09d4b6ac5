package validation

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/dropDatabas3/adminpanel/internal/store/core"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
	// MaxPage mantiene (page-1)*limit dentro de un int de 32 bits.
	MaxPage = math.MaxInt32 / MaxLimit
)

// RawListQuery son los query params tal cual llegan.
type RawListQuery struct {
	Page         string
	Limit        string
	Search       string
	SortBy       string
	SortOrder    string
	FilterRole   string
	FilterStatus string
}

var sortFields = map[string]bool{
	core.SortEmail:     true,
	core.SortRole:      true,
	core.SortStatus:    true,
	core.SortCreatedAt: true,
	core.SortUpdatedAt: true,
}

// NormalizeListQuery nunca falla: valores inválidos caen al default o se recortan.
// page en [1,MaxPage], limit en [1,100] (default 10), sortBy default createdAt, orden default desc.
// Filtros vacíos, "ALL" o desconocidos = sin filtro.
func NormalizeListQuery(raw RawListQuery) core.ListQuery {
	q := core.ListQuery{
		Page:     atoiOr(raw.Page, DefaultPage),
		Limit:    atoiOr(raw.Limit, DefaultLimit),
		Search:   strings.TrimSpace(raw.Search),
		SortBy:   core.SortCreatedAt,
		SortDesc: true,
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Page > MaxPage {
		q.Page = MaxPage
	}
	if q.Limit < 1 {
		q.Limit = 1
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	if sortFields[raw.SortBy] {
		q.SortBy = raw.SortBy
	}
	if strings.EqualFold(raw.SortOrder, "asc") {
		q.SortDesc = false
	}
	if ValidRole(raw.FilterRole) {
		q.FilterRole = core.Role(raw.FilterRole)
	}
	if ValidStatus(raw.FilterStatus) {
		q.FilterStatus = core.Status(raw.FilterStatus)
	}
	return q
}

// atoiOr: vacío, basura o "0" → def; negativos se respetan y luego se recortan.
// Fuera de rango satura (Atoi ya devuelve MaxInt/MinInt).
func atoiOr(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if errors.Is(err, strconv.ErrRange) {
		return n
	}
	if err != nil || n == 0 {
		return def
	}
	return n
}
