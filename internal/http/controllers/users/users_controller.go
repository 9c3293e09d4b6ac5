package users

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strconv"

	dto "github.com/dropDatabas3/adminpanel/internal/http/dto/users"
	httperrors "github.com/dropDatabas3/adminpanel/internal/http/errors"
	"github.com/dropDatabas3/adminpanel/internal/http/helpers"
	svc "github.com/dropDatabas3/adminpanel/internal/http/services/users"
	"github.com/dropDatabas3/adminpanel/internal/observability/logger"
	"github.com/dropDatabas3/adminpanel/internal/validation"
	"github.com/dropDatabas3/adminpanel/internal/wire"
)

// Headers del export.
const (
	HeaderPublicKey    = "X-Public-Key"
	ExportFilename     = "users.pb"
	contentDisposition = `attachment; filename="` + ExportFilename + `"`
	pathParamID        = "id"
)

// UsersController maneja las rutas de /api/users.
type UsersController struct {
	service svc.UserService
}

// NewUsersController crea el controller de usuarios.
func NewUsersController(service svc.UserService) *UsersController {
	return &UsersController{service: service}
}

// Create maneja POST /api/users
func (c *UsersController) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateUserRequest
	if err := helpers.ReadJSON(w, r, &req); err != nil {
		httperrors.WriteError(w, err)
		return
	}

	u, err := c.service.Create(r.Context(), validation.UserInput{Email: req.Email, Role: req.Role, Status: req.Status})
	if err != nil {
		if errors.Is(err, svc.ErrEmailTaken) {
			httperrors.WriteError(w, httperrors.ErrUserAlreadyExists)
			return
		}
		c.writeError(w, r, "Create", err)
		return
	}

	helpers.WriteJSON(w, http.StatusCreated, dto.CreateUserResponse{
		Message: "User created successfully",
		User:    dto.FromUser(*u),
	})
}

// List maneja GET /api/users?page&limit&search&sortBy&sortOrder&filterRole&filterStatus
func (c *UsersController) List(w http.ResponseWriter, r *http.Request) {
	qv := r.URL.Query()
	page, q, err := c.service.List(r.Context(), validation.RawListQuery{
		Page:         qv.Get("page"),
		Limit:        qv.Get("limit"),
		Search:       qv.Get("search"),
		SortBy:       qv.Get("sortBy"),
		SortOrder:    qv.Get("sortOrder"),
		FilterRole:   qv.Get("filterRole"),
		FilterStatus: qv.Get("filterStatus"),
	})
	if err != nil {
		c.writeError(w, r, "List", err)
		return
	}

	helpers.WriteJSON(w, http.StatusOK, dto.ListUsersResponse{
		Users:      dto.FromUsers(page.Users),
		Pagination: dto.NewPagination(q.Page, q.Limit, page.TotalCount),
	})
}

// Get maneja GET /api/users/{id}
func (c *UsersController) Get(w http.ResponseWriter, r *http.Request) {
	u, err := c.service.Get(r.Context(), r.PathValue(pathParamID))
	if err != nil {
		c.writeError(w, r, "Get", err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.GetUserResponse{User: dto.FromUser(*u)})
}

// Update maneja PUT /api/users/{id}
func (c *UsersController) Update(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateUserRequest
	if err := helpers.ReadJSON(w, r, &req); err != nil {
		httperrors.WriteError(w, err)
		return
	}

	u, err := c.service.Update(r.Context(), r.PathValue(pathParamID), validation.UserInput{Email: req.Email, Role: req.Role, Status: req.Status})
	if err != nil {
		c.writeError(w, r, "Update", err)
		return
	}

	helpers.WriteJSON(w, http.StatusOK, dto.UpdateUserResponse{
		Message:   "User Updated successfully",
		User:      dto.FromUser(*u),
		PublicKey: c.service.PublicKey(),
	})
}

// Delete maneja DELETE /api/users/{id}
func (c *UsersController) Delete(w http.ResponseWriter, r *http.Request) {
	if err := c.service.Delete(r.Context(), r.PathValue(pathParamID)); err != nil {
		c.writeError(w, r, "Delete", err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.MessageResponse{Message: "User deleted successfully"})
}

// Export maneja GET /api/users/export: UserList binario + clave pública en base64.
func (c *UsersController) Export(w http.ResponseWriter, r *http.Request) {
	exp, err := c.service.Export(r.Context())
	if err != nil {
		c.writeError(w, r, "Export", err)
		return
	}

	h := w.Header()
	h.Set("Content-Type", wire.ContentType)
	h.Set("Content-Disposition", contentDisposition)
	h.Set("Content-Length", strconv.Itoa(len(exp.Payload)))
	h.Set(HeaderPublicKey, base64.StdEncoding.EncodeToString([]byte(exp.PublicKeyPEM)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(exp.Payload)
}

// PublicKey maneja GET /api/users/public-key
func (c *UsersController) PublicKey(w http.ResponseWriter, r *http.Request) {
	helpers.WriteJSON(w, http.StatusOK, dto.PublicKeyResponse{PublicKey: c.service.PublicKey()})
}

func (c *UsersController) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	appErr := mapError(err)
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		logger.From(r.Context()).Error("request failed",
			logger.Layer("controller"),
			logger.Op("UsersController."+op),
			logger.Err(err),
		)
	}
	httperrors.WriteError(w, appErr)
}

func mapError(err error) *httperrors.AppError {
	var verr *svc.ValidationError
	switch {
	case errors.As(err, &verr):
		return httperrors.ErrValidation.WithMessage(verr.Message)
	case errors.Is(err, svc.ErrInvalidID):
		return httperrors.ErrInvalidID
	case errors.Is(err, svc.ErrUserNotFound):
		return httperrors.ErrUserNotFound
	case errors.Is(err, svc.ErrEmailTaken):
		return httperrors.ErrEmailAlreadyInUse
	case errors.Is(err, svc.ErrSigning):
		return httperrors.ErrSigningFailed.WithCause(err)
	default:
		return httperrors.FromError(err)
	}
}
