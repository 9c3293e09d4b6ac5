package helpers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	httperrors "github.com/dropDatabas3/adminpanel/internal/http/errors"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Email string `json:"email"`
}

func TestReadJSON(t *testing.T) {
	cases := []struct {
		name    string
		ct      string
		body    string
		wantErr *httperrors.AppError
		want    string
	}{
		{"ok", "application/json", `{"email":"a@b.co","extra":1}`, nil, "a@b.co"},
		{"charset", "application/json; charset=utf-8", `{"email":"x@y.io"}`, nil, "x@y.io"},
		{"empty body", "application/json", ``, nil, ""},
		{"no content type", "", `{"email":"n@c.t"}`, nil, "n@c.t"},
		{"bad json", "application/json", `{"email":`, httperrors.ErrInvalidJSON, ""},
		{"wrong type", "text/plain", `hi`, httperrors.ErrUnsupportedMediaType, ""},
		{"too large", "application/json", `{"email":"` + strings.Repeat("a", MaxBodyBytes) + `"}`, httperrors.ErrBodyTooLarge, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			if tc.ct != "" {
				r.Header.Set("Content-Type", tc.ct)
			}
			var p payload
			err := ReadJSON(httptest.NewRecorder(), r, &p)
			if tc.wantErr == nil {
				require.NoError(t, err)
				require.Equal(t, tc.want, p.Email)
				return
			}
			require.Equal(t, tc.wantErr.Code, httperrors.FromError(err).Code)
		})
	}
}
