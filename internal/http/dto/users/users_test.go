package users

import (
	"testing"
	"time"

	"github.com/dropDatabas3/adminpanel/internal/store/core"
	"github.com/stretchr/testify/require"
)

func TestNewPagination(t *testing.T) {
	cases := []struct {
		page, limit, total int
		want               Pagination
	}{
		{1, 10, 0, Pagination{CurrentPage: 1, TotalPages: 0, TotalCount: 0, PageSize: 10}},
		{1, 10, 25, Pagination{CurrentPage: 1, TotalPages: 3, TotalCount: 25, PageSize: 10, HasNextPage: true}},
		{3, 10, 25, Pagination{CurrentPage: 3, TotalPages: 3, TotalCount: 25, PageSize: 10, HasPreviousPage: true}},
		{2, 5, 10, Pagination{CurrentPage: 2, TotalPages: 2, TotalCount: 10, PageSize: 5, HasPreviousPage: true}},
		{9, 10, 25, Pagination{CurrentPage: 9, TotalPages: 3, TotalCount: 25, PageSize: 10, HasPreviousPage: true}},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, NewPagination(tc.page, tc.limit, tc.total))
	}
}

func TestFromUser_TimestampFormat(t *testing.T) {
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	u := FromUser(core.User{
		ID: "id", Email: "a@b.co", Role: core.RoleAdmin, Status: core.StatusActive,
		CreatedAt: created, UpdatedAt: created.Add(1500 * time.Millisecond),
	})
	require.Equal(t, "2024-05-01T12:00:00.000Z", u.CreatedAt)
	require.Equal(t, "2024-05-01T12:00:01.500Z", u.UpdatedAt)
	require.Equal(t, "ADMIN", u.Role)

	require.NotNil(t, FromUsers(nil))
}
