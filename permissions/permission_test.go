package permissions_test

import (
	"hotel/permissions"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	data := permissions.Get()
	require.NotNil(t, data)
	assert.False(t, data.Skip)
	assert.NotEmpty(t, data.Endpoints)
}

func TestFindPermissions(t *testing.T) {
	data := permissions.Get()
	require.NotNil(t, data)

	tests := []struct {
		name   string
		path   string
		method string
		skip   bool
		roles  []string
	}{
		{name: "list all bookings is admin only", path: "/v1/bookings", method: "GET", roles: []string{"admin", "superadmin"}},
		{name: "create booking needs any user", path: "/v1/bookings", method: "POST", roles: []string{}},
		{name: "cancel booking needs any user", path: "/v1/bookings/{id}/cancel", method: "PATCH", roles: []string{}},
		{name: "login is public", path: "/v1/auth/login", method: "POST", skip: true},
		{name: "availability is public", path: "/v1/rooms/{id}/availability", method: "GET", skip: true},
		{name: "room writes are admin only", path: "/v1/rooms", method: "POST", roles: []string{"admin", "superadmin"}},
		{name: "unknown route", path: "/v1/unknown", method: "GET"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			permission := data.FindPermissions(tt.path, tt.method)

			assert.Equal(t, tt.skip, permission.Skip)
			assert.Equal(t, tt.roles, permission.Permissions)
		})
	}
}

func TestPermission_Allows(t *testing.T) {
	adminOnly := permissions.Permission{Permissions: []string{"admin", "superadmin"}}
	anyUser := permissions.Permission{Permissions: []string{}}
	public := permissions.Permission{Skip: true, Permissions: []string{"admin"}}

	assert.True(t, adminOnly.Allows("admin"))
	assert.True(t, adminOnly.Allows("superadmin"))
	assert.False(t, adminOnly.Allows("user"))
	assert.False(t, adminOnly.Allows(""))
	assert.True(t, anyUser.Allows("user"))
	assert.True(t, public.Allows(""))
}
