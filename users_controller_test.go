package auth_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-auth-core"
)

// newUsersApp mounts the users API behind a gate that authorizes every
// request as a caller of the given level.
func newUsersApp(t *testing.T, level int) (*fiber.App, *auth.Store) {
	t.Helper()

	store := newTestStore(t)
	table := auth.DefaultPrivilegeTable()

	app := newFiberApp()
	group := app.Group("/users", func(c *fiber.Ctx) error {
		claims := &auth.Claims{UserID: 1, PrivilegeLevel: level}
		if err := table.Authorize(claims, c.Path(), c.Method()); err != nil {
			return err
		}
		return c.Next()
	})
	auth.NewUsersController(store.Users(), auth.NopLogger{}).Register(group)

	return app, store
}

func TestUsersController_PrivilegeGate(t *testing.T) {
	app, _ := newUsersApp(t, auth.LevelBase)

	resp, err := app.Test(jsonRequest(http.MethodGet, "/users", ""))
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	app, _ = newUsersApp(t, auth.LevelPower)

	resp, err = app.Test(jsonRequest(http.MethodGet, "/users", ""))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(jsonRequest(http.MethodPost, "/users", `{}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestUsersController_Create(t *testing.T) {
	app, store := newUsersApp(t, auth.LevelAdmin)

	resp, err := app.Test(jsonRequest(http.MethodPost, "/users",
		`{"firstName":"Grace","lastName":"Hopper","email":"grace@example.com","password":"long-enough-pass","roleId":3001}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "grace@example.com", body["email"])
	assert.Equal(t, auth.RolePower, body["roleName"])
	assert.NotContains(t, body, "password")
	assert.NotContains(t, body, "passwordHash")

	user, err := store.Users().FindByEmail(t.Context(), "grace@example.com")
	require.NoError(t, err)
	assert.NoError(t, auth.ComparePasswordAndHash("long-enough-pass", user.PasswordHash))

	resp, err = app.Test(jsonRequest(http.MethodPost, "/users",
		`{"firstName":"Grace","lastName":"Hopper","email":"grace@example.com","roleId":3001}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestUsersController_CreateValidation(t *testing.T) {
	app, _ := newUsersApp(t, auth.LevelAdmin)

	cases := []struct {
		name string
		body string
	}{
		{"missing names", `{"email":"x@example.com","roleId":1001}`},
		{"bad email", `{"firstName":"Grace","lastName":"Hopper","email":"nope","roleId":1001}`},
		{"short password", `{"firstName":"Grace","lastName":"Hopper","email":"g@example.com","password":"short","roleId":1001}`},
		{"unknown role", `{"firstName":"Grace","lastName":"Hopper","email":"g@example.com","roleId":42}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := app.Test(jsonRequest(http.MethodPost, "/users", tc.body))
			require.NoError(t, err)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestUsersController_GetUpdateDelete(t *testing.T) {
	app, store := newUsersApp(t, auth.LevelAdmin)
	user := seedUser(t, store, "linus@example.com", "", auth.LevelBase)
	path := fmt.Sprintf("/users/%d", user.ID)

	resp, err := app.Test(jsonRequest(http.MethodGet, path, ""))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "linus@example.com", decodeBody(t, resp)["email"])

	resp, err = app.Test(jsonRequest(http.MethodPut, path, `{"lastName":"Torvalds","roleId":3001}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "Torvalds", body["lastName"])
	assert.Equal(t, "Test", body["firstName"])
	assert.EqualValues(t, auth.LevelPower, body["roleId"])

	resp, err = app.Test(jsonRequest(http.MethodDelete, path, ""))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		resp, err = app.Test(jsonRequest(method, path, ""))
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, method)
	}

	resp, err = app.Test(jsonRequest(http.MethodPut, path, `{"lastName":"Again"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUsersController_InvalidID(t *testing.T) {
	app, _ := newUsersApp(t, auth.LevelAdmin)

	resp, err := app.Test(jsonRequest(http.MethodGet, "/users/abc", ""))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, map[string]any{"id": "must be a positive integer"}, body["details"])
}

func TestUsersController_ListAndCount(t *testing.T) {
	app, store := newUsersApp(t, auth.LevelAdmin)
	seedUser(t, store, "a@example.com", "", auth.LevelBase)
	seedUser(t, store, "b@example.com", "", auth.LevelPower)
	seedUser(t, store, "c@example.com", "", auth.LevelPower)

	resp, err := app.Test(jsonRequest(http.MethodGet, "/users?roleId=3001&sortBy=email&sortOrder=desc", ""))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var records []auth.UserRecord
	require.NoError(t, decodeInto(resp, &records))
	require.Len(t, records, 2)
	assert.Equal(t, "c@example.com", records[0].Email)
	assert.Equal(t, "b@example.com", records[1].Email)

	resp, err = app.Test(jsonRequest(http.MethodGet, "/users/count?search=example", ""))
	require.NoError(t, err)
	var total int
	require.NoError(t, decodeInto(resp, &total))
	assert.Equal(t, 3, total)
}

func TestUsersController_ListValidation(t *testing.T) {
	app, _ := newUsersApp(t, auth.LevelAdmin)

	resp, err := app.Test(jsonRequest(http.MethodGet, "/users?sortBy=password&limit=-1&roleId=x", ""))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	details, ok := decodeBody(t, resp)["details"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, details, "sortBy")
	assert.Contains(t, details, "limit")
	assert.Contains(t, details, "roleId")
}
