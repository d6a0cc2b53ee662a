package auth

import (
	"context"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// UserDirectory is the repository surface the users API needs.
type UserDirectory interface {
	List(ctx context.Context, opts ListOptions) ([]*User, error)
	Count(ctx context.Context, opts ListOptions) (int, error)
	FindByID(ctx context.Context, id int64) (*User, error)
	Create(ctx context.Context, record *User) (*User, error)
	Update(ctx context.Context, id int64, patch UserPatch) (*User, error)
	SoftDelete(ctx context.Context, id int64) (*User, error)
	RoleByID(ctx context.Context, id int64) (*Role, error)
}

var _ UserDirectory = (*Users)(nil)

// UsersController serves the identity management API. It expects the
// verification and privilege gates to run before it.
type UsersController struct {
	Logger Logger
	Users  UserDirectory
}

// NewUsersController creates the users API controller.
func NewUsersController(users UserDirectory, logger Logger) *UsersController {
	if logger == nil {
		logger = defLogger{}
	}
	return &UsersController{Logger: logger, Users: users}
}

// Register mounts the routes on router, the caller adds the gates.
func (u *UsersController) Register(router fiber.Router) {
	router.Get("/", u.List)
	router.Get("/count", u.Count)
	router.Get("/:id", u.Get)
	router.Post("/", u.Create)
	router.Put("/:id", u.Update)
	router.Delete("/:id", u.Delete)
}

// List returns identities matching the query filters.
func (u *UsersController) List(c *fiber.Ctx) error {
	opts, err := listOptionsFromQuery(c)
	if err != nil {
		return err
	}

	users, err := u.Users.List(c.UserContext(), opts)
	if err != nil {
		return err
	}

	records := make([]UserRecord, 0, len(users))
	for _, user := range users {
		records = append(records, NewUserRecord(user))
	}
	return c.Status(fiber.StatusOK).JSON(records)
}

// Count returns the number of identities matching the query filters.
func (u *UsersController) Count(c *fiber.Ctx) error {
	opts, err := listOptionsFromQuery(c)
	if err != nil {
		return err
	}

	total, err := u.Users.Count(c.UserContext(), opts)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(total)
}

// Get returns one identity.
func (u *UsersController) Get(c *fiber.Ctx) error {
	id, err := userIDParam(c)
	if err != nil {
		return err
	}

	user, err := u.Users.FindByID(c.UserContext(), id)
	if err != nil {
		return recordNotFound(err)
	}
	return c.Status(fiber.StatusOK).JSON(NewUserRecord(user))
}

// Create registers a new identity.
func (u *UsersController) Create(c *fiber.Ctx) error {
	payload := new(CreateUserRequest)
	if err := c.BodyParser(payload); err != nil {
		return WrapError(err, KindValidation, "unable to parse user payload")
	}
	if err := payload.Validate(); err != nil {
		return err
	}

	ctx := c.UserContext()
	if _, err := u.Users.RoleByID(ctx, payload.RoleID); err != nil {
		return err
	}

	record := &User{
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Email:     payload.Email,
		RoleID:    payload.RoleID,
	}

	if payload.Password != "" {
		hash, err := HashPassword(payload.Password)
		if err != nil {
			return err
		}
		record.PasswordHash = hash
	}

	created, err := u.Users.Create(ctx, record)
	if err != nil {
		return err
	}

	u.Logger.Info("user created", "user_id", created.ID, "role_id", created.RoleID)
	return c.Status(fiber.StatusCreated).JSON(NewUserRecord(created))
}

// Update changes the provided fields of an identity.
func (u *UsersController) Update(c *fiber.Ctx) error {
	id, err := userIDParam(c)
	if err != nil {
		return err
	}

	payload := new(UpdateUserRequest)
	if err := c.BodyParser(payload); err != nil {
		return WrapError(err, KindValidation, "unable to parse user payload")
	}
	if err := payload.Validate(); err != nil {
		return err
	}

	ctx := c.UserContext()
	patch := UserPatch{
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Email:     payload.Email,
		RoleID:    payload.RoleID,
	}

	if payload.RoleID != nil {
		if _, err := u.Users.RoleByID(ctx, *payload.RoleID); err != nil {
			return err
		}
	}

	if payload.Password != nil {
		hash, err := HashPassword(*payload.Password)
		if err != nil {
			return err
		}
		patch.PasswordHash = &hash
	}

	updated, err := u.Users.Update(ctx, id, patch)
	if err != nil {
		return recordNotFound(err)
	}
	return c.Status(fiber.StatusOK).JSON(NewUserRecord(updated))
}

// Delete soft deletes an identity and returns its last state.
func (u *UsersController) Delete(c *fiber.Ctx) error {
	id, err := userIDParam(c)
	if err != nil {
		return err
	}

	deleted, err := u.Users.SoftDelete(c.UserContext(), id)
	if err != nil {
		return recordNotFound(err)
	}

	u.Logger.Info("user deleted", "user_id", deleted.ID)
	return c.Status(fiber.StatusOK).JSON(NewUserRecord(deleted))
}

func userIDParam(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, NewError(KindValidation, "Invalid user ID").
			WithMetadata(map[string]any{"fields": map[string]string{"id": "must be a positive integer"}})
	}
	return id, nil
}

// recordNotFound turns a missing identity into the API level not found.
func recordNotFound(err error) error {
	if IsKind(err, KindIdentityNotFound) {
		return ErrRecordNotFound
	}
	return err
}

func listOptionsFromQuery(c *fiber.Ctx) (ListOptions, error) {
	opts := ListOptions{
		Search:    strings.TrimSpace(c.Query("search")),
		SortBy:    c.Query("sortBy"),
		SortOrder: strings.ToLower(c.Query("sortOrder")),
	}

	fields := map[string]string{}

	if opts.SortOrder != "" && opts.SortOrder != "asc" && opts.SortOrder != "desc" {
		fields["sortOrder"] = "must be asc or desc"
	}
	if opts.SortBy != "" {
		if _, ok := sortableColumns[opts.SortBy]; !ok {
			fields["sortBy"] = "unknown sort column"
		}
	}

	var err error
	if opts.RoleIDs, err = parseIDList(c.Query("roleId")); err != nil {
		fields["roleId"] = "must be a comma separated list of integers"
	}
	if opts.UserIDs, err = parseIDList(c.Query("userId")); err != nil {
		fields["userId"] = "must be a comma separated list of integers"
	}
	if opts.Limit, err = parsePositive(c.Query("limit")); err != nil {
		fields["limit"] = "must be a positive integer"
	}
	if opts.Page, err = parsePositive(c.Query("page")); err != nil {
		fields["page"] = "must be a positive integer"
	}

	if len(fields) > 0 {
		return opts, NewError(KindValidation, "Invalid query parameters").
			WithMetadata(map[string]any{"fields": fields})
	}
	return opts, nil
}

func parseIDList(raw string) ([]int64, error) {
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parsePositive(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, strconv.ErrSyntax
	}
	return n, nil
}
