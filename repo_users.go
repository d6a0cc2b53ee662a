package auth

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"
)

// Users is the bun backed identity repository. Soft deleted rows are
// invisible to every method except the email uniqueness check.
//
// Reads and deletes go through the generic repository. Inserts and patches
// stay on bun because the generic create path assigns uuid keys and
// identities use numeric ids.
type Users struct {
	db    bun.IDB
	repo  repository.Repository[*User]
	roles repository.Repository[*Role]
}

var _ IdentityStore = (*Users)(nil)

// NewUsersRepository creates a repository over db.
func NewUsersRepository(db bun.IDB) *Users {
	return &Users{
		db: db,
		repo: repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
			NewRecord:     func() *User { return &User{} },
			GetIdentifier: func() string { return "email" },
		}),
		roles: repository.NewRepository[*Role](db, repository.ModelHandlers[*Role]{
			NewRecord:     func() *Role { return &Role{} },
			GetIdentifier: func() string { return "name" },
		}),
	}
}

// ListOptions narrows List and Count.
type ListOptions struct {
	Search    string
	RoleIDs   []int64
	UserIDs   []int64
	SortBy    string
	SortOrder string
	Limit     int
	Page      int
}

// UserPatch holds the fields an update may change, nil fields are left as is.
type UserPatch struct {
	FirstName    *string
	LastName     *string
	Email        *string
	RoleID       *int64
	PasswordHash *string
}

var sortableColumns = map[string]string{
	"userId":    "id",
	"firstName": "first_name",
	"lastName":  "last_name",
	"email":     "email",
	"roleId":    "role_id",
}

func (r *Users) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.FindByEmailTx(ctx, r.db, email)
}

func (r *Users) FindByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error) {
	record, err := r.repo.GetByIdentifierTx(ctx, tx, email, repository.Relation("Role"))
	if err != nil {
		return nil, notFoundOr(err, "failed to find user by email")
	}
	return record, nil
}

func (r *Users) FindByID(ctx context.Context, id int64) (*User, error) {
	return r.FindByIDTx(ctx, r.db, id)
}

func (r *Users) FindByIDTx(ctx context.Context, tx bun.IDB, id int64) (*User, error) {
	record, err := r.repo.GetTx(ctx, tx, repository.Relation("Role"), selectByID(id))
	if err != nil {
		return nil, notFoundOr(err, "failed to find user by id")
	}
	return record, nil
}

func (r *Users) UpdateRefreshToken(ctx context.Context, id int64, token string) error {
	return r.UpdateRefreshTokenTx(ctx, r.db, id, token)
}

func (r *Users) UpdateRefreshTokenTx(ctx context.Context, tx bun.IDB, id int64, token string) error {
	now := time.Now().UTC()
	record := &User{ID: id, RefreshToken: token, UpdatedAt: &now}

	res, err := tx.NewUpdate().
		Model(record).
		Column("refresh_token", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to update refresh token")
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrIdentityNotFound
	}
	return nil
}

func (r *Users) List(ctx context.Context, opts ListOptions) ([]*User, error) {
	// a zero limit clears the repository default page size
	offset := 0
	if opts.Limit > 0 && opts.Page > 1 {
		offset = (opts.Page - 1) * opts.Limit
	}

	records, _, err := r.repo.List(ctx,
		repository.Relation("Role"),
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return applyListFilters(q, opts)
		}),
		listOrder(opts),
		repository.Paginate(max(opts.Limit, 0), offset),
	)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to list users")
	}
	return records, nil
}

func listOrder(opts ListOptions) repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		col, ok := sortableColumns[opts.SortBy]
		if !ok {
			return q.OrderExpr("?TableAlias.id ASC")
		}
		order := "ASC"
		if strings.EqualFold(opts.SortOrder, "desc") {
			order = "DESC"
		}
		return q.OrderExpr("?TableAlias.? "+order, bun.Ident(col))
	}
}

func selectByID(id int64) repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.id = ?", id)
	}
}

func (r *Users) Count(ctx context.Context, opts ListOptions) (int, error) {
	q := r.db.NewSelect().Model((*User)(nil))
	q = applyListFilters(q, opts)

	n, err := q.Count(ctx)
	if err != nil {
		return 0, errors.Wrap(err, errors.CategoryInternal, "failed to count users")
	}
	return n, nil
}

func applyListFilters(q *bun.SelectQuery, opts ListOptions) *bun.SelectQuery {
	if len(opts.UserIDs) > 0 {
		q = q.Where("?TableAlias.id IN (?)", bun.In(opts.UserIDs))
	}
	if len(opts.RoleIDs) > 0 {
		q = q.Where("?TableAlias.role_id IN (?)", bun.In(opts.RoleIDs))
	}
	if term := strings.TrimSpace(opts.Search); term != "" {
		like := "%" + term + "%"
		q = q.WhereGroup(" AND ", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.
				WhereOr("?TableAlias.first_name LIKE ?", like).
				WhereOr("?TableAlias.last_name LIKE ?", like).
				WhereOr("?TableAlias.email LIKE ?", like)
		})
	}
	return q
}

// Create inserts record and returns it with its role loaded.
func (r *Users) Create(ctx context.Context, record *User) (*User, error) {
	exists, err := r.db.NewSelect().
		Model((*User)(nil)).
		WhereAllWithDeleted().
		Where("email = ?", record.Email).
		Exists(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to check email")
	}
	if exists {
		return nil, ErrDuplicateEmail
	}

	record.ID = 0
	if _, err := r.db.NewInsert().Model(record).Returning("id").Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to create user")
	}

	return r.FindByID(ctx, record.ID)
}

// Update applies patch to the identity with id.
func (r *Users) Update(ctx context.Context, id int64, patch UserPatch) (*User, error) {
	current, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	columns := []string{"updated_at"}
	if patch.FirstName != nil {
		current.FirstName = *patch.FirstName
		columns = append(columns, "first_name")
	}
	if patch.LastName != nil {
		current.LastName = *patch.LastName
		columns = append(columns, "last_name")
	}
	if patch.Email != nil && *patch.Email != current.Email {
		taken, err := r.db.NewSelect().
			Model((*User)(nil)).
			WhereAllWithDeleted().
			Where("email = ?", *patch.Email).
			Where("id <> ?", id).
			Exists(ctx)
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryInternal, "failed to check email")
		}
		if taken {
			return nil, ErrDuplicateEmail
		}
		current.Email = *patch.Email
		columns = append(columns, "email")
	}
	if patch.RoleID != nil {
		current.RoleID = *patch.RoleID
		columns = append(columns, "role_id")
	}
	if patch.PasswordHash != nil {
		current.PasswordHash = *patch.PasswordHash
		columns = append(columns, "password_hash")
	}

	now := time.Now().UTC()
	current.UpdatedAt = &now

	if _, err := r.db.NewUpdate().Model(current).Column(columns...).WherePK().Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to update user")
	}

	return r.FindByID(ctx, id)
}

// SoftDelete flags the identity as deleted and returns its last state.
func (r *Users) SoftDelete(ctx context.Context, id int64) (*User, error) {
	current, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := r.repo.Delete(ctx, current); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to delete user")
	}
	return current, nil
}

// RoleByID loads a role tier.
func (r *Users) RoleByID(ctx context.Context, id int64) (*Role, error) {
	role, err := r.roles.Get(ctx, selectByID(id))
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, NewError(KindValidation, "unknown role").
				WithMetadata(map[string]any{"roleId": id})
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load role")
	}
	return role, nil
}

func notFoundOr(err error, msg string) error {
	if repository.IsRecordNotFound(err) {
		return ErrIdentityNotFound
	}
	return errors.Wrap(err, errors.CategoryInternal, msg)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
