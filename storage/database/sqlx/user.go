package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/user"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type userRow struct {
	ID           string         `db:"id"`
	Name         string         `db:"name"`
	Username     null.String    `db:"username"`
	Email        null.String    `db:"email"`
	IsActive     bool           `db:"is_active"`
	Roles        pq.StringArray `db:"roles"`
	PasswordHash []byte         `db:"password_hash"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
	LastLogin    null.Time      `db:"last_login"`
}

func (row userRow) toUser() user.User {
	usr := user.User{
		ID:           row.ID,
		Name:         row.Name,
		Username:     row.Username.String,
		Email:        row.Email.String,
		Roles:        row.Roles,
		PasswordHash: row.PasswordHash,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
		LastLogin:    row.LastLogin.Time,
	}
	usr.SetActive(row.IsActive)
	return usr
}

// nullStr maps "" to NULL so empty usernames never trip the unique index.
func nullStr(s string) null.String {
	if s == "" {
		return null.String{}
	}
	return null.StringFrom(s)
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	var conds sq.Or
	if username != "" {
		conds = append(conds, sq.Eq{"username": username})
	}
	if email != "" {
		conds = append(conds, sq.Eq{"email": email})
	}
	if len(conds) == 0 {
		return nil
	}

	q := psql.Select("username", "email").From(`"user"`).Where(conds)
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, usr := range excludedUsers {
			ids = append(ids, usr.ID)
		}
		q = q.Where(sq.NotEq{"id": ids})
	}
	query, args, err := q.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}

	var rows []struct {
		Username null.String `db:"username"`
		Email    null.String `db:"email"`
	}
	if err = repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return errors.Wrap(err, "checking username uniqueness")
	}
	for _, row := range rows {
		if username != "" && row.Username.String == username {
			return user.ErrUsernameExists
		}
		if email != "" && row.Email.String == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	query, args, err := psql.Insert(`"user"`).
		Columns("name", "username", "email", "is_active", "roles", "password_hash", "created_at", "updated_at").
		Values(usr.Name, nullStr(usr.Username), nullStr(usr.Email), usr.Active(), pq.StringArray(usr.Roles), usr.PasswordHash, usr.CreatedAt, usr.UpdatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return user.User{}, errors.Wrap(err, "building query")
	}
	if err = repo.db.QueryRowContext(ctx, query, args...).Scan(&usr.ID); err != nil {
		return user.User{}, errors.Wrap(err, "creating user")
	}
	return usr, nil
}

func (repo *userRepository) QueryAllUsers(ctx context.Context) ([]user.User, error) {
	return repo.selectUsers(ctx, repo.baseSelect().OrderBy("created_at"))
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	var conds sq.Or
	if filter.ID != "" {
		conds = append(conds, sq.Eq{"id": filter.ID})
	}
	if len(filter.UsernameOrEmail) > 0 {
		conds = append(conds, sq.Eq{"username": filter.UsernameOrEmail}, sq.Eq{"email": filter.UsernameOrEmail})
	}
	if len(conds) == 0 {
		return user.User{}, user.ErrNotFound
	}

	query, args, err := repo.baseSelect().Where(conds).ToSql()
	if err != nil {
		return user.User{}, errors.Wrap(err, "building query")
	}
	var row userRow
	if err = repo.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "getting user")
	}
	return row.toUser(), nil
}

func (repo *userRepository) FilterUsers(ctx context.Context, filter user.QueryFilter) ([]user.User, error) {
	q := repo.baseSelect()
	if filter.Search != "" {
		search := "%" + filter.Search + "%"
		q = q.Where(sq.Or{
			sq.Expr("name ILIKE ?", search),
			sq.Expr("username ILIKE ?", search),
			sq.Expr("email ILIKE ?", search),
		})
	}
	if len(filter.Roles) > 0 {
		var roleConds sq.Or
		for _, role := range filter.Roles {
			roleConds = append(roleConds, sq.Expr("EXISTS (SELECT 1 FROM unnest(roles) AS r WHERE r LIKE ?)", role+"%"))
		}
		q = q.Where(roleConds)
	}
	if filter.IsActive != nil {
		q = q.Where(sq.Eq{"is_active": *filter.IsActive})
	}
	if !filter.CreatedFrom.IsZero() {
		q = q.Where(sq.GtOrEq{"created_at": filter.CreatedFrom.UTC()})
	}
	if !filter.CreatedTo.IsZero() {
		q = q.Where(sq.LtOrEq{"created_at": filter.CreatedTo.UTC()})
	}
	q = q.OrderBy(orderBy(filter.Orderings)...)
	return repo.selectUsers(ctx, q)
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	q := psql.Update(`"user"`).Where(sq.Eq{"id": usr.ID})
	// only save set fields
	if usr.Name != "" {
		q = q.Set("name", usr.Name)
	}
	if usr.Username != "" {
		q = q.Set("username", usr.Username)
	}
	if usr.Email != "" {
		q = q.Set("email", usr.Email)
	}
	if usr.IsActive != nil {
		q = q.Set("is_active", *usr.IsActive)
	}
	if usr.Roles != nil {
		q = q.Set("roles", pq.StringArray(usr.Roles))
	}
	if usr.PasswordHash != nil {
		q = q.Set("password_hash", usr.PasswordHash)
	}
	if !usr.UpdatedAt.IsZero() {
		q = q.Set("updated_at", usr.UpdatedAt)
	}
	if !usr.LastLogin.IsZero() {
		q = q.Set("last_login", usr.LastLogin)
	}

	query, args, err := q.ToSql()
	if err != nil {
		return user.User{}, errors.Wrap(err, "building query")
	}
	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return repo.GetUser(ctx, user.GetFilter{ID: usr.ID})
}

func (repo *userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User) (user.User, error) {
	if usr.ID == "" {
		return repo.CreateUser(ctx, usr)
	}
	updated, err := repo.UpdateUser(ctx, usr)
	if errors.Cause(err) == user.ErrNotFound {
		return repo.CreateUser(ctx, usr)
	}
	return updated, err
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids ...string) error {
	query, args, err := psql.Delete(`"user"`).Where(sq.Eq{"id": ids}).ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	if _, err = repo.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(err, "deleting users")
	}
	return nil
}

func (repo *userRepository) baseSelect() sq.SelectBuilder {
	return psql.Select("id", "name", "username", "email", "is_active", "roles", "password_hash", "created_at", "updated_at", "last_login").
		From(`"user"`)
}

// orderableColumns guards the `ordering` query param against injection.
var orderableColumns = map[string]struct{}{
	"name": {}, "username": {}, "email": {}, "created_at": {}, "last_login": {},
}

func orderBy(orderings []core.DBOrdering) []string {
	terms := make([]string, 0, len(orderings))
	for _, ord := range orderings {
		if _, ok := orderableColumns[ord.Field]; ok {
			terms = append(terms, ord.String())
		}
	}
	if len(terms) == 0 {
		terms = append(terms, "created_at ASC")
	}
	return terms
}

func (repo *userRepository) selectUsers(ctx context.Context, q sq.SelectBuilder) ([]user.User, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	var rows []userRow
	if err = repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.toUser())
	}
	return users, nil
}
