package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/lib/pq"

	"stagelink/internal/common"
	"stagelink/internal/domain/principal"
	"stagelink/internal/domain/user"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, u user.User) (*user.User, error) {
	if u.ID.IsZero() {
		u.ID = common.NewUUID()
	}
	u.CreatedAt = time.Now().UTC()
	if u.Profile == nil {
		u.Profile = map[string]any{}
	}
	profile, err := json.Marshal(u.Profile)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to encode profile", err)
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO users (id, email, first_name, last_name, roles, profile, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID, u.Email, u.FirstName, u.LastName, pq.Array(roleStrings(u.Roles)), profile, u.CreatedAt)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to create user", err)
	}
	return &u, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id common.UUID) (*user.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, email, first_name, last_name, roles, profile, created_at FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (r *UserRepository) ListByRole(ctx context.Context, role principal.Role) ([]user.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, email, first_name, last_name, roles, profile, created_at
		FROM users WHERE $1 = ANY(roles) ORDER BY created_at DESC`, string(role))
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to list users", err)
	}
	defer rows.Close()
	var items []user.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *u)
	}
	return items, nil
}

func scanUser(row rowScanner) (*user.User, error) {
	var (
		u       user.User
		roles   []string
		profile []byte
	)
	if err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, pq.Array(&roles), &profile, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.NewError(common.CodeNotFound, "user not found", err)
		}
		return nil, common.NewError(common.CodeInternal, "failed to load user", err)
	}
	u.Roles = make([]principal.Role, len(roles))
	for i, role := range roles {
		u.Roles[i] = principal.Role(role)
	}
	if err := json.Unmarshal(profile, &u.Profile); err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to decode profile", err)
	}
	return &u, nil
}

func roleStrings(roles []principal.Role) []string {
	out := make([]string, len(roles))
	for i, role := range roles {
		out[i] = string(role)
	}
	return out
}
