package repos

import (
	"context"

	"github.com/jmoiron/sqlx"

	"invtrack/internal/domain"
)

type UserRepo struct{ DB *sqlx.DB }

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{DB: db} }

const userCols = `id, username, email, name, password_hash, role, created_at`

func (r *UserRepo) ByUsername(ctx context.Context, username string) (*domain.User, error) {
	var u domain.User
	err := r.DB.GetContext(ctx, &u, `SELECT `+userCols+` FROM users WHERE LOWER(username) = LOWER(?)`, username)
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (r *UserRepo) ByID(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	err := r.DB.GetContext(ctx, &u, `SELECT `+userCols+` FROM users WHERE id = ?`, id)
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	_, err := r.DB.NamedExecContext(ctx, `
	  INSERT INTO users(id, username, email, name, password_hash, role, created_at, updated_at)
	  VALUES(:id, :username, :email, :name, :password_hash, :role, :created_at, :created_at)
	`, u)
	return uniqueViolation(err)
}

// Update writes name and role.
func (r *UserRepo) Update(ctx context.Context, u *domain.User) error {
	return affected(r.DB.ExecContext(ctx, `UPDATE users SET name = ?, role = ?, updated_at = ? WHERE id = ?`,
		u.Name, u.Role, domain.Now(), u.ID))
}

// List returns every user ordered by username.
func (r *UserRepo) List(ctx context.Context) ([]domain.User, error) {
	out := []domain.User{}
	err := r.DB.SelectContext(ctx, &out, `SELECT `+userCols+` FROM users ORDER BY LOWER(username)`)
	return out, err
}

func (r *UserRepo) BindSession(ctx context.Context, sid, userID string) error {
	now := domain.Now()
	_, err := r.DB.ExecContext(ctx, `INSERT INTO sessions(id, user_id, created_at, last_seen)
                          VALUES(?, ?, ?, ?)
                          ON CONFLICT(id) DO UPDATE SET user_id = excluded.user_id, last_seen = excluded.last_seen`,
		sid, userID, now, now)
	return err
}

func (r *UserRepo) SessionUser(ctx context.Context, sid string) (*domain.User, error) {
	var u domain.User
	err := r.DB.GetContext(ctx, &u, `
      SELECT u.id, u.username, u.email, u.name, u.password_hash, u.role, u.created_at
      FROM sessions s
      JOIN users u ON u.id = s.user_id
      WHERE s.id = ?`, sid)
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (r *UserRepo) UnbindSession(ctx context.Context, sid string) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE sessions SET user_id = NULL, last_seen = ? WHERE id = ?`, domain.Now(), sid)
	return err
}

// Delete removes the user and its sessions. Ledger and stock movement rows
// keep the user id for audit.
func (r *UserRepo) Delete(ctx context.Context, userID string) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID); err != nil {
		return err
	}
	if err := affected(tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID)); err != nil {
		return err
	}
	return tx.Commit()
}
