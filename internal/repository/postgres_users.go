package repository

import (
	"context"
	"database/sql"
	"fmt"

	"leadhub-data/internal/domain"

	"github.com/google/uuid"
)

// PostgresUsersRepository 账号Repository实现
type PostgresUsersRepository struct {
	db *sql.DB
}

func NewPostgresUsersRepository(db *sql.DB) *PostgresUsersRepository {
	return &PostgresUsersRepository{db: db}
}

var _ UsersRepository = (*PostgresUsersRepository)(nil)

// UpsertUserByEmail 首次登录即建号
func (r *PostgresUsersRepository) UpsertUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}

	// ON CONFLICT 的 DO UPDATE 是为了让 RETURNING 在已存在时也返回该行
	query := `
		INSERT INTO users (user_id, email)
		VALUES ($1, $2)
		ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
		RETURNING user_id::text, email, created_at
	`

	var u domain.User
	err := r.db.QueryRowContext(ctx, query, uuid.NewString(), email).
		Scan(&u.ID, &u.Email, &u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}
	return &u, nil
}

// GetUser 按id获取账号
func (r *PostgresUsersRepository) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id is required")
	}

	var u domain.User
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id::text, email, created_at FROM users WHERE user_id = $1`,
		userID,
	).Scan(&u.ID, &u.Email, &u.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}
