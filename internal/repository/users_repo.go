package repository

import (
	"context"

	"leadhub-data/internal/domain"
)

// UsersRepository 账号Repository接口
type UsersRepository interface {
	// UpsertUserByEmail 首次登录即建号：email 已存在时返回既有账号。
	UpsertUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUser(ctx context.Context, userID string) (*domain.User, error)
}
