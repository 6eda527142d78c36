package domain

import "time"

// User 账号（email 登录）。User.ID 即 Buyer.OwnerID。
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}
