package domain

import "time"

// DefaultBuyerStatus 新建lead的初始状态
const DefaultBuyerStatus = "New"

// Buyer 购房意向客户（lead）
// 可空字段使用指针：nil 表示数据库中的 NULL。
// Tags 是逗号拼接的标签串，存储层不做去重/格式校验，消费方自行 split。
type Buyer struct {
	ID      string `json:"id"`
	OwnerID string `json:"ownerId"`

	FullName     string  `json:"fullName"`
	Phone        string  `json:"phone"`
	Email        *string `json:"email,omitempty"`
	City         string  `json:"city"`
	PropertyType string  `json:"propertyType"`
	BHK          *string `json:"bhk,omitempty"`
	Purpose      string  `json:"purpose"`
	BudgetMin    *int    `json:"budgetMin,omitempty"`
	BudgetMax    *int    `json:"budgetMax,omitempty"`
	Timeline     string  `json:"timeline"`
	Source       string  `json:"source"`
	Status       string  `json:"status"`
	Notes        *string `json:"notes,omitempty"`
	Tags         *string `json:"tags,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	// UpdatedAt 在每次成功更新时严格递增，是唯一的并发令牌。
	UpdatedAt time.Time `json:"updatedAt"`
}
