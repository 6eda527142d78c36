package repository

import (
	"context"
	"errors"
	"time"

	"leadhub-data/internal/domain"
)

// ErrNotFound 记录不存在或不属于当前owner（对调用方刻意不区分）
var ErrNotFound = errors.New("record not found")

// ErrConflict 条件更新影响0行：记录不存在、不属于owner、或并发令牌过期。
// 三种原因对调用方同样不区分，统一提示 reload and retry。
var ErrConflict = errors.New("record has changed")

// BuyersRepository 购房客户Repository接口
// 使用强类型领域模型与过滤器，不使用map[string]any
type BuyersRepository interface {
	CreateBuyer(ctx context.Context, buyer *domain.Buyer) error
	GetBuyer(ctx context.Context, ownerID, buyerID string) (*domain.Buyer, error)

	// ListBuyers 分页查询（updated_at 倒序）。ownerID 为空时不做owner过滤
	// （仅 static 模式下的导出/联调场景）。
	ListBuyers(ctx context.Context, ownerID string, filters BuyerFilters, page, size int) ([]*domain.Buyer, int, error)

	// ListAllBuyers 导出用：同样的过滤条件，不分页。
	ListAllBuyers(ctx context.Context, ownerID string, filters BuyerFilters) ([]*domain.Buyer, error)

	// UpdateBuyerGuarded 条件更新：WHERE buyer_id AND owner_id AND updated_at = token。
	// 影响0行返回 ErrConflict。成功后由调用方重新读取新状态。
	UpdateBuyerGuarded(ctx context.Context, ownerID, buyerID string, patch BuyerPatch, expectedUpdatedAt time.Time) error

	DeleteBuyer(ctx context.Context, ownerID, buyerID string) error

	// CreateBuyersBatch 批量导入：单事务，全部成功或全部回滚。
	CreateBuyersBatch(ctx context.Context, buyers []*domain.Buyer) error

	// SampleTags 取最近 limit 条记录的非空tags串（标签建议的采样来源）。
	SampleTags(ctx context.Context, limit int) ([]string, error)
}

// BuyerFilters 查询过滤器。零值字段不参与过滤。
type BuyerFilters struct {
	City         string
	Status       string
	PropertyType string
	Purpose      string
	Timeline     string
	Source       string
	BHK          string

	// 预算区间重叠过滤：记录的 [budget_min, budget_max] 与查询区间有交集即命中，
	// 存储侧的 NULL 边界视为无界。
	MinBudget *int
	MaxBudget *int

	// Search 模糊搜索：full_name, email, phone, city, tags, notes
	Search string
}

// Optional 部分更新中的单个字段：Set=false 不改；Set=true 且 Value=nil 置 NULL。
type Optional[T any] struct {
	Set   bool
	Value *T
}

// Some 构造有值的 Optional
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: &v}
}

// Null 构造显式置NULL的 Optional
func Null[T any]() Optional[T] {
	return Optional[T]{Set: true}
}

// BuyerPatch 条件更新的字段集合。未 Set 的字段保持原值。
type BuyerPatch struct {
	FullName     Optional[string]
	Phone        Optional[string]
	Email        Optional[string]
	City         Optional[string]
	PropertyType Optional[string]
	BHK          Optional[string]
	Purpose      Optional[string]
	BudgetMin    Optional[int]
	BudgetMax    Optional[int]
	Timeline     Optional[string]
	Source       Optional[string]
	Status       Optional[string]
	Notes        Optional[string]
	Tags         Optional[string]
}
