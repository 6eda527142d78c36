package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"leadhub-data/internal/domain"

	"github.com/google/uuid"
)

// PostgresBuyersRepository 购房客户Repository实现
type PostgresBuyersRepository struct {
	db *sql.DB
}

// NewPostgresBuyersRepository 创建购房客户Repository
func NewPostgresBuyersRepository(db *sql.DB) *PostgresBuyersRepository {
	return &PostgresBuyersRepository{db: db}
}

// 确保实现了接口
var _ BuyersRepository = (*PostgresBuyersRepository)(nil)

const buyerColumns = `
	buyer_id::text,
	owner_id,
	full_name,
	phone,
	email,
	city,
	property_type,
	bhk,
	purpose,
	budget_min,
	budget_max,
	timeline,
	source,
	status,
	notes,
	tags,
	created_at,
	updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBuyer(s rowScanner) (*domain.Buyer, error) {
	var b domain.Buyer
	var email, bhk, notes, tags sql.NullString
	var budgetMin, budgetMax sql.NullInt64

	err := s.Scan(
		&b.ID,
		&b.OwnerID,
		&b.FullName,
		&b.Phone,
		&email,
		&b.City,
		&b.PropertyType,
		&bhk,
		&b.Purpose,
		&budgetMin,
		&budgetMax,
		&b.Timeline,
		&b.Source,
		&b.Status,
		&notes,
		&tags,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	// 处理可空字段
	if email.Valid {
		b.Email = &email.String
	}
	if bhk.Valid {
		b.BHK = &bhk.String
	}
	if notes.Valid {
		b.Notes = &notes.String
	}
	if tags.Valid {
		b.Tags = &tags.String
	}
	if budgetMin.Valid {
		v := int(budgetMin.Int64)
		b.BudgetMin = &v
	}
	if budgetMax.Valid {
		v := int(budgetMax.Int64)
		b.BudgetMax = &v
	}
	return &b, nil
}

// CreateBuyer 创建lead。ID为空时生成uuid；created_at/updated_at 由数据库赋值。
func (r *PostgresBuyersRepository) CreateBuyer(ctx context.Context, buyer *domain.Buyer) error {
	if buyer.OwnerID == "" {
		return fmt.Errorf("owner_id is required")
	}
	if buyer.ID == "" {
		buyer.ID = uuid.NewString()
	}

	query := `
		INSERT INTO buyers (
			buyer_id, owner_id, full_name, phone, email, city, property_type,
			bhk, purpose, budget_min, budget_max, timeline, source, status, notes, tags
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		buyer.ID,
		buyer.OwnerID,
		buyer.FullName,
		buyer.Phone,
		buyer.Email,
		buyer.City,
		buyer.PropertyType,
		buyer.BHK,
		buyer.Purpose,
		buyer.BudgetMin,
		buyer.BudgetMax,
		buyer.Timeline,
		buyer.Source,
		buyer.Status,
		buyer.Notes,
		buyer.Tags,
	).Scan(&buyer.CreatedAt, &buyer.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create buyer: %w", err)
	}
	return nil
}

// GetBuyer 按id获取lead。ownerID 非空时限定owner（不存在与越权同样返回 ErrNotFound）。
func (r *PostgresBuyersRepository) GetBuyer(ctx context.Context, ownerID, buyerID string) (*domain.Buyer, error) {
	if buyerID == "" {
		return nil, fmt.Errorf("buyer_id is required")
	}

	where := "buyer_id = $1"
	args := []any{buyerID}
	if ownerID != "" {
		where += " AND owner_id = $2"
		args = append(args, ownerID)
	}

	query := fmt.Sprintf(`SELECT %s FROM buyers WHERE %s`, buyerColumns, where)

	buyer, err := scanBuyer(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get buyer: %w", err)
	}
	return buyer, nil
}

// buildBuyerWhere 构建WHERE条件。返回条件串、参数表与下一个可用参数序号。
func buildBuyerWhere(ownerID string, filters BuyerFilters) (string, []any, int) {
	where := []string{}
	args := []any{}
	argIdx := 1

	if ownerID != "" {
		where = append(where, fmt.Sprintf("owner_id = $%d", argIdx))
		args = append(args, ownerID)
		argIdx++
	}

	// 精确匹配过滤
	exact := []struct {
		col string
		val string
	}{
		{"city", filters.City},
		{"status", filters.Status},
		{"property_type", filters.PropertyType},
		{"purpose", filters.Purpose},
		{"timeline", filters.Timeline},
		{"source", filters.Source},
		{"bhk", filters.BHK},
	}
	for _, f := range exact {
		if f.val != "" {
			where = append(where, fmt.Sprintf("%s = $%d", f.col, argIdx))
			args = append(args, f.val)
			argIdx++
		}
	}

	// 预算区间重叠：NULL 边界视为无界
	if filters.MinBudget != nil {
		where = append(where, fmt.Sprintf("(budget_max IS NULL OR budget_max >= $%d)", argIdx))
		args = append(args, *filters.MinBudget)
		argIdx++
	}
	if filters.MaxBudget != nil {
		where = append(where, fmt.Sprintf("(budget_min IS NULL OR budget_min <= $%d)", argIdx))
		args = append(args, *filters.MaxBudget)
		argIdx++
	}

	// 模糊搜索：list 与 export 使用同一套列
	if s := strings.TrimSpace(filters.Search); s != "" {
		where = append(where, fmt.Sprintf(
			"(full_name ILIKE $%d OR email ILIKE $%d OR phone ILIKE $%d OR city ILIKE $%d OR tags ILIKE $%d OR notes ILIKE $%d)",
			argIdx, argIdx, argIdx, argIdx, argIdx, argIdx))
		args = append(args, "%"+s+"%")
		argIdx++
	}

	if len(where) == 0 {
		return "TRUE", args, argIdx
	}
	return strings.Join(where, " AND "), args, argIdx
}

// ListBuyers 分页查询lead列表（updated_at 倒序）
func (r *PostgresBuyersRepository) ListBuyers(ctx context.Context, ownerID string, filters BuyerFilters, page, size int) ([]*domain.Buyer, int, error) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	if size > 100 {
		size = 100
	}
	offset := (page - 1) * size

	whereClause, args, argIdx := buildBuyerWhere(ownerID, filters)

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM buyers WHERE %s`, whereClause)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count buyers: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM buyers
		WHERE %s
		ORDER BY updated_at DESC
		LIMIT $%d OFFSET $%d
	`, buyerColumns, whereClause, argIdx, argIdx+1)
	args = append(args, size, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list buyers: %w", err)
	}
	defer rows.Close()

	buyers := []*domain.Buyer{}
	for rows.Next() {
		b, err := scanBuyer(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan buyer: %w", err)
		}
		buyers = append(buyers, b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate buyers: %w", err)
	}

	return buyers, total, nil
}

// ListAllBuyers 导出用：同样的过滤条件，不分页
func (r *PostgresBuyersRepository) ListAllBuyers(ctx context.Context, ownerID string, filters BuyerFilters) ([]*domain.Buyer, error) {
	whereClause, args, _ := buildBuyerWhere(ownerID, filters)

	query := fmt.Sprintf(`
		SELECT %s
		FROM buyers
		WHERE %s
		ORDER BY updated_at DESC
	`, buyerColumns, whereClause)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list buyers: %w", err)
	}
	defer rows.Close()

	buyers := []*domain.Buyer{}
	for rows.Next() {
		b, err := scanBuyer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan buyer: %w", err)
		}
		buyers = append(buyers, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate buyers: %w", err)
	}

	return buyers, nil
}

// UpdateBuyerGuarded 条件更新。
// 匹配谓词 (buyer_id, owner_id, updated_at=token) 由数据库原子求值，
// 这是系统唯一的并发控制手段；影响0行统一视为 ErrConflict。
func (r *PostgresBuyersRepository) UpdateBuyerGuarded(ctx context.Context, ownerID, buyerID string, patch BuyerPatch, expectedUpdatedAt time.Time) error {
	if ownerID == "" || buyerID == "" {
		return fmt.Errorf("owner_id and buyer_id are required")
	}

	set := []string{"updated_at = now()"}
	args := []any{}
	argIdx := 1

	appendStr := func(col string, v Optional[string]) {
		if !v.Set {
			return
		}
		if v.Value == nil {
			set = append(set, col+" = NULL")
			return
		}
		set = append(set, fmt.Sprintf("%s = $%d", col, argIdx))
		args = append(args, *v.Value)
		argIdx++
	}
	appendInt := func(col string, v Optional[int]) {
		if !v.Set {
			return
		}
		if v.Value == nil {
			set = append(set, col+" = NULL")
			return
		}
		set = append(set, fmt.Sprintf("%s = $%d", col, argIdx))
		args = append(args, *v.Value)
		argIdx++
	}

	appendStr("full_name", patch.FullName)
	appendStr("phone", patch.Phone)
	appendStr("email", patch.Email)
	appendStr("city", patch.City)
	appendStr("property_type", patch.PropertyType)
	appendStr("bhk", patch.BHK)
	appendStr("purpose", patch.Purpose)
	appendInt("budget_min", patch.BudgetMin)
	appendInt("budget_max", patch.BudgetMax)
	appendStr("timeline", patch.Timeline)
	appendStr("source", patch.Source)
	appendStr("status", patch.Status)
	appendStr("notes", patch.Notes)
	appendStr("tags", patch.Tags)

	query := fmt.Sprintf(`
		UPDATE buyers
		SET %s
		WHERE buyer_id = $%d AND owner_id = $%d AND updated_at = $%d
	`, strings.Join(set, ", "), argIdx, argIdx+1, argIdx+2)
	args = append(args, buyerID, ownerID, expectedUpdatedAt)

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update buyer: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return ErrConflict
	}
	return nil
}

// DeleteBuyer 删除lead（owner限定）
func (r *PostgresBuyersRepository) DeleteBuyer(ctx context.Context, ownerID, buyerID string) error {
	if ownerID == "" || buyerID == "" {
		return fmt.Errorf("owner_id and buyer_id are required")
	}

	res, err := r.db.ExecContext(ctx,
		`DELETE FROM buyers WHERE buyer_id = $1 AND owner_id = $2`,
		buyerID, ownerID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete buyer: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateBuyersBatch 批量导入：单事务，任一行失败则整体回滚
func (r *PostgresBuyersRepository) CreateBuyersBatch(ctx context.Context, buyers []*domain.Buyer) error {
	if len(buyers) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO buyers (
			buyer_id, owner_id, full_name, phone, email, city, property_type,
			bhk, purpose, budget_min, budget_max, timeline, source, status, notes, tags
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	for _, buyer := range buyers {
		if buyer.ID == "" {
			buyer.ID = uuid.NewString()
		}
		if _, err := tx.ExecContext(ctx, query,
			buyer.ID,
			buyer.OwnerID,
			buyer.FullName,
			buyer.Phone,
			buyer.Email,
			buyer.City,
			buyer.PropertyType,
			buyer.BHK,
			buyer.Purpose,
			buyer.BudgetMin,
			buyer.BudgetMax,
			buyer.Timeline,
			buyer.Source,
			buyer.Status,
			buyer.Notes,
			buyer.Tags,
		); err != nil {
			return fmt.Errorf("failed to insert buyer batch: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit buyer batch: %w", err)
	}
	return nil
}

// SampleTags 取最近 limit 条记录的非空tags串。
// 标签建议是建议性数据，不做owner隔离（与导出/列表不同）。
func (r *PostgresBuyersRepository) SampleTags(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 500
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT tags FROM buyers WHERE tags IS NOT NULL ORDER BY updated_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to sample tags: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("failed to scan tags: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tags: %w", err)
	}
	return out, nil
}
