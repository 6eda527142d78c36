package service

import (
	"context"
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"leadhub-data/internal/domain"
	"leadhub-data/internal/repository"

	"go.uber.org/zap"
)

// BuyerInput 创建lead的输入。可选字段空串视为未提供。
type BuyerInput struct {
	FullName     string `json:"fullName"`
	Phone        string `json:"phone"`
	Email        string `json:"email"`
	City         string `json:"city"`
	PropertyType string `json:"propertyType"`
	BHK          string `json:"bhk"`
	Purpose      string `json:"purpose"`
	BudgetMin    *int   `json:"budgetMin"`
	BudgetMax    *int   `json:"budgetMax"`
	Timeline     string `json:"timeline"`
	Source       string `json:"source"`
	Status       string `json:"status"`
	Notes        string `json:"notes"`
	Tags         string `json:"tags"`
}

// ListResult 分页查询结果
type ListResult struct {
	Data  []*domain.Buyer `json:"data"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
	Total int             `json:"total"`
}

// RowError 导入时单行的校验错误。Row 从1计数且含表头行（首个数据行为2）。
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ImportResult 导入结果。Created 为实际入库行数，Errors 为被跳过的行。
type ImportResult struct {
	Created int        `json:"created"`
	Errors  []RowError `json:"errors"`
}

// BuyerService lead业务逻辑
type BuyerService struct {
	repo    repository.BuyersRepository
	webhook *WebhookNotifier
	logger  *zap.Logger
}

// NewBuyerService 创建lead服务。webhook 可为 nil（未配置时）。
func NewBuyerService(repo repository.BuyersRepository, webhook *WebhookNotifier, logger *zap.Logger) *BuyerService {
	return &BuyerService{repo: repo, webhook: webhook, logger: logger}
}

// optStr 空串→nil（空串与NULL不落库混用）
func optStr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func validEmail(s string) bool {
	_, err := mail.ParseAddress(s)
	return err == nil
}

func (s *BuyerService) validateInput(in *BuyerInput) error {
	verr := &ValidationError{}

	required := []struct {
		field string
		value *string
	}{
		{"fullName", &in.FullName},
		{"phone", &in.Phone},
		{"city", &in.City},
		{"propertyType", &in.PropertyType},
		{"purpose", &in.Purpose},
		{"timeline", &in.Timeline},
		{"source", &in.Source},
	}
	for _, f := range required {
		*f.value = strings.TrimSpace(*f.value)
		if *f.value == "" {
			verr.add(f.field, "is required")
		}
	}

	in.Email = strings.TrimSpace(in.Email)
	if in.Email != "" && !validEmail(in.Email) {
		verr.add("email", "is not a valid email address")
	}

	return verr.orNil()
}

// Create 创建lead。必填字段非空且email（若提供）合法，否则 ValidationError。
func (s *BuyerService) Create(ctx context.Context, ownerID string, in BuyerInput) (*domain.Buyer, error) {
	if ownerID == "" {
		return nil, ErrUnauthorized
	}
	if err := s.validateInput(&in); err != nil {
		return nil, err
	}

	buyer := buyerFromInput(ownerID, in)
	if err := s.repo.CreateBuyer(ctx, buyer); err != nil {
		return nil, fmt.Errorf("failed to create buyer: %w", err)
	}

	s.notifyCreated(buyer)
	return buyer, nil
}

func buyerFromInput(ownerID string, in BuyerInput) *domain.Buyer {
	status := strings.TrimSpace(in.Status)
	if status == "" {
		status = domain.DefaultBuyerStatus
	}
	return &domain.Buyer{
		OwnerID:      ownerID,
		FullName:     in.FullName,
		Phone:        in.Phone,
		Email:        optStr(in.Email),
		City:         in.City,
		PropertyType: in.PropertyType,
		BHK:          optStr(in.BHK),
		Purpose:      in.Purpose,
		BudgetMin:    in.BudgetMin,
		BudgetMax:    in.BudgetMax,
		Timeline:     in.Timeline,
		Source:       in.Source,
		Status:       status,
		Notes:        optStr(in.Notes),
		Tags:         optStr(in.Tags),
	}
}

// Get 按id获取lead（owner限定）
func (s *BuyerService) Get(ctx context.Context, ownerID, buyerID string) (*domain.Buyer, error) {
	if ownerID == "" {
		return nil, ErrUnauthorized
	}
	return s.repo.GetBuyer(ctx, ownerID, buyerID)
}

// List 分页查询。page 1起，limit 默认20、上限100。
func (s *BuyerService) List(ctx context.Context, ownerID string, filters repository.BuyerFilters, page, limit int) (*ListResult, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	data, total, err := s.repo.ListBuyers(ctx, ownerID, filters, page, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list buyers: %w", err)
	}
	return &ListResult{Data: data, Page: page, Limit: limit, Total: total}, nil
}

// validatePatch 部分更新校验：已 Set 的必填字段不能清空；
// 可选字段空串归一为 NULL，避免空串和NULL两种"无值"混存。
func (s *BuyerService) validatePatch(patch *repository.BuyerPatch) error {
	verr := &ValidationError{}

	required := []struct {
		field string
		value *repository.Optional[string]
	}{
		{"fullName", &patch.FullName},
		{"phone", &patch.Phone},
		{"city", &patch.City},
		{"propertyType", &patch.PropertyType},
		{"purpose", &patch.Purpose},
		{"timeline", &patch.Timeline},
		{"source", &patch.Source},
		{"status", &patch.Status},
	}
	for _, f := range required {
		if !f.value.Set {
			continue
		}
		if f.value.Value == nil || strings.TrimSpace(*f.value.Value) == "" {
			verr.add(f.field, "cannot be empty")
			continue
		}
		trimmed := strings.TrimSpace(*f.value.Value)
		f.value.Value = &trimmed
	}

	optional := []struct {
		field string
		value *repository.Optional[string]
	}{
		{"email", &patch.Email},
		{"bhk", &patch.BHK},
		{"notes", &patch.Notes},
		{"tags", &patch.Tags},
	}
	for _, f := range optional {
		if !f.value.Set || f.value.Value == nil {
			continue
		}
		trimmed := strings.TrimSpace(*f.value.Value)
		if trimmed == "" {
			f.value.Value = nil
			continue
		}
		f.value.Value = &trimmed
	}

	if patch.Email.Set && patch.Email.Value != nil && !validEmail(*patch.Email.Value) {
		verr.add("email", "is not a valid email address")
	}

	return verr.orNil()
}

// Update 并发保护的部分更新。
// token（客户端最后读到的 updatedAt）不匹配时返回 repository.ErrConflict；
// 即使提交值与当前值相同，过期token也一律冲突，绝不静默成功。
func (s *BuyerService) Update(ctx context.Context, ownerID, buyerID string, patch repository.BuyerPatch, expectedUpdatedAt time.Time) (*domain.Buyer, error) {
	if ownerID == "" {
		return nil, ErrUnauthorized
	}
	if err := s.validatePatch(&patch); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateBuyerGuarded(ctx, ownerID, buyerID, patch, expectedUpdatedAt); err != nil {
		return nil, err
	}

	// 成功后重读：新的 updatedAt 即下一轮的令牌
	fresh, err := s.repo.GetBuyer(ctx, ownerID, buyerID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload buyer after update: %w", err)
	}
	return fresh, nil
}

// Delete 删除lead（owner限定）
func (s *BuyerService) Delete(ctx context.Context, ownerID, buyerID string) error {
	if ownerID == "" {
		return ErrUnauthorized
	}
	return s.repo.DeleteBuyer(ctx, ownerID, buyerID)
}

// ExportCSV 导出过滤结果为CSV（updated_at 倒序，不分页）
func (s *BuyerService) ExportCSV(ctx context.Context, ownerID string, filters repository.BuyerFilters) ([]byte, error) {
	buyers, err := s.repo.ListAllBuyers(ctx, ownerID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to export buyers: %w", err)
	}
	return encodeBuyersCSV(buyers), nil
}

// ExportXLSX 导出过滤结果为Excel
func (s *BuyerService) ExportXLSX(ctx context.Context, ownerID string, filters repository.BuyerFilters) ([]byte, error) {
	buyers, err := s.repo.ListAllBuyers(ctx, ownerID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to export buyers: %w", err)
	}
	return encodeBuyersXLSX(buyers)
}

// ImportCSV 批量导入。
// 表头缺必需列则整体拒绝（零写入）；行级校验失败只跳过该行并记录行号；
// 预算解析失败按空值处理；通过校验的行单事务写入，全有或全无。
func (s *BuyerService) ImportCSV(ctx context.Context, ownerID, csvText string) (*ImportResult, error) {
	if ownerID == "" {
		return nil, ErrUnauthorized
	}

	headers, rows := parseCSV(csvText)
	if len(headers) == 0 {
		verr := &ValidationError{}
		verr.add("csv", "empty CSV")
		return nil, verr
	}

	if missing := missingCSVColumns(headers); len(missing) > 0 {
		verr := &ValidationError{}
		verr.add("csv", "missing columns: "+strings.Join(missing, ", "))
		return nil, verr
	}

	result := &ImportResult{Errors: []RowError{}}
	buyers := []*domain.Buyer{}

	for i, row := range rows {
		cells := mapCSVRow(headers, row)

		missing := false
		for _, col := range csvRequiredColumns {
			if cells[col] == "" {
				missing = true
				break
			}
		}
		if missing {
			// +2：1起计数并越过表头行
			result.Errors = append(result.Errors, RowError{Row: i + 2, Message: "required fields missing"})
			continue
		}

		in := BuyerInput{
			FullName:     cells["fullName"],
			Phone:        cells["phone"],
			Email:        cells["email"],
			City:         cells["city"],
			PropertyType: cells["propertyType"],
			BHK:          cells["bhk"],
			Purpose:      cells["purpose"],
			BudgetMin:    parseOptInt(cells["budgetMin"]),
			BudgetMax:    parseOptInt(cells["budgetMax"]),
			Timeline:     cells["timeline"],
			Source:       cells["source"],
			Status:       cells["status"],
			Notes:        cells["notes"],
			Tags:         cells["tags"],
		}
		if err := s.validateInput(&in); err != nil {
			result.Errors = append(result.Errors, RowError{Row: i + 2, Message: err.Error()})
			continue
		}
		buyers = append(buyers, buyerFromInput(ownerID, in))
	}

	if len(buyers) == 0 {
		return result, ErrNoValidRows
	}

	if err := s.repo.CreateBuyersBatch(ctx, buyers); err != nil {
		return nil, fmt.Errorf("failed to import buyers: %w", err)
	}
	result.Created = len(buyers)

	s.notifyImported(result.Created)
	return result, nil
}

// parseOptInt 整数解析失败视为空值，不作为错误
func parseOptInt(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &v
}

func (s *BuyerService) notifyCreated(b *domain.Buyer) {
	if s.webhook == nil {
		return
	}
	go s.webhook.LeadCreated(b)
}

func (s *BuyerService) notifyImported(count int) {
	if s.webhook == nil {
		return
	}
	go s.webhook.LeadsImported(count)
}
