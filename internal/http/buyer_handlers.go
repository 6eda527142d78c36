package httpapi

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"leadhub-data/internal/repository"
	"leadhub-data/internal/service"

	"go.uber.org/zap"
)

// BuyerHandler lead CRUD + 导入导出 + 标签建议
type BuyerHandler struct {
	buyers *service.BuyerService
	tags   *service.TagService
	logger *zap.Logger
}

func NewBuyerHandler(buyers *service.BuyerService, tags *service.TagService, logger *zap.Logger) *BuyerHandler {
	return &BuyerHandler{buyers: buyers, tags: tags, logger: logger}
}

// Create POST /api/v1/buyers
func (h *BuyerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in service.BuyerInput
	if err := readBodyJSON(r, 1<<20, &in); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("Invalid JSON body"))
		return
	}

	buyer, err := h.buyers.Create(r.Context(), ownerFromContext(r.Context()), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(buyer))
}

// filtersFromQuery 查询参数→强类型过滤器。无法解析的预算参数按未提供处理。
func filtersFromQuery(r *http.Request) repository.BuyerFilters {
	q := r.URL.Query()
	f := repository.BuyerFilters{
		City:         q.Get("city"),
		Status:       q.Get("status"),
		PropertyType: q.Get("propertyType"),
		Purpose:      q.Get("purpose"),
		Timeline:     q.Get("timeline"),
		Source:       q.Get("source"),
		BHK:          q.Get("bhk"),
		Search:       q.Get("search"),
	}
	if v, err := strconv.Atoi(q.Get("minBudget")); err == nil {
		f.MinBudget = &v
	}
	if v, err := strconv.Atoi(q.Get("maxBudget")); err == nil {
		f.MaxBudget = &v
	}
	return f
}

// List GET /api/v1/buyers
func (h *BuyerHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := parseInt(q.Get("page"), 1)
	limit := parseInt(q.Get("limit"), 20)

	result, err := h.buyers.List(r.Context(), listScope(r), filtersFromQuery(r), page, limit)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(result))
}

// Get GET /api/v1/buyers/{id}
func (h *BuyerHandler) Get(w http.ResponseWriter, r *http.Request, id string) {
	buyer, err := h.buyers.Get(r.Context(), ownerFromContext(r.Context()), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(buyer))
}

// Update PUT /api/v1/buyers/{id}
// body携带待更新字段 + updatedAt 并发令牌。
func (h *BuyerHandler) Update(w http.ResponseWriter, r *http.Request, id string) {
	var body map[string]any
	if err := readBodyJSON(r, 1<<20, &body); err != nil || body == nil {
		writeJSON(w, http.StatusBadRequest, Fail("Invalid JSON body"))
		return
	}

	patch, token, err := patchFromBody(body)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	buyer, err := h.buyers.Update(r.Context(), ownerFromContext(r.Context()), id, patch, token)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(buyer))
}

// patchFromBody JSON body→BuyerPatch。
// key缺失=不改；显式null=置NULL；updatedAt 必填（RFC3339）。
func patchFromBody(body map[string]any) (repository.BuyerPatch, time.Time, error) {
	var patch repository.BuyerPatch

	strField := func(key string, dst *repository.Optional[string]) error {
		v, present := body[key]
		if !present {
			return nil
		}
		if v == nil {
			*dst = repository.Null[string]()
			return nil
		}
		s, ok := v.(string)
		if !ok {
			return &service.ValidationError{Fields: []service.FieldError{{Field: key, Message: "must be a string"}}}
		}
		*dst = repository.Some(s)
		return nil
	}
	intField := func(key string, dst *repository.Optional[int]) error {
		v, present := body[key]
		if !present {
			return nil
		}
		if v == nil {
			*dst = repository.Null[int]()
			return nil
		}
		f, ok := v.(float64)
		if !ok || f != float64(int(f)) {
			return &service.ValidationError{Fields: []service.FieldError{{Field: key, Message: "must be an integer"}}}
		}
		*dst = repository.Some(int(f))
		return nil
	}

	fields := []error{
		strField("fullName", &patch.FullName),
		strField("phone", &patch.Phone),
		strField("email", &patch.Email),
		strField("city", &patch.City),
		strField("propertyType", &patch.PropertyType),
		strField("bhk", &patch.BHK),
		strField("purpose", &patch.Purpose),
		intField("budgetMin", &patch.BudgetMin),
		intField("budgetMax", &patch.BudgetMax),
		strField("timeline", &patch.Timeline),
		strField("source", &patch.Source),
		strField("status", &patch.Status),
		strField("notes", &patch.Notes),
		strField("tags", &patch.Tags),
	}
	for _, err := range fields {
		if err != nil {
			return patch, time.Time{}, err
		}
	}

	raw, _ := body["updatedAt"].(string)
	if raw == "" {
		return patch, time.Time{}, &service.ValidationError{
			Fields: []service.FieldError{{Field: "updatedAt", Message: "is required"}},
		}
	}
	token, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return patch, time.Time{}, &service.ValidationError{
			Fields: []service.FieldError{{Field: "updatedAt", Message: "must be an RFC3339 timestamp"}},
		}
	}
	return patch, token, nil
}

// Delete DELETE /api/v1/buyers/{id}
func (h *BuyerHandler) Delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.buyers.Delete(r.Context(), ownerFromContext(r.Context()), id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(true))
}

// ExportCSV GET /api/v1/buyers/export
func (h *BuyerHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	data, err := h.buyers.ExportCSV(r.Context(), listScope(r), filtersFromQuery(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=buyers_export_%d.csv", time.Now().UnixMilli()))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// ExportXLSX GET /api/v1/buyers/export.xlsx
func (h *BuyerHandler) ExportXLSX(w http.ResponseWriter, r *http.Request) {
	data, err := h.buyers.ExportXLSX(r.Context(), listScope(r), filtersFromQuery(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=buyers_export_%d.xlsx", time.Now().UnixMilli()))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Import POST /api/v1/buyers/import
// 裸CSV body 或 JSON {"csv": "..."} 封套均可。
func (h *BuyerHandler) Import(w http.ResponseWriter, r *http.Request) {
	csvText, err := readImportBody(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("Expected CSV body"))
		return
	}

	result, err := h.buyers.ImportCSV(r.Context(), ownerFromContext(r.Context()), csvText)
	if err != nil {
		if result != nil {
			// 全部行被跳过：整体失败，但仍返回行级错误
			writeJSON(w, http.StatusBadRequest, FailWith("No valid rows", result))
			return
		}
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(result))
}

func readImportBody(r *http.Request) (string, error) {
	ctype := r.Header.Get("Content-Type")
	if strings.Contains(ctype, "text/csv") ||
		strings.Contains(ctype, "application/csv") ||
		strings.Contains(ctype, "text/plain") {
		body, err := io.ReadAll(io.LimitReader(r.Body, 10<<20))
		if err != nil {
			return "", err
		}
		return string(body), nil
	}

	var envelope struct {
		CSV string `json:"csv"`
	}
	if err := readBodyJSON(r, 10<<20, &envelope); err != nil {
		return "", err
	}
	if envelope.CSV == "" {
		return "", fmt.Errorf("expected csv field")
	}
	return envelope.CSV, nil
}

// SuggestTags GET /api/v1/tags/suggest?q=
func (h *BuyerHandler) SuggestTags(w http.ResponseWriter, r *http.Request) {
	tags := h.tags.Suggest(r.Context(), r.URL.Query().Get("q"))
	writeJSON(w, http.StatusOK, Ok(map[string]any{"tags": tags}))
}
