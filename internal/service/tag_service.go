package service

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"leadhub-data/internal/repository"
	"leadhub-data/internal/store"

	"go.uber.org/zap"
)

const (
	// tagSampleLimit 采样上限：只扫描最近N条记录的tags串，不做全表扫描
	tagSampleLimit = 500
	// tagSuggestLimit 返回上限
	tagSuggestLimit = 50
	// tagCacheTTL 建议结果的缓存时长
	tagCacheTTL = 30 * time.Second
)

// TagService 标签建议：从存量tags串导出去重、过滤、排序的建议列表。
// 建议是辅助性数据，底层失败时返回空列表而不是错误。
type TagService struct {
	repo   repository.BuyersRepository
	kv     store.KV
	logger *zap.Logger
}

// NewTagService 创建标签服务。kv 可为 nil（不缓存）。
func NewTagService(repo repository.BuyersRepository, kv store.KV, logger *zap.Logger) *TagService {
	return &TagService{repo: repo, kv: kv, logger: logger}
}

// Suggest 标签建议。
// 大小写不敏感去重（保留首次出现的写法），query 为小写包含匹配，
// 结果按字典序排序并截断到上限。
func (s *TagService) Suggest(ctx context.Context, query string) []string {
	query = strings.ToLower(strings.TrimSpace(query))
	cacheKey := "tags:suggest:" + query

	if s.kv != nil {
		if cached, err := s.kv.Get(ctx, cacheKey); err == nil {
			var tags []string
			if json.Unmarshal([]byte(cached), &tags) == nil {
				return tags
			}
		}
	}

	samples, err := s.repo.SampleTags(ctx, tagSampleLimit)
	if err != nil {
		s.logger.Warn("tag sampling failed, returning empty suggestions", zap.Error(err))
		return []string{}
	}

	seen := map[string]bool{}
	tags := []string{}
	for _, raw := range samples {
		for _, piece := range strings.Split(raw, ",") {
			t := strings.TrimSpace(piece)
			if t == "" {
				continue
			}
			lower := strings.ToLower(t)
			if seen[lower] {
				continue
			}
			seen[lower] = true
			if query != "" && !strings.Contains(lower, query) {
				continue
			}
			tags = append(tags, t)
		}
	}

	sort.Strings(tags)
	if len(tags) > tagSuggestLimit {
		tags = tags[:tagSuggestLimit]
	}

	if s.kv != nil {
		if data, err := json.Marshal(tags); err == nil {
			// 缓存失败不影响结果
			_ = s.kv.Set(ctx, cacheKey, string(data), tagCacheTTL)
		}
	}
	return tags
}
