package service

import (
	"time"

	"leadhub-data/internal/domain"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// WebhookNotifier 新lead的外发通知（可选，配置了 LEAD_WEBHOOK_URL 才启用）。
// 发送失败只记日志，绝不影响调用方。
type WebhookNotifier struct {
	client *resty.Client
	url    string
	logger *zap.Logger
}

func NewWebhookNotifier(url string, timeout time.Duration, logger *zap.Logger) *WebhookNotifier {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(1)
	return &WebhookNotifier{client: client, url: url, logger: logger}
}

// LeadCreated 单条lead创建成功
func (w *WebhookNotifier) LeadCreated(b *domain.Buyer) {
	payload := map[string]any{
		"event":    "lead.created",
		"buyerId":  b.ID,
		"fullName": b.FullName,
		"city":     b.City,
		"status":   b.Status,
	}
	w.post(payload)
}

// LeadsImported 批量导入成功
func (w *WebhookNotifier) LeadsImported(count int) {
	payload := map[string]any{
		"event": "lead.imported",
		"count": count,
	}
	w.post(payload)
}

func (w *WebhookNotifier) post(payload map[string]any) {
	resp, err := w.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(w.url)
	if err != nil {
		w.logger.Warn("lead webhook delivery failed", zap.Error(err))
		return
	}
	if resp.IsError() {
		w.logger.Warn("lead webhook rejected",
			zap.Int("status", resp.StatusCode()),
			zap.String("url", w.url))
	}
}
