package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/VNP-Solutions/vnp-scraper-backend-sub000/internal/config"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// ScrapeJobRequest 提交给爬虫服务的任务
type ScrapeJobRequest struct {
	PropertyID  string  `json:"property_id"`
	JobType     string  `json:"job_type"`
	RequestedBy string  `json:"requested_by"`
	ExpediaID   *string `json:"expedia_id,omitempty"`
	BookingID   *string `json:"booking_id,omitempty"`
	AgodaID     *string `json:"agoda_id,omitempty"`
	StartDate   string  `json:"start_date,omitempty"`
	EndDate     string  `json:"end_date,omitempty"`
}

// ScraperClient 爬虫服务 API 客户端（不重试：失败直接返回给调用方）
type ScraperClient struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

func NewScraperClient(cfg config.ScraperConfig, logger *zap.Logger) *ScraperClient {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if cfg.APIKey != "" {
		client.SetHeader("X-API-Key", cfg.APIKey)
	}
	return &ScraperClient{httpClient: client, logger: logger}
}

// CreateJob 返回爬虫服务的任务记录（原样透传）
func (c *ScraperClient) CreateJob(ctx context.Context, req ScrapeJobRequest) (json.RawMessage, error) {
	c.logger.Info("Calling scraper API: create job",
		zap.String("property_id", req.PropertyID),
		zap.String("job_type", req.JobType),
	)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(req).
		Post("/jobs")
	if err != nil {
		c.logger.Error("Scraper API call failed", zap.Error(err))
		return nil, fmt.Errorf("failed to call scraper API: %w", err)
	}
	if resp.IsError() {
		c.logger.Error("Scraper API returned error",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("body", resp.String()),
		)
		return nil, fmt.Errorf("scraper API error: status %d", resp.StatusCode())
	}

	body := resp.Body()
	if !json.Valid(body) {
		return nil, fmt.Errorf("scraper API returned invalid JSON")
	}
	return json.RawMessage(body), nil
}
