package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/VNP-Solutions/vnp-scraper-backend-sub000/internal/crypto"
	"github.com/VNP-Solutions/vnp-scraper-backend-sub000/internal/domain"
	"github.com/VNP-Solutions/vnp-scraper-backend-sub000/internal/repository"

	"go.uber.org/zap"
)

// ScrapeJobCreator 爬虫任务提交（ScraperClient）
type ScrapeJobCreator interface {
	CreateJob(ctx context.Context, req ScrapeJobRequest) (json.RawMessage, error)
}

var _ ScrapeJobCreator = (*ScraperClient)(nil)

// 允许的任务类型
var scrapeJobTypes = map[string]bool{
	"expedia": true,
	"booking": true,
	"agoda":   true,
	"all":     true,
}

// PropertyService 物业详情、凭据、爬虫任务（都先做访问校验）
type PropertyService struct {
	access     *AccessChecker
	properties repository.PropertiesRepository
	cipher     *crypto.Cipher
	scraper    ScrapeJobCreator
	logger     *zap.Logger
}

func NewPropertyService(
	access *AccessChecker,
	properties repository.PropertiesRepository,
	cipher *crypto.Cipher,
	scraper ScrapeJobCreator,
	logger *zap.Logger,
) *PropertyService {
	return &PropertyService{
		access:     access,
		properties: properties,
		cipher:     cipher,
		scraper:    scraper,
		logger:     logger,
	}
}

func (s *PropertyService) GetProperty(ctx context.Context, principal domain.Principal, propertyID string) (*domain.Property, error) {
	return s.access.AuthorizeProperty(ctx, principal, propertyID)
}

// GetCredentials 返回解密后的 OTA 凭据
func (s *PropertyService) GetCredentials(ctx context.Context, principal domain.Principal, propertyID string) ([]domain.PropertyCredential, error) {
	if _, err := s.access.AuthorizeProperty(ctx, principal, propertyID); err != nil {
		return nil, err
	}
	creds, err := s.properties.ListCredentials(ctx, propertyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list credentials: %w", err)
	}
	for i := range creds {
		plain, err := s.cipher.Decrypt(creds[i].Password)
		if err != nil {
			s.logger.Error("Failed to decrypt credential",
				zap.String("credential_id", creds[i].ID),
				zap.Error(err),
			)
			return nil, fmt.Errorf("failed to decrypt credential %s: %w", creds[i].ID, err)
		}
		creds[i].Password = plain
	}
	return creds, nil
}

// TriggerScrapeJobRequest POST /properties/{id}/jobs 请求体
type TriggerScrapeJobRequest struct {
	JobType   string `json:"job_type"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// TriggerScrapeJob 校验访问后转发到爬虫服务
func (s *PropertyService) TriggerScrapeJob(ctx context.Context, principal domain.Principal, propertyID string, req TriggerScrapeJobRequest) (json.RawMessage, error) {
	jobType := strings.ToLower(strings.TrimSpace(req.JobType))
	if jobType == "" {
		jobType = "all"
	}
	if !scrapeJobTypes[jobType] {
		return nil, fmt.Errorf("%w: unsupported job_type %q", ErrValidation, req.JobType)
	}

	p, err := s.access.AuthorizeProperty(ctx, principal, propertyID)
	if err != nil {
		return nil, err
	}

	job, err := s.scraper.CreateJob(ctx, ScrapeJobRequest{
		PropertyID:  p.ID,
		JobType:     jobType,
		RequestedBy: principal.UserID,
		ExpediaID:   p.ExpediaID,
		BookingID:   p.BookingID,
		AgodaID:     p.AgodaID,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create scrape job: %w", err)
	}
	return job, nil
}
