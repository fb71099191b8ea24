package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"company-service/internal/config"
	"company-service/internal/util"
)

// JobsClient talks to the peer job service. Lookups are best effort:
// admin views fall back to zero counts when the service is down.
type JobsClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewJobsClient(cfg *config.Config, logger *zap.Logger) *JobsClient {
	util.Info("Jobs client initialized",
		zap.String("base_url", cfg.Jobs.BaseURL),
		zap.Duration("timeout", cfg.Jobs.Timeout),
	)

	return &JobsClient{
		baseURL: cfg.Jobs.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Jobs.Timeout,
		},
		logger: logger,
	}
}

// GetCompanyJobCount returns the number of jobs posted by a company,
// or 0 when the job service is unreachable or returns an error.
func (j *JobsClient) GetCompanyJobCount(ctx context.Context, companyID string) int {
	url := fmt.Sprintf("%s/api/jobs/company/%s/count", j.baseURL, companyID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		j.logger.Warn("job count request build failed",
			zap.String("company_id", companyID),
			zap.Error(err),
		)
		return 0
	}

	resp, err := j.httpClient.Do(req)
	if err != nil {
		j.logger.Warn("job count fetch failed",
			zap.String("company_id", companyID),
			zap.Error(err),
		)
		return 0
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		j.logger.Warn("job count fetch returned non-200",
			zap.String("company_id", companyID),
			zap.Int("status", resp.StatusCode),
		)
		return 0
	}

	var body struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		j.logger.Warn("job count decode failed",
			zap.String("company_id", companyID),
			zap.Error(err),
		)
		return 0
	}

	return body.Count
}
