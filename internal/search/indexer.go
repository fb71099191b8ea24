package search

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"company-service/internal/client"
	"company-service/internal/config"
	"company-service/internal/models"
	"company-service/internal/util"
)

// CompanyDoc is the search projection of a company. Credentials and
// review internals never leave the primary store.
type CompanyDoc struct {
	CompanyID        string `json:"company_id"`
	CompanyName      string `json:"company_name"`
	Email            string `json:"email"`
	Industry         string `json:"industry"`
	Size             string `json:"size"`
	Headquarters     string `json:"headquarters"`
	IsVerified       bool   `json:"is_verified"`
	IsBlocked        bool   `json:"is_blocked"`
	ProfileCompleted bool   `json:"profile_completed"`
}

// Indexer keeps the admin search index in sync with company state.
// Index writes are best effort; the primary store is authoritative.
type Indexer interface {
	IndexCompany(ctx context.Context, company *models.Company)
	SearchCompanies(ctx context.Context, query string, limit int) ([]CompanyDoc, error)
}

type esIndexer struct {
	es     *client.ESClient
	index  string
	logger *zap.Logger
}

func NewESIndexer(es *client.ESClient, cfg *config.Config, logger *zap.Logger) Indexer {
	return &esIndexer{
		es:     es,
		index:  cfg.Elasticsearch.CompanyIndex,
		logger: logger,
	}
}

func (i *esIndexer) IndexCompany(ctx context.Context, company *models.Company) {
	doc := CompanyDoc{
		CompanyID:        company.CompanyID,
		CompanyName:      company.CompanyName,
		Email:            company.Email,
		Industry:         company.Industry,
		Size:             company.Size,
		Headquarters:     company.Headquarters,
		IsVerified:       company.IsVerified,
		IsBlocked:        company.IsBlocked,
		ProfileCompleted: company.ProfileCompleted,
	}

	res, err := i.es.IndexDocument(ctx, i.index, company.CompanyID, doc)
	if err != nil {
		util.Warn("Failed to index company",
			zap.String("company_id", company.CompanyID),
			zap.Error(err))
		return
	}
	defer res.Body.Close()

	if res.IsError() {
		util.Warn("Company index write rejected",
			zap.String("company_id", company.CompanyID),
			zap.String("status", res.Status()))
		return
	}

	util.Debug("Company indexed", zap.String("company_id", company.CompanyID))
}

func (i *esIndexer) SearchCompanies(ctx context.Context, query string, limit int) ([]CompanyDoc, error) {
	if limit <= 0 {
		limit = 20
	}

	esQuery := map[string]interface{}{
		"size": limit,
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query,
				"fields": []string{"company_name^2", "industry", "headquarters", "email"},
			},
		},
	}

	res, err := i.es.Search(ctx, i.index, esQuery)
	if err != nil {
		return nil, fmt.Errorf("company search failed: %w", err)
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source CompanyDoc `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := i.es.ParseResponse(res, &parsed); err != nil {
		return nil, fmt.Errorf("company search parse failed: %w", err)
	}

	docs := make([]CompanyDoc, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		docs = append(docs, hit.Source)
	}

	return docs, nil
}

type nopIndexer struct{}

// NewNopIndexer returns an indexer that skips index writes and fails
// searches, used when the search cluster is unavailable in development.
func NewNopIndexer() Indexer {
	return nopIndexer{}
}

func (nopIndexer) IndexCompany(ctx context.Context, company *models.Company) {}

func (nopIndexer) SearchCompanies(ctx context.Context, query string, limit int) ([]CompanyDoc, error) {
	return nil, fmt.Errorf("company search unavailable")
}
