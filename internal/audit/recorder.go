package audit

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"company-service/internal/client"
	"company-service/internal/util"
)

// ErrHistoryUnavailable is returned when the analytics store backing
// the audit trail is not connected.
var ErrHistoryUnavailable = errors.New("review history unavailable")

// ReviewRecord is a single admin decision over a company profile.
type ReviewRecord struct {
	CompanyID  string
	Decision   string
	Reason     string
	ReviewedBy string
	ReviewedAt time.Time
}

// Recorder persists the review audit trail. Writes are best effort:
// a failed audit insert never fails the decision itself. Reads serve
// the admin decision-history view.
type Recorder interface {
	RecordReview(ctx context.Context, record ReviewRecord)
	ReviewHistory(ctx context.Context, companyID string) ([]ReviewRecord, error)
}

type clickhouseRecorder struct {
	client *client.ClickHouseClient
	logger *zap.Logger
}

const createAuditTableQuery = `
	CREATE TABLE IF NOT EXISTS company_review_audit (
		company_id  String,
		decision    String,
		reason      String,
		reviewed_by String,
		reviewed_at DateTime64(3),
		recorded_at DateTime64(3)
	) ENGINE = MergeTree()
	ORDER BY (company_id, reviewed_at)`

const insertReviewQuery = `
	INSERT INTO company_review_audit
		(company_id, decision, reason, reviewed_by, reviewed_at, recorded_at)`

const reviewHistoryQuery = `
	SELECT company_id, decision, reason, reviewed_by, reviewed_at
	FROM company_review_audit
	WHERE company_id = ?
	ORDER BY reviewed_at DESC
	LIMIT 100`

func NewClickHouseRecorder(ch *client.ClickHouseClient, logger *zap.Logger) Recorder {
	r := &clickhouseRecorder{
		client: ch,
		logger: logger,
	}

	// Table creation is idempotent. A failure here is survivable, the
	// first insert will surface the same problem in the logs.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := ch.Exec(ctx, createAuditTableQuery); err != nil {
		util.Warn("Failed to ensure review audit table", zap.Error(err))
	}

	return r
}

func (r *clickhouseRecorder) RecordReview(ctx context.Context, record ReviewRecord) {
	rows := [][]interface{}{{
		record.CompanyID,
		record.Decision,
		record.Reason,
		record.ReviewedBy,
		record.ReviewedAt,
		time.Now().UTC(),
	}}
	if err := r.client.BatchInsert(ctx, insertReviewQuery, rows); err != nil {
		util.Warn("Failed to record review audit row",
			zap.String("company_id", record.CompanyID),
			zap.String("decision", record.Decision),
			zap.Error(err))
		return
	}

	util.Debug("Review audit row recorded",
		zap.String("company_id", record.CompanyID),
		zap.String("decision", record.Decision))
}

func (r *clickhouseRecorder) ReviewHistory(ctx context.Context, companyID string) ([]ReviewRecord, error) {
	rows, err := r.client.QueryRows(ctx, reviewHistoryQuery, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []ReviewRecord
	for rows.Next() {
		var rec ReviewRecord
		if err := rows.Scan(&rec.CompanyID, &rec.Decision, &rec.Reason, &rec.ReviewedBy, &rec.ReviewedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

type nopRecorder struct{}

// NewNopRecorder returns a recorder that drops audit rows, used when
// the analytics store is unavailable in development.
func NewNopRecorder() Recorder {
	return nopRecorder{}
}

func (nopRecorder) RecordReview(ctx context.Context, record ReviewRecord) {}

func (nopRecorder) ReviewHistory(ctx context.Context, companyID string) ([]ReviewRecord, error) {
	return nil, ErrHistoryUnavailable
}
