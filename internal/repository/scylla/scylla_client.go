package scylla

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gocql/gocql"
	"go.uber.org/zap"

	"company-service/internal/config"
	"company-service/internal/util"
)

// PreparedStatements holds prepared statements that are actually used by the repository.
// The company and profile-step inserts are absent: creation runs as a
// logged batch so both rows land together.
type PreparedStatements struct {
	CreateEmailToCompany *gocql.Query
	GetCompanyByID       *gocql.Query
	GetCompanyByEmail    *gocql.Query
	UpdateCompanyDetails *gocql.Query
	UpdateContactInfo    *gocql.Query
	SetBlocked           *gocql.Query
	SetReview            *gocql.Query
	GetProfileStep       *gocql.Query
	UpdateProfileStep    *gocql.Query
}

type ScyllaClient struct {
	Session      *gocql.Session
	config       *config.ScyllaConfig
	Prepared     *PreparedStatements
	prepareMutex sync.RWMutex
	isPrepared   bool
}

func NewScyllaClient(cfg *config.Config, logger *zap.Logger) (*ScyllaClient, error) {
	scyllaConfig := cfg.Scylla

	cluster := gocql.NewCluster(scyllaConfig.Nodes...)
	cluster.Keyspace = scyllaConfig.Keyspace
	cluster.Consistency = gocql.LocalQuorum
	cluster.Timeout = 10 * time.Second
	cluster.ConnectTimeout = 10 * time.Second
	cluster.NumConns = 4
	cluster.SocketKeepalive = 30 * time.Second
	cluster.MaxPreparedStmts = 1000
	cluster.MaxRoutingKeyInfo = 1000
	cluster.PageSize = 1000
	cluster.RetryPolicy = &gocql.ExponentialBackoffRetryPolicy{
		Min:        time.Second,
		Max:        10 * time.Second,
		NumRetries: 3,
	}

	if !cfg.IsDevelopment() {
		cluster.SslOpts = &gocql.SslOptions{
			CaPath:                 "/root/certs/ca.pem",
			CertPath:               "/root/certs/server.pem",
			KeyPath:                "/root/certs/server.key",
			EnableHostVerification: true,
		}
	}

	if scyllaConfig.Username != "" && scyllaConfig.Password != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: scyllaConfig.Username,
			Password: scyllaConfig.Password,
		}
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create scylla session: %w", err)
	}

	client := &ScyllaClient{
		Session: session,
		config:  &scyllaConfig,
	}

	if err := client.prepareStatements(); err != nil {
		session.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	util.Info("ScyllaDB client initialized with prepared statements",
		zap.Strings("nodes", scyllaConfig.Nodes),
		zap.String("keyspace", scyllaConfig.Keyspace))

	return client, nil
}

func (s *ScyllaClient) prepareStatements() error {
	s.prepareMutex.Lock()
	defer s.prepareMutex.Unlock()

	if s.isPrepared {
		return nil
	}

	prepared := &PreparedStatements{}

	prepared.CreateEmailToCompany = s.Session.Query(`
        INSERT INTO email_to_company (email, company_bucket, company_id, created_at)
        VALUES (?, ?, ?, ?) IF NOT EXISTS`)

	prepared.GetCompanyByID = s.Session.Query(`
        SELECT company_bucket, company_id, email, password_hash, company_name,
            industry, size, website, description, headquarters, founded_year,
            phone, address, city, state, country,
            contact_person_name, contact_person_title, contact_person_email, contact_person_phone,
            is_verified, is_blocked, profile_completed, rejection_reason,
            reviewed_at, reviewed_by, created_at, updated_at
        FROM companies WHERE company_bucket = ? AND company_id = ?`)

	prepared.GetCompanyByEmail = s.Session.Query(`
        SELECT email, company_bucket, company_id FROM email_to_company WHERE email = ?`)

	prepared.UpdateCompanyDetails = s.Session.Query(`
        UPDATE companies SET industry = ?, size = ?, website = ?, description = ?,
            headquarters = ?, founded_year = ?, updated_at = ?
        WHERE company_bucket = ? AND company_id = ?`)

	prepared.UpdateContactInfo = s.Session.Query(`
        UPDATE companies SET contact_person_name = ?, contact_person_title = ?,
            contact_person_email = ?, contact_person_phone = ?, phone = ?,
            address = ?, city = ?, state = ?, country = ?,
            profile_completed = ?, updated_at = ?
        WHERE company_bucket = ? AND company_id = ?`)

	prepared.SetBlocked = s.Session.Query(`
        UPDATE companies SET is_blocked = ?, updated_at = ?
        WHERE company_bucket = ? AND company_id = ?`)

	prepared.SetReview = s.Session.Query(`
        UPDATE companies SET is_verified = ?, rejection_reason = ?,
            reviewed_at = ?, reviewed_by = ?, updated_at = ?
        WHERE company_bucket = ? AND company_id = ?`)

	prepared.GetProfileStep = s.Session.Query(`
        SELECT company_id, basic_info_completed, company_details_completed,
            contact_info_completed, current_step, created_at, updated_at
        FROM profile_steps WHERE company_id = ?`)

	prepared.UpdateProfileStep = s.Session.Query(`
        UPDATE profile_steps SET basic_info_completed = ?, company_details_completed = ?,
            contact_info_completed = ?, current_step = ?, updated_at = ?
        WHERE company_id = ?`)

	s.Prepared = prepared
	s.isPrepared = true

	util.Info("Selected ScyllaDB prepared statements created successfully")
	return nil
}

func (s *ScyllaClient) Close() {
	if s.Session != nil {
		s.Session.Close()
		util.Info("ScyllaDB client closed")
	}
}

func (s *ScyllaClient) Query(stmt string, values ...interface{}) *gocql.Query {
	return s.Session.Query(stmt, values...)
}

func (s *ScyllaClient) Batch(typ gocql.BatchType) *gocql.Batch {
	return s.Session.NewBatch(typ)
}

func (s *ScyllaClient) ExecuteBatch(batch *gocql.Batch) error {
	return s.Session.ExecuteBatch(batch)
}

func (s *ScyllaClient) HealthCheck() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var clusterName string
	err := s.Session.Query(`SELECT cluster_name FROM system.local`).WithContext(ctx).Scan(&clusterName)
	if err != nil {
		return fmt.Errorf("scylla health check failed: %w", err)
	}

	util.Debug("ScyllaDB health check passed", zap.String("cluster_name", clusterName))
	return nil
}

func (s *ScyllaClient) ExecuteWithRetry(query *gocql.Query, maxRetries int) error {
	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		if err := query.Exec(); err != nil {
			lastErr = err
			if i < maxRetries {
				time.Sleep(time.Duration(i+1) * 100 * time.Millisecond)
				continue
			}
		} else {
			return nil
		}
	}
	return lastErr
}

func (s *ScyllaClient) ScanWithRetry(query *gocql.Query, dest ...interface{}) error {
	var lastErr error
	for i := 0; i < 3; i++ {
		if err := query.Scan(dest...); err != nil {
			lastErr = err
			if i < 2 {
				time.Sleep(time.Duration(i+1) * 100 * time.Millisecond)
				continue
			}
		} else {
			return nil
		}
	}
	return lastErr
}
