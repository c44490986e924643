package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/hostel-booking-api/internal/models"
)

const maxUserAgentLength = 255

var errAuditActionRequired = errors.New("audit action and resource are required")

// AuditRepository appends rows to the audit trail. Rows are never updated.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository constructs the repository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create persists an audit log entry, filling in id and timestamp.
func (r *AuditRepository) Create(ctx context.Context, log *models.AuditLog) error {
	if strings.TrimSpace(log.Action) == "" || strings.TrimSpace(log.Resource) == "" {
		return errAuditActionRequired
	}
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	if len(log.UserAgent) > maxUserAgentLength {
		log.UserAgent = log.UserAgent[:maxUserAgentLength]
	}

	const query = `INSERT INTO audit_logs (id, user_id, action, resource, resource_id, old_values, new_values, ip_address, user_agent, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	if _, err := r.db.ExecContext(ctx, query, log.ID, log.UserID, log.Action, log.Resource, log.ResourceID,
		jsonOrNull(log.OldValues), jsonOrNull(log.NewValues), log.IPAddress, log.UserAgent, log.CreatedAt); err != nil {
		return fmt.Errorf("create audit log %s: %w", log.Action, err)
	}
	return nil
}

// jsonOrNull keeps empty payloads out of jsonb columns.
func jsonOrNull(raw []byte) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return raw
}
