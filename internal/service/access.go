package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/noah-isme/hostel-booking-api/internal/models"
	appErrors "github.com/noah-isme/hostel-booking-api/pkg/errors"
)

type hostelReader interface {
	FindByID(ctx context.Context, id string) (*models.Hostel, error)
}

// HostelAccess answers custodian ownership questions against the hostel catalog.
type HostelAccess struct {
	hostels hostelReader
}

// NewHostelAccess constructs the access checker.
func NewHostelAccess(hostels hostelReader) *HostelAccess {
	return &HostelAccess{hostels: hostels}
}

// RequireCustodian returns the hostel when custodianID owns it.
func (a *HostelAccess) RequireCustodian(ctx context.Context, hostelID, custodianID string) (*models.Hostel, error) {
	hostel, err := a.hostels.FindByID(ctx, hostelID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "hostel not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load hostel")
	}
	if hostel.CustodianID != custodianID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "hostel is managed by another custodian")
	}
	return hostel, nil
}

// Authorize admits admins and the owning custodian.
func (a *HostelAccess) Authorize(ctx context.Context, hostelID string, actor *models.JWTClaims) (*models.Hostel, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role == models.RoleAdmin {
		hostel, err := a.hostels.FindByID(ctx, hostelID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "hostel not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load hostel")
		}
		return hostel, nil
	}
	if actor.Role != models.RoleCustodian {
		return nil, appErrors.ErrForbidden
	}
	return a.RequireCustodian(ctx, hostelID, actor.UserID)
}
