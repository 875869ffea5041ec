package db

import (
	"context"
	"errors"
	"time"

	e "github.com/quizhive/quizhive/internal/quizhive/errors"
	"github.com/quizhive/quizhive/internal/quizhive/models"
	"gorm.io/gorm"
)

// CreateEmployee inserts a membership row. The composite unique index on
// (user_id, company_id) turns a concurrent duplicate into ErrConflict, so
// racing invite/request calls yield exactly one success.
func (r *Repository) CreateEmployee(ctx context.Context, employee *models.Employee) error {
	result := r.db.WithContext(ctx).Create(employee)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return e.ErrConflict
		}
		return result.Error
	}
	return nil
}

func (r *Repository) GetEmployee(ctx context.Context, id uint) (*models.Employee, error) {
	var employee models.Employee
	result := r.db.WithContext(ctx).First(&employee, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, result.Error
	}
	return &employee, nil
}

func (r *Repository) GetEmployeeByPair(ctx context.Context, userID, companyID uint) (*models.Employee, error) {
	var employee models.Employee
	result := r.db.WithContext(ctx).
		First(&employee, "user_id = ? AND company_id = ?", userID, companyID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, result.Error
	}
	return &employee, nil
}

// EmployeeTransition mutates the role and/or one status track of a row.
// LastTransitionAt is always overwritten; use ClearInvitation/ClearRequest
// to null a track out.
type EmployeeTransition struct {
	Role             *models.Role
	InvitationStatus *models.TrackStatus
	RequestStatus    *models.TrackStatus
	ClearInvitation  bool
	ClearRequest     bool
}

func (r *Repository) TransitionEmployee(ctx context.Context, id uint, tr *EmployeeTransition) error {
	fields := map[string]interface{}{
		"last_transition_at": time.Now().UTC(),
	}
	if tr.Role != nil {
		fields["role"] = *tr.Role
	}
	if tr.InvitationStatus != nil {
		fields["invitation_status"] = *tr.InvitationStatus
	}
	if tr.ClearInvitation {
		fields["invitation_status"] = nil
	}
	if tr.RequestStatus != nil {
		fields["request_status"] = *tr.RequestStatus
	}
	if tr.ClearRequest {
		fields["request_status"] = nil
	}

	result := r.db.WithContext(ctx).Model(&models.Employee{}).
		Where("id = ?", id).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteEmployee(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Employee{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

// EmployeeFilter narrows a ledger listing. Nil fields are not applied.
type EmployeeFilter struct {
	UserID           *uint
	CompanyID        *uint
	Role             *models.Role
	NotRole          *models.Role
	InvitationStatus *models.TrackStatus
	RequestStatus    *models.TrackStatus
	ActiveOnly       bool
}

func (f *EmployeeFilter) apply(q *gorm.DB) *gorm.DB {
	if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}
	if f.CompanyID != nil {
		q = q.Where("company_id = ?", *f.CompanyID)
	}
	if f.Role != nil {
		q = q.Where("role = ?", *f.Role)
	}
	if f.NotRole != nil {
		q = q.Where("role <> ?", *f.NotRole)
	}
	if f.InvitationStatus != nil {
		q = q.Where("invitation_status = ?", *f.InvitationStatus)
	}
	if f.RequestStatus != nil {
		q = q.Where("request_status = ?", *f.RequestStatus)
	}
	if f.ActiveOnly {
		q = q.Where("role IN ?", []models.Role{models.RoleOwner, models.RoleAdmin, models.RoleMember})
	}
	return q
}

// ListEmployees returns a page of rows with User and Company preloaded for
// display, plus the total over the unpaginated matching set.
func (r *Repository) ListEmployees(ctx context.Context, filter *EmployeeFilter, page models.Page) ([]models.Employee, int64, error) {
	var total int64
	countQ := filter.apply(r.db.WithContext(ctx).Model(&models.Employee{}))
	if err := countQ.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var employees []models.Employee
	q := filter.apply(r.db.WithContext(ctx)).
		Preload("User").
		Preload("Company").
		Order("id").
		Offset(page.Skip).
		Limit(page.Limit)
	if err := q.Find(&employees).Error; err != nil {
		return nil, 0, err
	}
	return employees, total, nil
}

// ListCompanyMemberIDs returns the user ids of every employee of the company
// whose role is not Candidate. Used by notification fan-out.
func (r *Repository) ListCompanyMemberIDs(ctx context.Context, companyID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Employee{}).
		Where("company_id = ? AND role <> ?", companyID, models.RoleCandidate).
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
