// Package membership implements the invitation/request ledger: the state
// machine carrying a user from Candidate to Member, Admin promotion, and
// removal. Two independent tracks share one row: company-initiated
// invitations and user-initiated requests.
package membership

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/quizhive/quizhive/internal/pkg/utils"
	"github.com/quizhive/quizhive/internal/quizhive/access"
	"github.com/quizhive/quizhive/internal/quizhive/db"
	e "github.com/quizhive/quizhive/internal/quizhive/errors"
	"github.com/quizhive/quizhive/internal/quizhive/models"
	"go.uber.org/zap"
)

// Repository defines the storage interface for ledger rows.
type Repository interface {
	GetUser(ctx context.Context, id uint) (*models.User, error)
	GetCompany(ctx context.Context, id uint) (*models.Company, error)
	CreateEmployee(ctx context.Context, employee *models.Employee) error
	GetEmployee(ctx context.Context, id uint) (*models.Employee, error)
	GetEmployeeByPair(ctx context.Context, userID, companyID uint) (*models.Employee, error)
	TransitionEmployee(ctx context.Context, id uint, tr *db.EmployeeTransition) error
	DeleteEmployee(ctx context.Context, id uint) error
	ListEmployees(ctx context.Context, filter *db.EmployeeFilter, page models.Page) ([]models.Employee, int64, error)
}

type Service struct {
	repo   Repository
	gate   *access.Gate
	logger *zap.Logger
}

func NewService(repo Repository, gate *access.Gate, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		gate:   gate,
		logger: logger.Named("membership"),
	}
}

// SendInvitation opens the company-initiated track: a Candidate row with a
// pending invitation. Any existing row for the pair, whatever its state, is
// a Conflict.
func (s *Service) SendInvitation(ctx context.Context, callerID, companyID, userID uint) (*models.Employee, error) {
	if err := s.gate.RequireOwner(ctx, callerID, companyID); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetUser(ctx, userID); err != nil {
		return nil, fmt.Errorf("invited user: %w", err)
	}
	if _, err := s.repo.GetEmployeeByPair(ctx, userID, companyID); err == nil {
		return nil, fmt.Errorf("%w: an invitation or request already exists for this user", e.ErrConflict)
	} else if !errors.Is(err, e.ErrNotFound) {
		return nil, err
	}

	employee := &models.Employee{
		UserID:           userID,
		CompanyID:        companyID,
		Role:             models.RoleCandidate,
		InvitationStatus: utils.Ptr(models.StatusPending),
		LastTransitionAt: time.Now().UTC(),
	}
	if err := s.repo.CreateEmployee(ctx, employee); err != nil {
		if errors.Is(err, e.ErrConflict) {
			return nil, fmt.Errorf("%w: an invitation or request already exists for this user", e.ErrConflict)
		}
		return nil, fmt.Errorf("failed to create invitation: %w", err)
	}
	s.logger.Info("invitation sent",
		zap.Uint("company_id", companyID),
		zap.Uint("user_id", userID),
	)
	return employee, nil
}

// SendRequest opens the user-initiated track for the caller.
func (s *Service) SendRequest(ctx context.Context, callerID, companyID uint) (*models.Employee, error) {
	if _, err := s.repo.GetCompany(ctx, companyID); err != nil {
		return nil, fmt.Errorf("company: %w", err)
	}
	if _, err := s.repo.GetEmployeeByPair(ctx, callerID, companyID); err == nil {
		return nil, fmt.Errorf("%w: an invitation or request already exists for this user", e.ErrConflict)
	} else if !errors.Is(err, e.ErrNotFound) {
		return nil, err
	}

	employee := &models.Employee{
		UserID:           callerID,
		CompanyID:        companyID,
		Role:             models.RoleCandidate,
		RequestStatus:    utils.Ptr(models.StatusPending),
		LastTransitionAt: time.Now().UTC(),
	}
	if err := s.repo.CreateEmployee(ctx, employee); err != nil {
		if errors.Is(err, e.ErrConflict) {
			return nil, fmt.Errorf("%w: an invitation or request already exists for this user", e.ErrConflict)
		}
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	s.logger.Info("membership request sent",
		zap.Uint("company_id", companyID),
		zap.Uint("user_id", callerID),
	)
	return employee, nil
}

// CancelInvitation deletes a still-pending invitation row. Only the company
// owner may cancel its own invitations.
func (s *Service) CancelInvitation(ctx context.Context, callerID, employeeID uint) error {
	employee, err := s.repo.GetEmployee(ctx, employeeID)
	if err != nil {
		return err
	}
	if err := s.gate.RequireOwner(ctx, callerID, employee.CompanyID); err != nil {
		return err
	}
	if employee.InvitationStatus == nil || *employee.InvitationStatus != models.StatusPending {
		return fmt.Errorf("%w: invitation is not pending", e.ErrConflict)
	}
	return s.repo.DeleteEmployee(ctx, employeeID)
}

// CancelRequest deletes a still-pending request row. Only the requesting
// user may cancel it.
func (s *Service) CancelRequest(ctx context.Context, callerID, employeeID uint) error {
	employee, err := s.repo.GetEmployee(ctx, employeeID)
	if err != nil {
		return err
	}
	if employee.UserID != callerID {
		return fmt.Errorf("%w: not your request", e.ErrForbidden)
	}
	if employee.RequestStatus == nil || *employee.RequestStatus != models.StatusPending {
		return fmt.Errorf("%w: request is not pending", e.ErrConflict)
	}
	return s.repo.DeleteEmployee(ctx, employeeID)
}

// AcceptInvitation is self-gated: only the invited user may accept, and only
// while the invitation track is set. Success promotes the role to Member.
func (s *Service) AcceptInvitation(ctx context.Context, callerID, employeeID uint) error {
	employee, err := s.repo.GetEmployee(ctx, employeeID)
	if err != nil {
		return err
	}
	if employee.UserID != callerID {
		return fmt.Errorf("%w: not your invitation", e.ErrForbidden)
	}
	if employee.InvitationStatus == nil {
		return fmt.Errorf("%w: no invitation on this row", e.ErrConflict)
	}
	return s.repo.TransitionEmployee(ctx, employeeID, &db.EmployeeTransition{
		Role:             utils.Ptr(models.RoleMember),
		InvitationStatus: utils.Ptr(models.StatusAccept),
	})
}

// RejectInvitation keeps the row as a historical record: the status flips to
// reject, the role stays untouched.
func (s *Service) RejectInvitation(ctx context.Context, callerID, employeeID uint) error {
	employee, err := s.repo.GetEmployee(ctx, employeeID)
	if err != nil {
		return err
	}
	if employee.UserID != callerID {
		return fmt.Errorf("%w: not your invitation", e.ErrForbidden)
	}
	if employee.InvitationStatus == nil {
		return fmt.Errorf("%w: no invitation on this row", e.ErrConflict)
	}
	return s.repo.TransitionEmployee(ctx, employeeID, &db.EmployeeTransition{
		InvitationStatus: utils.Ptr(models.StatusReject),
	})
}

// AcceptRequest is gated to company admins/owners. A target that is already
// an active member is a Conflict.
func (s *Service) AcceptRequest(ctx context.Context, callerID, employeeID uint) error {
	employee, err := s.repo.GetEmployee(ctx, employeeID)
	if err != nil {
		return err
	}
	if err := s.gate.RequireAdminOrOwner(ctx, callerID, employee.CompanyID); err != nil {
		return err
	}
	if employee.Role.Active() {
		return fmt.Errorf("%w: user is already an active member", e.ErrConflict)
	}
	if employee.RequestStatus == nil {
		return fmt.Errorf("%w: no request on this row", e.ErrConflict)
	}
	return s.repo.TransitionEmployee(ctx, employeeID, &db.EmployeeTransition{
		Role:          utils.Ptr(models.RoleMember),
		RequestStatus: utils.Ptr(models.StatusAccept),
	})
}

// RejectRequest is owner-gated; the row is retained with a rejected status.
func (s *Service) RejectRequest(ctx context.Context, callerID, employeeID uint) error {
	employee, err := s.repo.GetEmployee(ctx, employeeID)
	if err != nil {
		return err
	}
	if err := s.gate.RequireOwner(ctx, callerID, employee.CompanyID); err != nil {
		return err
	}
	if employee.RequestStatus == nil {
		return fmt.Errorf("%w: no request on this row", e.ErrConflict)
	}
	return s.repo.TransitionEmployee(ctx, employeeID, &db.EmployeeTransition{
		RequestStatus: utils.Ptr(models.StatusReject),
	})
}

// RemoveMember deletes the target's row. Owners cannot remove themselves
// through this path; a repeat call reports NotFound since the row is gone.
func (s *Service) RemoveMember(ctx context.Context, callerID, companyID, userID uint) error {
	if err := s.gate.RequireOwner(ctx, callerID, companyID); err != nil {
		return err
	}
	if userID == callerID {
		return fmt.Errorf("%w: cannot remove yourself", e.ErrInvalidInput)
	}
	employee, err := s.repo.GetEmployeeByPair(ctx, userID, companyID)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteEmployee(ctx, employee.ID); err != nil {
		return err
	}
	s.logger.Info("member removed",
		zap.Uint("company_id", companyID),
		zap.Uint("user_id", userID),
	)
	return nil
}

// LeaveCompany deletes the caller's own row. Only plain Members may leave;
// the Owner row must never disappear this way.
func (s *Service) LeaveCompany(ctx context.Context, callerID, companyID uint) error {
	employee, err := s.repo.GetEmployeeByPair(ctx, callerID, companyID)
	if err != nil {
		return err
	}
	if employee.Role != models.RoleMember {
		return fmt.Errorf("%w: only members can leave", e.ErrForbidden)
	}
	return s.repo.DeleteEmployee(ctx, employee.ID)
}

// PromoteToAdmin flips an active member's role to Admin. Candidates cannot
// be promoted.
func (s *Service) PromoteToAdmin(ctx context.Context, callerID, companyID, userID uint) error {
	return s.setRole(ctx, callerID, companyID, userID, models.RoleAdmin)
}

// DemoteToMember flips an Admin back to Member.
func (s *Service) DemoteToMember(ctx context.Context, callerID, companyID, userID uint) error {
	return s.setRole(ctx, callerID, companyID, userID, models.RoleMember)
}

func (s *Service) setRole(ctx context.Context, callerID, companyID, userID uint, role models.Role) error {
	if err := s.gate.RequireOwner(ctx, callerID, companyID); err != nil {
		return err
	}
	employee, err := s.repo.GetEmployeeByPair(ctx, userID, companyID)
	if err != nil {
		return err
	}
	if employee.Role == models.RoleCandidate {
		return fmt.Errorf("%w: candidate rows cannot change role", e.ErrConflict)
	}
	return s.repo.TransitionEmployee(ctx, employee.ID, &db.EmployeeTransition{
		Role: utils.Ptr(role),
	})
}

// UserInvitations lists the caller's invitation-track rows by status.
func (s *Service) UserInvitations(ctx context.Context, userID uint, status models.TrackStatus, page models.Page) ([]models.Employee, models.PageInfo, error) {
	return s.list(ctx, &db.EmployeeFilter{
		UserID:           &userID,
		InvitationStatus: &status,
	}, page)
}

// UserRequests lists the caller's request-track rows by status.
func (s *Service) UserRequests(ctx context.Context, userID uint, status models.TrackStatus, page models.Page) ([]models.Employee, models.PageInfo, error) {
	return s.list(ctx, &db.EmployeeFilter{
		UserID:        &userID,
		RequestStatus: &status,
	}, page)
}

// CompanyInvitations lists the company's invitation-track rows. Admin/owner
// only.
func (s *Service) CompanyInvitations(ctx context.Context, callerID, companyID uint, status models.TrackStatus, page models.Page) ([]models.Employee, models.PageInfo, error) {
	if err := s.gate.RequireAdminOrOwner(ctx, callerID, companyID); err != nil {
		return nil, models.PageInfo{}, err
	}
	return s.list(ctx, &db.EmployeeFilter{
		CompanyID:        &companyID,
		InvitationStatus: &status,
	}, page)
}

// CompanyRequests lists the company's request-track rows. Admin/owner only.
func (s *Service) CompanyRequests(ctx context.Context, callerID, companyID uint, status models.TrackStatus, page models.Page) ([]models.Employee, models.PageInfo, error) {
	if err := s.gate.RequireAdminOrOwner(ctx, callerID, companyID); err != nil {
		return nil, models.PageInfo{}, err
	}
	return s.list(ctx, &db.EmployeeFilter{
		CompanyID:     &companyID,
		RequestStatus: &status,
	}, page)
}

// CompanyMembers lists the active members of a company.
func (s *Service) CompanyMembers(ctx context.Context, companyID uint, page models.Page) ([]models.Employee, models.PageInfo, error) {
	return s.list(ctx, &db.EmployeeFilter{
		CompanyID:  &companyID,
		ActiveOnly: true,
	}, page)
}

// CompanyAdmins lists the company's admins.
func (s *Service) CompanyAdmins(ctx context.Context, companyID uint, page models.Page) ([]models.Employee, models.PageInfo, error) {
	return s.list(ctx, &db.EmployeeFilter{
		CompanyID: &companyID,
		Role:      utils.Ptr(models.RoleAdmin),
	}, page)
}

// CompanyCandidates lists rows still in the Candidate role. Admin/owner
// only.
func (s *Service) CompanyCandidates(ctx context.Context, callerID, companyID uint, page models.Page) ([]models.Employee, models.PageInfo, error) {
	if err := s.gate.RequireAdminOrOwner(ctx, callerID, companyID); err != nil {
		return nil, models.PageInfo{}, err
	}
	return s.list(ctx, &db.EmployeeFilter{
		CompanyID: &companyID,
		Role:      utils.Ptr(models.RoleCandidate),
	}, page)
}

func (s *Service) list(ctx context.Context, filter *db.EmployeeFilter, page models.Page) ([]models.Employee, models.PageInfo, error) {
	employees, total, err := s.repo.ListEmployees(ctx, filter, page)
	if err != nil {
		return nil, models.PageInfo{}, err
	}
	return employees, models.NewPageInfo(total, page.Limit), nil
}
