package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/quizhive/quizhive/internal/quizhive/access"
	"github.com/quizhive/quizhive/internal/quizhive/db"
	e "github.com/quizhive/quizhive/internal/quizhive/errors"
	"github.com/quizhive/quizhive/internal/quizhive/models"
	"go.uber.org/zap"
)

// CompanyRepository defines the storage interface for companies. The
// transaction hook ties company creation to its Owner employee row.
type CompanyRepository interface {
	GetCompany(ctx context.Context, id uint) (*models.Company, error)
	UpdateCompany(ctx context.Context, id uint, update *db.CompanyUpdate) error
	SetCompanyStatus(ctx context.Context, id uint, status bool) error
	DeleteCompany(ctx context.Context, id uint) error
	ListCompanies(ctx context.Context, page models.Page) ([]models.Company, int64, error)
	WithTransaction(ctx context.Context, fn func(repo *db.Repository) error) error
}

type CompanyService struct {
	repo   CompanyRepository
	gate   *access.Gate
	logger *zap.Logger
}

func NewCompanyService(repo CompanyRepository, gate *access.Gate, logger *zap.Logger) *CompanyService {
	return &CompanyService{
		repo:   repo,
		gate:   gate,
		logger: logger.Named("companies"),
	}
}

// CompanyInput is the creation payload.
type CompanyInput struct {
	Name  string
	Email string
	Phone string
}

// CreateCompany inserts the company and its Owner employee row in one
// transaction, so a company can never exist without exactly one Owner.
func (s *CompanyService) CreateCompany(ctx context.Context, callerID uint, input *CompanyInput) (*models.Company, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("%w: name is required", e.ErrInvalidInput)
	}

	company := &models.Company{
		Name:   input.Name,
		Email:  input.Email,
		Phone:  input.Phone,
		Status: true,
	}
	err := s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		if err := tx.CreateCompany(ctx, company); err != nil {
			return err
		}
		return tx.CreateEmployee(ctx, &models.Employee{
			UserID:           callerID,
			CompanyID:        company.ID,
			Role:             models.RoleOwner,
			LastTransitionAt: time.Now().UTC(),
		})
	})
	if err != nil {
		if errors.Is(err, e.ErrConflict) {
			return nil, fmt.Errorf("%w: company with this name already exists", e.ErrConflict)
		}
		return nil, fmt.Errorf("failed to create company: %w", err)
	}

	s.logger.Info("company created",
		zap.Uint("company_id", company.ID),
		zap.Uint("owner_id", callerID),
	)
	return company, nil
}

// GetCompany fetches one company.
func (s *CompanyService) GetCompany(ctx context.Context, id uint) (*models.Company, error) {
	return s.repo.GetCompany(ctx, id)
}

// ListCompanies pages through all companies.
func (s *CompanyService) ListCompanies(ctx context.Context, page models.Page) ([]models.Company, models.PageInfo, error) {
	companies, total, err := s.repo.ListCompanies(ctx, page)
	if err != nil {
		return nil, models.PageInfo{}, err
	}
	return companies, models.NewPageInfo(total, page.Limit), nil
}

// UpdateCompany changes contact info. Owner only.
func (s *CompanyService) UpdateCompany(ctx context.Context, callerID, companyID uint, update *db.CompanyUpdate) (*models.Company, error) {
	if err := s.gate.RequireOwner(ctx, callerID, companyID); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateCompany(ctx, companyID, update); err != nil {
		if errors.Is(err, e.ErrConflict) {
			return nil, fmt.Errorf("%w: company with this name already exists", e.ErrConflict)
		}
		return nil, err
	}
	return s.repo.GetCompany(ctx, companyID)
}

// ToggleStatus flips the active flag. Owner only.
func (s *CompanyService) ToggleStatus(ctx context.Context, callerID, companyID uint) (*models.Company, error) {
	if err := s.gate.RequireOwner(ctx, callerID, companyID); err != nil {
		return nil, err
	}
	company, err := s.repo.GetCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetCompanyStatus(ctx, companyID, !company.Status); err != nil {
		return nil, err
	}
	return s.repo.GetCompany(ctx, companyID)
}

// DeleteCompany removes the company and cascades its employee rows. Owner
// only.
func (s *CompanyService) DeleteCompany(ctx context.Context, callerID, companyID uint) error {
	if err := s.gate.RequireOwner(ctx, callerID, companyID); err != nil {
		return err
	}
	if err := s.repo.DeleteCompany(ctx, companyID); err != nil {
		return err
	}
	s.logger.Info("company deleted", zap.Uint("company_id", companyID))
	return nil
}
