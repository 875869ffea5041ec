package db

import (
	"context"
	"errors"

	e "github.com/quizhive/quizhive/internal/quizhive/errors"
	"github.com/quizhive/quizhive/internal/quizhive/models"
	"gorm.io/gorm"
)

func (r *Repository) CreateCompany(ctx context.Context, company *models.Company) error {
	result := r.db.WithContext(ctx).Create(company)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return e.ErrConflict
		}
		return result.Error
	}
	return nil
}

func (r *Repository) GetCompany(ctx context.Context, id uint) (*models.Company, error) {
	var company models.Company
	result := r.db.WithContext(ctx).First(&company, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, result.Error
	}
	return &company, nil
}

// CompanyUpdate holds the fields the owner may change.
type CompanyUpdate struct {
	Name  *string
	Email *string
	Phone *string
}

func (r *Repository) UpdateCompany(ctx context.Context, id uint, update *CompanyUpdate) error {
	fields := map[string]interface{}{}
	if update.Name != nil {
		fields["name"] = *update.Name
	}
	if update.Email != nil {
		fields["email"] = *update.Email
	}
	if update.Phone != nil {
		fields["phone"] = *update.Phone
	}
	if len(fields) == 0 {
		return nil
	}

	result := r.db.WithContext(ctx).Model(&models.Company{}).
		Where("id = ?", id).
		Updates(fields)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return e.ErrConflict
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

func (r *Repository) SetCompanyStatus(ctx context.Context, id uint, status bool) error {
	result := r.db.WithContext(ctx).Model(&models.Company{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

// DeleteCompany removes the company and all of its employee rows.
func (r *Repository) DeleteCompany(ctx context.Context, id uint) error {
	return r.WithTransaction(ctx, func(repo *Repository) error {
		if err := repo.db.Delete(&models.Employee{}, "company_id = ?", id).Error; err != nil {
			return err
		}
		result := repo.db.Delete(&models.Company{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return e.ErrNotFound
		}
		return nil
	})
}

func (r *Repository) ListCompanies(ctx context.Context, page models.Page) ([]models.Company, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Company{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var companies []models.Company
	result := r.db.WithContext(ctx).
		Order("id").
		Offset(page.Skip).
		Limit(page.Limit).
		Find(&companies)
	if result.Error != nil {
		return nil, 0, result.Error
	}
	return companies, total, nil
}
