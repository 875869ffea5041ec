// Package access implements the role checks consumed by every mutating
// operation. Checks are pure reads over the membership ledger and never
// write anything.
package access

import (
	"context"
	"errors"
	"fmt"

	e "github.com/quizhive/quizhive/internal/quizhive/errors"
	"github.com/quizhive/quizhive/internal/quizhive/models"
)

// Ledger is the slice of the repository the gate reads.
type Ledger interface {
	GetEmployeeByPair(ctx context.Context, userID, companyID uint) (*models.Employee, error)
}

type Gate struct {
	ledger Ledger
}

func NewGate(ledger Ledger) *Gate {
	return &Gate{ledger: ledger}
}

// RequireOwner fails with ErrForbidden unless the user holds the company's
// Owner row. A missing row is Forbidden, not NotFound: the company may well
// exist, the caller just has no standing in it.
func (g *Gate) RequireOwner(ctx context.Context, userID, companyID uint) error {
	employee, err := g.ledger.GetEmployeeByPair(ctx, userID, companyID)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return fmt.Errorf("%w: not the company owner", e.ErrForbidden)
		}
		return err
	}
	if employee.Role != models.RoleOwner {
		return fmt.Errorf("%w: not the company owner", e.ErrForbidden)
	}
	return nil
}

// RequireAdminOrOwner fails with ErrForbidden unless the user's role is
// Admin or Owner.
func (g *Gate) RequireAdminOrOwner(ctx context.Context, userID, companyID uint) error {
	employee, err := g.ledger.GetEmployeeByPair(ctx, userID, companyID)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return fmt.Errorf("%w: admin or owner required", e.ErrForbidden)
		}
		return err
	}
	if employee.Role != models.RoleOwner && employee.Role != models.RoleAdmin {
		return fmt.Errorf("%w: admin or owner required", e.ErrForbidden)
	}
	return nil
}

// RoleOf reports the user's role in the company, RoleGuest when no row
// exists. Used for display; never fails on absence.
func (g *Gate) RoleOf(ctx context.Context, userID, companyID uint) (models.Role, error) {
	employee, err := g.ledger.GetEmployeeByPair(ctx, userID, companyID)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return models.RoleGuest, nil
		}
		return "", err
	}
	return employee.Role, nil
}
