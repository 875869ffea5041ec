package db

import (
	"context"
	"testing"

	e "github.com/quizhive/quizhive/internal/quizhive/errors"
	"github.com/quizhive/quizhive/internal/quizhive/models"
	"github.com/quizhive/quizhive/internal/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// SetupTestDB initializes an in-memory SQLite database for testing.
func SetupTestDB(t *testing.T) *Repository {
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err, "failed to open test database")

	require.NoError(t, Migrate(gdb), "failed to migrate test database")

	return New(gdb)
}

// TestCreateUser tests the creation of a user record.
func TestCreateUser(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()

	user := &models.User{Email: "alice@example.com", Username: "alice"}
	err := repo.CreateUser(ctx, user)
	assert.NoError(t, err, "CreateUser should not return an error")
	assert.NotZero(t, user.ID, "CreateUser should assign an ID")

	retrieved, err := repo.GetUser(ctx, user.ID)
	assert.NoError(t, err, "GetUser should retrieve the created user")
	assert.Equal(t, user.Email, retrieved.Email, "User email should match")
}

// TestCreateUserDuplicateEmail verifies the unique email constraint.
func TestCreateUserDuplicateEmail(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()

	require.NoError(t, repo.CreateUser(ctx, &models.User{Email: "dup@example.com"}))

	err := repo.CreateUser(ctx, &models.User{Email: "dup@example.com"})
	assert.ErrorIs(t, err, e.ErrConflict, "second CreateUser with the same email should conflict")
}

// TestGetUserNotFound verifies error handling when the user does not exist.
func TestGetUserNotFound(t *testing.T) {
	repo := SetupTestDB(t)

	_, err := repo.GetUser(context.Background(), 9999)
	assert.ErrorIs(t, err, e.ErrNotFound, "GetUser should return ErrNotFound for non-existent user")
}

// TestGetUserByEmail ensures lookup by email works.
func TestGetUserByEmail(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()

	user := &models.User{Email: "bob@example.com"}
	require.NoError(t, repo.CreateUser(ctx, user))

	found, err := repo.GetUserByEmail(ctx, "bob@example.com")
	assert.NoError(t, err, "GetUserByEmail should succeed")
	assert.Equal(t, user.ID, found.ID, "User ID should match")

	_, err = repo.GetUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, e.ErrNotFound, "unknown email should return ErrNotFound")
}

// TestUpdateUser checks partial profile updates.
func TestUpdateUser(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()

	user := &models.User{Email: "carol@example.com", FirstName: "Carol", City: "Riga"}
	require.NoError(t, repo.CreateUser(ctx, user))

	err := repo.UpdateUser(ctx, user.ID, &UserUpdate{FirstName: utils.Ptr("Caroline")})
	assert.NoError(t, err, "UpdateUser should not return an error")

	updated, err := repo.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Caroline", updated.FirstName, "First name should be updated")
	assert.Equal(t, "Riga", updated.City, "Untouched fields should keep their values")
}

// TestDeleteUser verifies deletion and subsequent lookup failure.
func TestDeleteUser(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()

	user := &models.User{Email: "gone@example.com"}
	require.NoError(t, repo.CreateUser(ctx, user))

	assert.NoError(t, repo.DeleteUser(ctx, user.ID), "DeleteUser should succeed")

	_, err := repo.GetUser(ctx, user.ID)
	assert.ErrorIs(t, err, e.ErrNotFound, "deleted user should not be retrievable")

	assert.ErrorIs(t, repo.DeleteUser(ctx, user.ID), e.ErrNotFound, "second delete should return ErrNotFound")
}

// TestListUsers verifies pagination over the user list.
func TestListUsers(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()

	for _, email := range []string{"a@x.com", "b@x.com", "c@x.com"} {
		require.NoError(t, repo.CreateUser(ctx, &models.User{Email: email}))
	}

	users, total, err := repo.ListUsers(ctx, models.Page{Skip: 1, Limit: 2})
	assert.NoError(t, err, "ListUsers should succeed")
	assert.EqualValues(t, 3, total, "total should count all users")
	assert.Len(t, users, 2, "page should honor skip and limit")
}

// TestCreateCompany tests the creation of a company record.
func TestCreateCompany(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()

	company := &models.Company{Name: "Test Company"}
	err := repo.CreateCompany(ctx, company)
	assert.NoError(t, err, "CreateCompany should not return an error")

	retrieved, err := repo.GetCompany(ctx, company.ID)
	assert.NoError(t, err, "GetCompany should retrieve the created company")
	assert.Equal(t, company.Name, retrieved.Name, "Company name should match")
}

// TestCreateCompanyDuplicateName verifies the unique name constraint.
func TestCreateCompanyDuplicateName(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()

	require.NoError(t, repo.CreateCompany(ctx, &models.Company{Name: "Acme"}))

	err := repo.CreateCompany(ctx, &models.Company{Name: "Acme"})
	assert.ErrorIs(t, err, e.ErrConflict, "duplicate company name should conflict")
}

// TestUpdateCompany checks if updating a company's name works.
func TestUpdateCompany(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()

	company := &models.Company{Name: "Old Name"}
	require.NoError(t, repo.CreateCompany(ctx, company))

	err := repo.UpdateCompany(ctx, company.ID, &CompanyUpdate{Name: utils.Ptr("New Name")})
	assert.NoError(t, err, "UpdateCompany should not return an error")

	updated, err := repo.GetCompany(ctx, company.ID)
	assert.NoError(t, err, "GetCompany should succeed")
	assert.Equal(t, "New Name", updated.Name, "Company name should be updated")
}

// TestSetCompanyStatus flips visibility on and off.
func TestSetCompanyStatus(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()

	company := &models.Company{Name: "Toggler", Status: true}
	require.NoError(t, repo.CreateCompany(ctx, company))

	require.NoError(t, repo.SetCompanyStatus(ctx, company.ID, false))

	updated, err := repo.GetCompany(ctx, company.ID)
	require.NoError(t, err)
	assert.False(t, updated.Status, "status should be hidden")
}

// TestDeleteCompanyCascades verifies member rows go with the company.
func TestDeleteCompanyCascades(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()

	user := &models.User{Email: "owner@example.com"}
	require.NoError(t, repo.CreateUser(ctx, user))
	company := &models.Company{Name: "Doomed"}
	require.NoError(t, repo.CreateCompany(ctx, company))
	require.NoError(t, repo.CreateEmployee(ctx, &models.Employee{
		UserID:    user.ID,
		CompanyID: company.ID,
		Role:      models.RoleOwner,
	}))

	require.NoError(t, repo.DeleteCompany(ctx, company.ID))

	_, err := repo.GetCompany(ctx, company.ID)
	assert.ErrorIs(t, err, e.ErrNotFound, "deleted company should not be retrievable")

	_, err = repo.GetEmployeeByPair(ctx, user.ID, company.ID)
	assert.ErrorIs(t, err, e.ErrNotFound, "membership rows should be removed with the company")
}

// TestWithTransactionRollback ensures a failing closure rolls everything back.
func TestWithTransactionRollback(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()

	err := repo.WithTransaction(ctx, func(tx *Repository) error {
		if err := tx.CreateCompany(ctx, &models.Company{Name: "Phantom"}); err != nil {
			return err
		}
		return assert.AnError
	})
	require.Error(t, err, "transaction should surface the closure error")

	_, total, err := repo.ListCompanies(ctx, models.Page{Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 0, total, "rolled back company should not persist")
}
