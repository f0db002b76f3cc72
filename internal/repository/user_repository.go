package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/campus-adp/timetable-api/internal/models"
)

const userColumns = "id, email, password_hash, full_name, role, program_id, level_id, group_id, active, created_at, updated_at"

// UserRepository provides read access to people and cohort membership.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByEmail loads a user by email.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE email = $1", userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID loads a user by id.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE id = $1", userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindRecipientTx returns the (id, role) pair for a person inside the
// caller's transaction.
func (r *UserRepository) FindRecipientTx(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Recipient, error) {
	var recipient models.Recipient
	if err := sqlx.GetContext(ctx, exec, &recipient, "SELECT id, role FROM users WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &recipient, nil
}

// ListStudentsBySelector returns active students matching a cohort
// selector: program match always required, level and group only when the
// selector carries them.
func (r *UserRepository) ListStudentsBySelector(ctx context.Context, exec sqlx.ExtContext, selector models.CohortSelector) ([]models.Recipient, error) {
	conditions := []string{"role = $1", "active = TRUE", "program_id = $2"}
	args := []interface{}{models.RoleStudent, selector.ProgramID}

	if selector.LevelID != nil {
		conditions = append(conditions, fmt.Sprintf("level_id = $%d", len(args)+1))
		args = append(args, *selector.LevelID)
	}
	if selector.GroupID != nil {
		conditions = append(conditions, fmt.Sprintf("group_id = $%d", len(args)+1))
		args = append(args, *selector.GroupID)
	}

	query := "SELECT id, role FROM users WHERE " + strings.Join(conditions, " AND ")
	var recipients []models.Recipient
	if err := sqlx.SelectContext(ctx, exec, &recipients, query, args...); err != nil {
		return nil, fmt.Errorf("list students by selector: %w", err)
	}
	return recipients, nil
}
