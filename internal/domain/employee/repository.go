package employee

import "context"

// EmployeeRepository reads employee master data. Soft-deleted employees are never returned.
type EmployeeRepository interface {
	GetByID(ctx context.Context, id string) (Employee, error)
	// ListActive returns active employees, optionally restricted to one branch, ordered by employee code.
	ListActive(ctx context.Context, branch *string) ([]Employee, error)
}
