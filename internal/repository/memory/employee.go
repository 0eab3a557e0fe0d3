package memory

import (
	"context"
	"slices"
	"sort"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/employee"
)

type EmployeeRepository struct {
	store *Store
}

func NewEmployeeRepository(store *Store) *EmployeeRepository {
	return &EmployeeRepository{store: store}
}

// Save inserts or replaces an employee. The HR module owns this data; payroll only seeds it in tests and local runs.
func (r *EmployeeRepository) Save(ctx context.Context, emp employee.Employee) error {
	emp.WorkDays = slices.Clone(emp.WorkDays)
	return r.store.write(ctx, func(t *tables) error {
		t.employees[emp.ID] = emp
		return nil
	})
}

func (r *EmployeeRepository) GetByID(ctx context.Context, id string) (employee.Employee, error) {
	var emp employee.Employee
	err := r.store.read(ctx, func(t *tables) error {
		e, ok := t.employees[id]
		if !ok || !e.IsActive {
			return employee.ErrEmployeeNotFound
		}
		emp = e
		return nil
	})
	return emp, err
}

func (r *EmployeeRepository) ListActive(ctx context.Context, branch *string) ([]employee.Employee, error) {
	var result []employee.Employee
	err := r.store.read(ctx, func(t *tables) error {
		for _, e := range t.employees {
			if !e.IsActive || e.EmploymentStatus != employee.EmploymentStatusActive {
				continue
			}
			if branch != nil && e.Branch != *branch {
				continue
			}
			result = append(result, e)
		}
		return nil
	})
	sort.Slice(result, func(i, j int) bool {
		if result[i].EmployeeCode != result[j].EmployeeCode {
			return result[i].EmployeeCode < result[j].EmployeeCode
		}
		return result[i].ID < result[j].ID
	})
	return result, err
}
