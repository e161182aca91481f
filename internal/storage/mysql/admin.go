package mysql

import (
	"context"
	"encoding/json"
	"fmt"

	"valuation-backend/internal/storage"
)

const organizationColumns = `id, short_name, name, reference_initials, reference_counter, is_active, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanOrganization(row scanner) (*storage.Organization, error) {
	org := &storage.Organization{}
	err := row.Scan(&org.ID, &org.ShortName, &org.Name, &org.ReferenceInitials, &org.ReferenceCounter, &org.IsActive, &org.CreatedAt)
	if err != nil {
		return nil, err
	}
	return org, nil
}

func (s *Storage) GetOrganization(ctx context.Context, shortName string) (*storage.Organization, error) {
	const op = "storage.mysql.GetOrganization"

	row := s.db.QueryRowContext(ctx, `SELECT `+organizationColumns+` FROM organizations WHERE short_name = ?`, shortName)
	org, err := scanOrganization(row)
	if err != nil {
		return nil, fmt.Errorf("%s: organization %s: %w", op, shortName, notFound(err))
	}
	return org, nil
}

func (s *Storage) ListOrganizations(ctx context.Context) ([]*storage.Organization, error) {
	const op = "storage.mysql.ListOrganizations"

	rows, err := s.db.QueryContext(ctx, `SELECT `+organizationColumns+` FROM organizations ORDER BY short_name`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	orgs := []*storage.Organization{}
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		orgs = append(orgs, org)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return orgs, nil
}

func (s *Storage) CreateOrganization(ctx context.Context, org *storage.Organization) error {
	const op = "storage.mysql.CreateOrganization"

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO organizations (short_name, name, reference_initials, is_active) VALUES (?, ?, ?, ?)`,
		org.ShortName, org.Name, org.ReferenceInitials, org.IsActive,
	)
	if err != nil {
		if isDuplicate(err) {
			return fmt.Errorf("%s: %s: %w", op, org.ShortName, storage.ErrDuplicate)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	org.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// UpdateOrganization changes the name, reference initials and status. The
// counter is only ever changed by IncrementReferenceCounter.
func (s *Storage) UpdateOrganization(ctx context.Context, org *storage.Organization) error {
	const op = "storage.mysql.UpdateOrganization"

	res, err := s.db.ExecContext(ctx,
		`UPDATE organizations SET name = ?, reference_initials = ?, is_active = ? WHERE short_name = ?`,
		org.Name, org.ReferenceInitials, org.IsActive, org.ShortName,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := s.GetOrganization(ctx, org.ShortName); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	return nil
}

// IncrementReferenceCounter bumps the counter in one statement and reads the
// new value back through LAST_INSERT_ID, which is scoped to the connection,
// so concurrent callers never see the same value.
func (s *Storage) IncrementReferenceCounter(ctx context.Context, shortName string) (int64, error) {
	const op = "storage.mysql.IncrementReferenceCounter"

	res, err := s.db.ExecContext(ctx,
		`UPDATE organizations SET reference_counter = LAST_INSERT_ID(reference_counter + 1) WHERE short_name = ?`,
		shortName,
	)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		return 0, fmt.Errorf("%s: organization %s: %w", op, shortName, storage.ErrNotFound)
	}

	counter, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return counter, nil
}

const userColumns = `id, org_short_name, email, password_hash, name, roles, permissions, is_active, created_at`

func scanUser(row scanner) (*storage.User, error) {
	u := &storage.User{}
	var rolesJSON, permissionsJSON string
	err := row.Scan(&u.ID, &u.OrgShortName, &u.Email, &u.PasswordHash, &u.Name, &rolesJSON, &permissionsJSON, &u.IsActive, &u.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(rolesJSON), &u.Roles); err != nil {
		return nil, fmt.Errorf("roles: %w", err)
	}
	if err := json.Unmarshal([]byte(permissionsJSON), &u.Permissions); err != nil {
		return nil, fmt.Errorf("permissions: %w", err)
	}
	return u, nil
}

func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*storage.User, error) {
	const op = "storage.mysql.GetUserByEmail"

	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFound(err))
	}
	return u, nil
}

func (s *Storage) GetUser(ctx context.Context, id int64) (*storage.User, error) {
	const op = "storage.mysql.GetUser"

	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("%s: user %d: %w", op, id, notFound(err))
	}
	return u, nil
}

func (s *Storage) ListUsers(ctx context.Context, orgShortName string) ([]*storage.User, error) {
	const op = "storage.mysql.ListUsers"

	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users WHERE org_short_name = ? ORDER BY email`, orgShortName)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	users := []*storage.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		users = append(users, u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return users, nil
}

func (s *Storage) CreateUser(ctx context.Context, u *storage.User) error {
	const op = "storage.mysql.CreateUser"

	roles, err := json.Marshal(nonNil(u.Roles))
	if err != nil {
		return fmt.Errorf("%s: roles: %w", op, err)
	}
	permissions, err := json.Marshal(nonNil(u.Permissions))
	if err != nil {
		return fmt.Errorf("%s: permissions: %w", op, err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (org_short_name, email, password_hash, name, roles, permissions, is_active) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.OrgShortName, u.Email, u.PasswordHash, u.Name, string(roles), string(permissions), u.IsActive,
	)
	if err != nil {
		if isDuplicate(err) {
			return fmt.Errorf("%s: %s: %w", op, u.Email, storage.ErrDuplicate)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	u.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// DeactivateUser disables the account. Users are never deleted.
func (s *Storage) DeactivateUser(ctx context.Context, id int64) error {
	const op = "storage.mysql.DeactivateUser"

	res, err := s.db.ExecContext(ctx, `UPDATE users SET is_active = FALSE WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := s.GetUser(ctx, id); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
