package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"banco/internal/bizerror"
	"banco/internal/model"
	"banco/internal/repository"

	"github.com/google/uuid"
)

// --- DTOs ---

type CreateRoleRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type UpdateRoleRequest struct {
	Description string `json:"description"`
}

type CreatePermissionRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description"`
}

type GrantRequest struct {
	PermissionID string `json:"permission_id" binding:"required,uuid"`
}

// ChangeListener is told which role's permissions changed; an empty name means any role
type ChangeListener func(role model.RoleName)

// --- Interface ---

type CatalogService interface {
	CreateRole(ctx context.Context, name model.RoleName, description string) (*model.Role, error)
	EnsureRole(ctx context.Context, name model.RoleName, defaultDescription string) (*model.Role, bool, error)
	UpdateRoleDescription(ctx context.Context, id uuid.UUID, description string) (*model.Role, error)
	DeleteRole(ctx context.Context, id uuid.UUID) error
	ListRoles(ctx context.Context) ([]repository.RoleSummary, error)

	CreatePermission(ctx context.Context, name, description string) (*model.Permission, error)
	EnsurePermission(ctx context.Context, name, description string) (*model.Permission, bool, error)
	DeletePermission(ctx context.Context, id uuid.UUID) error
	ListPermissions(ctx context.Context, search string) ([]repository.PermissionSummary, error)

	Grant(ctx context.Context, roleID, permissionID uuid.UUID) error
	Revoke(ctx context.Context, roleID, permissionID uuid.UUID) error
	ListGrants(ctx context.Context, roleName model.RoleName) ([]model.RolePermission, error)
}

type catalogService struct {
	tm       repository.TransactionManager
	roles    repository.RoleRepository
	perms    repository.PermissionRepository
	audit    AuditService
	onChange ChangeListener
}

func NewCatalogService(
	tm repository.TransactionManager,
	roles repository.RoleRepository,
	perms repository.PermissionRepository,
	audit AuditService,
	onChange ChangeListener,
) CatalogService {
	if onChange == nil {
		onChange = func(model.RoleName) {}
	}
	return &catalogService{tm: tm, roles: roles, perms: perms, audit: audit, onChange: onChange}
}

// --- Roles ---

func (s *catalogService) CreateRole(ctx context.Context, name model.RoleName, description string) (*model.Role, error) {
	if !name.IsValid() {
		return nil, bizerror.ErrInvalidRole
	}
	exists, err := s.roles.ExistsByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to check role name: %w", err)
	}
	if exists {
		return nil, bizerror.ErrDuplicateName
	}

	role := &model.Role{Name: name, Description: description}
	if err := s.roles.Create(ctx, role); err != nil {
		return nil, err
	}
	return role, nil
}

// EnsureRole returns the existing row or creates it; safe to call from every provisioning path
func (s *catalogService) EnsureRole(ctx context.Context, name model.RoleName, defaultDescription string) (*model.Role, bool, error) {
	if !name.IsValid() {
		return nil, false, bizerror.ErrInvalidRole
	}
	return s.roles.FindOrCreate(ctx, name, defaultDescription)
}

func (s *catalogService) UpdateRoleDescription(ctx context.Context, id uuid.UUID, description string) (*model.Role, error) {
	if err := s.roles.UpdateDescription(ctx, id, description); err != nil {
		return nil, err
	}
	return s.roles.FindByID(ctx, id)
}

// DeleteRole refuses while any system user holds the role; otherwise grants and role go together
func (s *catalogService) DeleteRole(ctx context.Context, id uuid.UUID) error {
	var deleted *model.Role
	err := s.tm.RunInTx(ctx, func(txCtx context.Context) error {
		role, err := s.roles.FindByID(txCtx, id)
		if err != nil {
			return err
		}
		users, err := s.roles.CountUsers(txCtx, id)
		if err != nil {
			return fmt.Errorf("failed to count role users: %w", err)
		}
		if users > 0 {
			return bizerror.ErrProtectedReference
		}
		if err := s.perms.DeleteGrantsOfRole(txCtx, id); err != nil {
			return fmt.Errorf("failed to delete role grants: %w", err)
		}
		if err := s.roles.Delete(txCtx, id); err != nil {
			return err
		}
		deleted = role
		return s.audit.Record(txCtx, AuditEntry{
			Action:     model.ActionDeleteRole,
			EntityID:   role.ID.String(),
			EntityName: string(role.Name),
		})
	})
	if err != nil {
		return err
	}
	repository.AfterCommit(ctx, func() { s.onChange(deleted.Name) })
	return nil
}

func (s *catalogService) ListRoles(ctx context.Context) ([]repository.RoleSummary, error) {
	roles, err := s.roles.ListSummaries(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch roles: %w", err)
	}
	return roles, nil
}

// --- Permissions ---

func (s *catalogService) CreatePermission(ctx context.Context, name, description string) (*model.Permission, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, bizerror.BadParam("permission name is required")
	}
	_, err := s.perms.FindByName(ctx, name)
	if err == nil {
		return nil, bizerror.ErrDuplicateName
	}
	if !errors.Is(err, bizerror.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up permission: %w", err)
	}

	perm := &model.Permission{Name: name, Description: description}
	if err := s.perms.Create(ctx, perm); err != nil {
		return nil, err
	}
	return perm, nil
}

func (s *catalogService) EnsurePermission(ctx context.Context, name, description string) (*model.Permission, bool, error) {
	return s.perms.FindOrCreate(ctx, name, description)
}

// DeletePermission removes the permission with every grant of it
func (s *catalogService) DeletePermission(ctx context.Context, id uuid.UUID) error {
	err := s.tm.RunInTx(ctx, func(txCtx context.Context) error {
		perm, err := s.perms.FindByID(txCtx, id)
		if err != nil {
			return err
		}
		if err := s.perms.DeleteGrantsOfPermission(txCtx, id); err != nil {
			return fmt.Errorf("failed to delete permission grants: %w", err)
		}
		if err := s.perms.Delete(txCtx, id); err != nil {
			return err
		}
		return s.audit.Record(txCtx, AuditEntry{
			Action:     model.ActionDeletePermission,
			EntityID:   perm.ID.String(),
			EntityName: perm.Name,
		})
	})
	if err != nil {
		return err
	}
	repository.AfterCommit(ctx, func() { s.onChange("") })
	return nil
}

func (s *catalogService) ListPermissions(ctx context.Context, search string) ([]repository.PermissionSummary, error) {
	perms, err := s.perms.ListSummaries(ctx, strings.TrimSpace(search))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch permissions: %w", err)
	}
	return perms, nil
}

// --- Grants ---

// Grant is idempotent: granting an existing pair changes nothing
func (s *catalogService) Grant(ctx context.Context, roleID, permissionID uuid.UUID) error {
	var role *model.Role
	err := s.tm.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		role, err = s.roles.FindByID(txCtx, roleID)
		if err != nil {
			return err
		}
		perm, err := s.perms.FindByID(txCtx, permissionID)
		if err != nil {
			return err
		}
		inserted, err := s.perms.Grant(txCtx, roleID, permissionID)
		if err != nil || !inserted {
			return err
		}
		return s.audit.Record(txCtx, AuditEntry{
			Action:     model.ActionGrantPermission,
			EntityID:   role.ID.String(),
			EntityName: string(role.Name),
			Details:    perm.Name,
		})
	})
	if err != nil {
		return err
	}
	repository.AfterCommit(ctx, func() { s.onChange(role.Name) })
	return nil
}

// Revoke removes the pair if present; an absent pair is not an error
func (s *catalogService) Revoke(ctx context.Context, roleID, permissionID uuid.UUID) error {
	var role *model.Role
	err := s.tm.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		role, err = s.roles.FindByID(txCtx, roleID)
		if err != nil {
			return err
		}
		removed, err := s.perms.Revoke(txCtx, roleID, permissionID)
		if err != nil || !removed {
			return err
		}
		return s.audit.Record(txCtx, AuditEntry{
			Action:     model.ActionRevokePermission,
			EntityID:   role.ID.String(),
			EntityName: string(role.Name),
			Details:    permissionID.String(),
		})
	})
	if err != nil {
		return err
	}
	repository.AfterCommit(ctx, func() { s.onChange(role.Name) })
	return nil
}

func (s *catalogService) ListGrants(ctx context.Context, roleName model.RoleName) ([]model.RolePermission, error) {
	if roleName != "" && !roleName.IsValid() {
		return nil, bizerror.ErrInvalidRole
	}
	return s.perms.ListGrants(ctx, roleName)
}
