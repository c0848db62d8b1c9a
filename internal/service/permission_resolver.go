package service

import (
	"context"

	"banco/internal/model"
	"banco/internal/repository"
)

// PermissionResolver answers capability questions through the user's single role
type PermissionResolver interface {
	HasPermission(ctx context.Context, user *model.SystemUser, name string) (bool, error)
	GetPermissions(ctx context.Context, user *model.SystemUser) ([]model.Permission, error)
	PermissionNamesForRole(ctx context.Context, roleName model.RoleName) ([]string, error)
}

type permissionResolver struct {
	perms repository.PermissionRepository
}

func NewPermissionResolver(perms repository.PermissionRepository) PermissionResolver {
	return &permissionResolver{perms: perms}
}

func (r *permissionResolver) HasPermission(ctx context.Context, user *model.SystemUser, name string) (bool, error) {
	if user == nil || name == "" {
		return false, nil
	}
	return r.perms.RoleHasPermission(ctx, user.RoleID, name)
}

func (r *permissionResolver) GetPermissions(ctx context.Context, user *model.SystemUser) ([]model.Permission, error) {
	if user == nil {
		return nil, nil
	}
	return r.perms.PermissionsOfRole(ctx, user.RoleID)
}

func (r *permissionResolver) PermissionNamesForRole(ctx context.Context, roleName model.RoleName) ([]string, error) {
	return r.perms.PermissionNamesOfRole(ctx, roleName)
}
