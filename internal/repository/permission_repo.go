package repository

import (
	"context"

	"banco/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PermissionSummary is a permission with the number of roles holding it
type PermissionSummary struct {
	model.Permission
	RoleCount int64 `json:"role_count"`
}

type PermissionRepository interface {
	Create(ctx context.Context, perm *model.Permission) error
	FindOrCreate(ctx context.Context, name, description string) (*model.Permission, bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Permission, error)
	FindByName(ctx context.Context, name string) (*model.Permission, error)
	ListSummaries(ctx context.Context, search string) ([]PermissionSummary, error)

	Grant(ctx context.Context, roleID, permissionID uuid.UUID) (bool, error)
	Revoke(ctx context.Context, roleID, permissionID uuid.UUID) (bool, error)
	DeleteGrantsOfRole(ctx context.Context, roleID uuid.UUID) error
	DeleteGrantsOfPermission(ctx context.Context, permissionID uuid.UUID) error
	ListGrants(ctx context.Context, roleName model.RoleName) ([]model.RolePermission, error)
	CountGrants(ctx context.Context, roleID, permissionID uuid.UUID) (int64, error)

	RoleHasPermission(ctx context.Context, roleID uuid.UUID, name string) (bool, error)
	PermissionsOfRole(ctx context.Context, roleID uuid.UUID) ([]model.Permission, error)
	PermissionNamesOfRole(ctx context.Context, roleName model.RoleName) ([]string, error)
}

type permissionRepository struct {
	db *gorm.DB
}

func NewPermissionRepository(db *gorm.DB) PermissionRepository {
	return &permissionRepository{db: db}
}

func (r *permissionRepository) Create(ctx context.Context, perm *model.Permission) error {
	return translate(GetDB(ctx, r.db).Create(perm).Error)
}

func (r *permissionRepository) FindOrCreate(ctx context.Context, name, description string) (*model.Permission, bool, error) {
	var perm model.Permission
	err := GetDB(ctx, r.db).Where("name = ?", name).Limit(1).Find(&perm).Error
	if err != nil {
		return nil, false, err
	}
	if perm.ID != uuid.Nil {
		return &perm, false, nil
	}
	perm = model.Permission{Name: name, Description: description}
	if err := r.Create(ctx, &perm); err != nil {
		return nil, false, err
	}
	return &perm, true, nil
}

func (r *permissionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return translate(GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Permission{}).Error)
}

func (r *permissionRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Permission, error) {
	var perm model.Permission
	if err := GetDB(ctx, r.db).First(&perm, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &perm, nil
}

func (r *permissionRepository) FindByName(ctx context.Context, name string) (*model.Permission, error) {
	var perm model.Permission
	if err := GetDB(ctx, r.db).Where("name = ?", name).First(&perm).Error; err != nil {
		return nil, translate(err)
	}
	return &perm, nil
}

func (r *permissionRepository) ListSummaries(ctx context.Context, search string) ([]PermissionSummary, error) {
	var perms []PermissionSummary
	query := GetDB(ctx, r.db).Model(&model.Permission{}).
		Select(`permisos.*,
			(SELECT COUNT(*) FROM roles_permisos rp WHERE rp.permission_id = permisos.id) AS role_count`)
	if search != "" {
		pattern := likePattern(search)
		query = query.Where(`(LOWER(permisos.name) LIKE LOWER(?) ESCAPE '\' OR LOWER(permisos.description) LIKE LOWER(?) ESCAPE '\')`, pattern, pattern)
	}
	if err := query.Order("permisos.name asc").Scan(&perms).Error; err != nil {
		return nil, err
	}
	return perms, nil
}

// Grant inserts the pair unless it already exists; the returned flag is false for an existing pair
func (r *permissionRepository) Grant(ctx context.Context, roleID, permissionID uuid.UUID) (bool, error) {
	grant := model.RolePermission{RoleID: roleID, PermissionID: permissionID}
	res := GetDB(ctx, r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "role_id"}, {Name: "permission_id"}},
			DoNothing: true,
		}).
		Create(&grant)
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *permissionRepository) Revoke(ctx context.Context, roleID, permissionID uuid.UUID) (bool, error) {
	res := GetDB(ctx, r.db).
		Where("role_id = ? AND permission_id = ?", roleID, permissionID).
		Delete(&model.RolePermission{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *permissionRepository) DeleteGrantsOfRole(ctx context.Context, roleID uuid.UUID) error {
	return GetDB(ctx, r.db).Where("role_id = ?", roleID).Delete(&model.RolePermission{}).Error
}

func (r *permissionRepository) DeleteGrantsOfPermission(ctx context.Context, permissionID uuid.UUID) error {
	return GetDB(ctx, r.db).Where("permission_id = ?", permissionID).Delete(&model.RolePermission{}).Error
}

// ListGrants returns association rows with role and permission loaded, optionally for one role kind
func (r *permissionRepository) ListGrants(ctx context.Context, roleName model.RoleName) ([]model.RolePermission, error) {
	var grants []model.RolePermission
	query := GetDB(ctx, r.db).Model(&model.RolePermission{}).
		Joins("Role").
		Joins("Permission")
	if roleName != "" {
		query = query.Where(`"Role".name = ?`, string(roleName))
	}
	if err := query.Order(`"Role".name asc, "Permission".name asc`).Find(&grants).Error; err != nil {
		return nil, err
	}
	return grants, nil
}

func (r *permissionRepository) CountGrants(ctx context.Context, roleID, permissionID uuid.UUID) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.RolePermission{}).
		Where("role_id = ? AND permission_id = ?", roleID, permissionID).
		Count(&count).Error
	return count, err
}

func (r *permissionRepository) RoleHasPermission(ctx context.Context, roleID uuid.UUID, name string) (bool, error) {
	var found int64
	err := GetDB(ctx, r.db).Model(&model.RolePermission{}).
		Joins("JOIN permisos p ON p.id = roles_permisos.permission_id").
		Where("roles_permisos.role_id = ? AND p.name = ?", roleID, name).
		Count(&found).Error
	if err != nil {
		return false, err
	}
	return found > 0, nil
}

func (r *permissionRepository) PermissionsOfRole(ctx context.Context, roleID uuid.UUID) ([]model.Permission, error) {
	var perms []model.Permission
	err := GetDB(ctx, r.db).
		Joins("JOIN roles_permisos rp ON rp.permission_id = permisos.id").
		Where("rp.role_id = ?", roleID).
		Order("permisos.name asc").
		Find(&perms).Error
	if err != nil {
		return nil, err
	}
	return perms, nil
}

func (r *permissionRepository) PermissionNamesOfRole(ctx context.Context, roleName model.RoleName) ([]string, error) {
	var names []string
	err := GetDB(ctx, r.db).Model(&model.Permission{}).
		Joins("JOIN roles_permisos rp ON rp.permission_id = permisos.id").
		Joins("JOIN roles ro ON ro.id = rp.role_id").
		Where("ro.name = ?", string(roleName)).
		Order("permisos.name asc").
		Pluck("permisos.name", &names).Error
	if err != nil {
		return nil, err
	}
	return names, nil
}
