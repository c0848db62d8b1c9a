package repository

import (
	"context"
	"errors"

	"banco/internal/bizerror"
	"banco/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RoleSummary is a role with the counters shown by the admin list
type RoleSummary struct {
	model.Role
	UserCount       int64 `json:"user_count"`
	PermissionCount int64 `json:"permission_count"`
}

type RoleRepository interface {
	Create(ctx context.Context, role *model.Role) error
	FindOrCreate(ctx context.Context, name model.RoleName, description string) (*model.Role, bool, error)
	UpdateDescription(ctx context.Context, id uuid.UUID, description string) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Role, error)
	FindByName(ctx context.Context, name model.RoleName) (*model.Role, error)
	ExistsByName(ctx context.Context, name model.RoleName) (bool, error)
	CountUsers(ctx context.Context, id uuid.UUID) (int64, error)
	ListSummaries(ctx context.Context) ([]RoleSummary, error)
}

type roleRepository struct {
	db *gorm.DB
}

func NewRoleRepository(db *gorm.DB) RoleRepository {
	return &roleRepository{db: db}
}

func (r *roleRepository) Create(ctx context.Context, role *model.Role) error {
	return translate(GetDB(ctx, r.db).Create(role).Error)
}

// FindOrCreate returns the role with that name, creating it with the description when absent.
// A concurrent insert of the same name is resolved by reading the winner's row.
func (r *roleRepository) FindOrCreate(ctx context.Context, name model.RoleName, description string) (*model.Role, bool, error) {
	role, err := r.FindByName(ctx, name)
	if err == nil {
		return role, false, nil
	}
	if !errors.Is(err, bizerror.ErrNotFound) {
		return nil, false, err
	}

	role = &model.Role{Name: name, Description: description}
	if err := r.Create(ctx, role); err != nil {
		if errors.Is(err, bizerror.ErrDuplicateName) {
			existing, findErr := r.FindByName(ctx, name)
			return existing, false, findErr
		}
		return nil, false, err
	}
	return role, true, nil
}

func (r *roleRepository) UpdateDescription(ctx context.Context, id uuid.UUID, description string) error {
	res := GetDB(ctx, r.db).Model(&model.Role{}).Where("id = ?", id).Update("description", description)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound)
	}
	return nil
}

func (r *roleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return translate(GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Role{}).Error)
}

func (r *roleRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Role, error) {
	var role model.Role
	if err := GetDB(ctx, r.db).First(&role, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &role, nil
}

func (r *roleRepository) FindByName(ctx context.Context, name model.RoleName) (*model.Role, error) {
	var role model.Role
	if err := GetDB(ctx, r.db).Where("name = ?", string(name)).First(&role).Error; err != nil {
		return nil, translate(err)
	}
	return &role, nil
}

func (r *roleRepository) ExistsByName(ctx context.Context, name model.RoleName) (bool, error) {
	var count int64
	if err := GetDB(ctx, r.db).Model(&model.Role{}).Where("name = ?", string(name)).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *roleRepository) CountUsers(ctx context.Context, id uuid.UUID) (int64, error) {
	var count int64
	if err := GetDB(ctx, r.db).Model(&model.SystemUser{}).Where("role_id = ?", id).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *roleRepository) ListSummaries(ctx context.Context) ([]RoleSummary, error) {
	var roles []RoleSummary
	err := GetDB(ctx, r.db).Model(&model.Role{}).
		Select(`roles.*,
			(SELECT COUNT(*) FROM usuarios_sistema u WHERE u.role_id = roles.id) AS user_count,
			(SELECT COUNT(*) FROM roles_permisos rp WHERE rp.role_id = roles.id) AS permission_count`).
		Order("roles.name asc").
		Scan(&roles).Error
	if err != nil {
		return nil, err
	}
	return roles, nil
}
