package repository

import (
	"context"
	"time"

	"banco/internal/model"
	"banco/pkg/pagination"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserFilter narrows the system user list; zero values mean no filter
type UserFilter struct {
	Role   model.RoleName
	Status model.UserStatus
	Search string
}

// SystemUserRepository defines data access for SystemUser entities
type SystemUserRepository interface {
	Create(ctx context.Context, user *model.SystemUser) error
	UpdateRole(ctx context.Context, user *model.SystemUser) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.SystemUser, error)
	GetByUsername(ctx context.Context, username string) (*model.SystemUser, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	Count(ctx context.Context) (int64, error)
	List(ctx context.Context, filter UserFilter, page pagination.Params) ([]model.SystemUser, int64, error)

	IncrementFailedAttempts(ctx context.Context, id uuid.UUID) (bool, error)
	ResetFailedAttempts(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	UpdateColumns(ctx context.Context, id uuid.UUID, columns map[string]interface{}) error
	ClearClient(ctx context.Context, clientID uuid.UUID) (int64, error)
}

type systemUserRepository struct {
	db *gorm.DB
}

// NewSystemUserRepository returns a new instance of SystemUserRepository
func NewSystemUserRepository(db *gorm.DB) SystemUserRepository {
	return &systemUserRepository{db: db}
}

func (r *systemUserRepository) Create(ctx context.Context, user *model.SystemUser) error {
	return translate(GetDB(ctx, r.db).Omit(clause.Associations).Create(user).Error)
}

// UpdateRole writes the role and the access flags the BeforeSave hook derives from it. Status and
// the failure counter are left to their own guarded updates.
func (r *systemUserRepository) UpdateRole(ctx context.Context, user *model.SystemUser) error {
	res := GetDB(ctx, r.db).Model(user).
		Omit(clause.Associations).
		Select("role_id", "is_staff_access", "is_superuser_access").
		Updates(user)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound)
	}
	return nil
}

func (r *systemUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.SystemUser, error) {
	var user model.SystemUser
	err := GetDB(ctx, r.db).Preload("Role").Preload("Client").First(&user, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// GetByUsername is an exact match lookup joined with the role
func (r *systemUserRepository) GetByUsername(ctx context.Context, username string) (*model.SystemUser, error) {
	var user model.SystemUser
	err := GetDB(ctx, r.db).Joins("Role").Where("usuarios_sistema.username = ?", username).First(&user).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *systemUserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var count int64
	if err := GetDB(ctx, r.db).Model(&model.SystemUser{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *systemUserRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.SystemUser{}).Count(&count).Error
	return count, err
}

func (r *systemUserRepository) List(ctx context.Context, filter UserFilter, page pagination.Params) ([]model.SystemUser, int64, error) {
	var users []model.SystemUser
	var total int64

	query := GetDB(ctx, r.db).Model(&model.SystemUser{}).
		Joins("LEFT JOIN roles ON roles.id = usuarios_sistema.role_id").
		Joins("LEFT JOIN clientes ON clientes.id = usuarios_sistema.client_id")
	if filter.Role != "" {
		query = query.Where("roles.name = ?", string(filter.Role))
	}
	if filter.Status != "" {
		query = query.Where("usuarios_sistema.status = ?", string(filter.Status))
	}
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		query = query.Where(`(LOWER(usuarios_sistema.username) LIKE LOWER(?) ESCAPE '\'
			OR LOWER(clientes.nombres) LIKE LOWER(?) ESCAPE '\'
			OR LOWER(clientes.apellidos) LIKE LOWER(?) ESCAPE '\')`, pattern, pattern, pattern)
	}

	// reusable across the count and the page query
	query = query.Session(&gorm.Session{})

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Select("usuarios_sistema.*").
		Preload("Role").Preload("Client").
		Order("usuarios_sistema.created_at desc").
		Scopes(page.Scope).
		Find(&users).Error
	if err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

// IncrementFailedAttempts bumps the failure counter of a non-blocked user and blocks the account
// when the counter reaches model.LockoutThreshold. It reports true only for the call whose update
// blocked the account, so concurrent failures observe exactly one lockout.
func (r *systemUserRepository) IncrementFailedAttempts(ctx context.Context, id uuid.UUID) (bool, error) {
	db := GetDB(ctx, r.db)
	res := db.Model(&model.SystemUser{}).
		Where("id = ? AND status <> ? AND failed_attempts + 1 < ?", id, string(model.StatusBlocked), model.LockoutThreshold).
		UpdateColumn("failed_attempts", gorm.Expr("failed_attempts + 1"))
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return false, nil
	}

	res = db.Model(&model.SystemUser{}).
		Where("id = ? AND status <> ?", id, string(model.StatusBlocked)).
		UpdateColumns(map[string]interface{}{
			"failed_attempts": gorm.Expr("failed_attempts + 1"),
			"status":          string(model.StatusBlocked),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ResetFailedAttempts clears the counter and stamps the access of a non-blocked user. It reports
// false when the account is blocked (or gone) by the time the update runs; nothing is written then.
func (r *systemUserRepository) ResetFailedAttempts(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	res := GetDB(ctx, r.db).Model(&model.SystemUser{}).
		Where("id = ? AND status <> ?", id, string(model.StatusBlocked)).
		UpdateColumns(map[string]interface{}{
			"failed_attempts": 0,
			"last_access_at":  at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// UpdateColumns writes the given columns without running hooks; never pass role_id here
func (r *systemUserRepository) UpdateColumns(ctx context.Context, id uuid.UUID, columns map[string]interface{}) error {
	res := GetDB(ctx, r.db).Model(&model.SystemUser{}).Where("id = ?", id).UpdateColumns(columns)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound)
	}
	return nil
}

// ClearClient detaches every user from a client record that is about to disappear
func (r *systemUserRepository) ClearClient(ctx context.Context, clientID uuid.UUID) (int64, error) {
	res := GetDB(ctx, r.db).Model(&model.SystemUser{}).
		Where("client_id = ?", clientID).
		UpdateColumn("client_id", nil)
	return res.RowsAffected, res.Error
}
