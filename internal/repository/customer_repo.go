package repository

import (
	"context"
	"time"

	"banco/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CustomerRepository covers the email-login identities and their profiles
type CustomerRepository interface {
	Create(ctx context.Context, customer *model.Customer) error
	UpdateContact(ctx context.Context, customer *model.Customer) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Customer, error)
	GetByLogin(ctx context.Context, login string) (*model.Customer, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	TouchLastAccess(ctx context.Context, id uuid.UUID, at time.Time) error

	CreateProfile(ctx context.Context, profile *model.UserProfile) error
	SaveProfile(ctx context.Context, profile *model.UserProfile) error
	GetProfile(ctx context.Context, customerID uuid.UUID) (*model.UserProfile, error)
	CountProfiles(ctx context.Context, customerID uuid.UUID) (int64, error)
	ClientNumberExists(ctx context.Context, number string) (bool, error)
}

type customerRepository struct {
	db *gorm.DB
}

func NewCustomerRepository(db *gorm.DB) CustomerRepository {
	return &customerRepository{db: db}
}

func (r *customerRepository) Create(ctx context.Context, customer *model.Customer) error {
	return translate(GetDB(ctx, r.db).Omit(clause.Associations).Create(customer).Error)
}

// UpdateContact writes the self-service account fields only; is_active and the role stay untouched
func (r *customerRepository) UpdateContact(ctx context.Context, customer *model.Customer) error {
	res := GetDB(ctx, r.db).Model(customer).
		Omit(clause.Associations).
		Select("FirstName", "LastName", "Phone", "Address", "BirthDate").
		Updates(customer)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound)
	}
	return nil
}

func (r *customerRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Customer, error) {
	var customer model.Customer
	if err := GetDB(ctx, r.db).Preload("Profile").First(&customer, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &customer, nil
}

// GetByLogin matches either the email or the username, an email match wins
func (r *customerRepository) GetByLogin(ctx context.Context, login string) (*model.Customer, error) {
	var customer model.Customer
	err := GetDB(ctx, r.db).
		Where("email = ? OR username = ?", login, login).
		Order(clause.OrderBy{Expression: clause.Expr{
			SQL:  "CASE WHEN email = ? THEN 0 ELSE 1 END",
			Vars: []interface{}{login},
		}}).
		Take(&customer).Error
	if err != nil {
		return nil, translate(err)
	}
	return &customer, nil
}

func (r *customerRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, "email = ?", email)
}

func (r *customerRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, "username = ?", username)
}

func (r *customerRepository) exists(ctx context.Context, cond string, arg interface{}) (bool, error) {
	var count int64
	if err := GetDB(ctx, r.db).Model(&model.Customer{}).Where(cond, arg).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *customerRepository) TouchLastAccess(ctx context.Context, id uuid.UUID, at time.Time) error {
	return GetDB(ctx, r.db).Model(&model.Customer{}).Where("id = ?", id).UpdateColumn("last_access_at", at).Error
}

func (r *customerRepository) CreateProfile(ctx context.Context, profile *model.UserProfile) error {
	return translate(GetDB(ctx, r.db).Create(profile).Error)
}

func (r *customerRepository) SaveProfile(ctx context.Context, profile *model.UserProfile) error {
	return translate(GetDB(ctx, r.db).Save(profile).Error)
}

func (r *customerRepository) GetProfile(ctx context.Context, customerID uuid.UUID) (*model.UserProfile, error) {
	var profile model.UserProfile
	if err := GetDB(ctx, r.db).First(&profile, "customer_id = ?", customerID).Error; err != nil {
		return nil, translate(err)
	}
	return &profile, nil
}

func (r *customerRepository) CountProfiles(ctx context.Context, customerID uuid.UUID) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.UserProfile{}).Where("customer_id = ?", customerID).Count(&count).Error
	return count, err
}

func (r *customerRepository) ClientNumberExists(ctx context.Context, number string) (bool, error) {
	var count int64
	if err := GetDB(ctx, r.db).Model(&model.UserProfile{}).Where("client_number = ?", number).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
