package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"banco/internal/bizerror"
	"banco/internal/logging"
	"banco/internal/model"
	"banco/internal/repository"
	"banco/internal/security"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const dateLayout = "2006-01-02"

// clientNumberAttempts bounds the retries when a random client number is already taken
const clientNumberAttempts = 20

type RegisterCustomerRequest struct {
	Username        string `json:"username" binding:"required,max=150"`
	Email           string `json:"email" binding:"required,email"`
	FirstName       string `json:"first_name" binding:"required,max=30"`
	LastName        string `json:"last_name" binding:"required,max=30"`
	Phone           string `json:"telefono" binding:"omitempty,max=17"`
	BirthDate       string `json:"fecha_nacimiento" binding:"omitempty,datetime=2006-01-02"`
	Password        string `json:"password" binding:"required,min=8"`
	PasswordConfirm string `json:"password_confirm" binding:"required"`
	TermsAccepted   bool   `json:"terms_accepted"`
}

type CustomerLoginRequest struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type UpdateProfileRequest struct {
	NationalID    *string          `json:"cedula" binding:"omitempty,max=20"`
	Profession    *string          `json:"profesion" binding:"omitempty,max=100"`
	MonthlyIncome *decimal.Decimal `json:"ingresos_mensuales"`
	NotifyEmail   *bool            `json:"notificaciones_email"`
	NotifySMS     *bool            `json:"notificaciones_sms"`
}

type UpdateAccountRequest struct {
	FirstName *string `json:"first_name" binding:"omitempty,max=150"`
	LastName  *string `json:"last_name" binding:"omitempty,max=150"`
	Phone     *string `json:"telefono" binding:"omitempty,max=17"`
	Address   *string `json:"direccion"`
	BirthDate *string `json:"fecha_nacimiento" binding:"omitempty,datetime=2006-01-02"`
}

type CreateAdminRequest struct {
	Email     string
	Username  string
	Password  string
	FirstName string
	LastName  string
}

type CustomerResponse struct {
	ID           uuid.UUID          `json:"id"`
	Username     string             `json:"username"`
	Email        string             `json:"email"`
	FullName     string             `json:"full_name"`
	Role         string             `json:"role"`
	RoleLabel    string             `json:"role_label"`
	RoleBadge    string             `json:"role_badge"`
	Phone        string             `json:"telefono"`
	Address      string             `json:"direccion"`
	BirthDate    string             `json:"fecha_nacimiento,omitempty"`
	IsActive     bool               `json:"is_active"`
	RegisteredAt time.Time          `json:"registered_at"`
	LastAccessAt *time.Time         `json:"last_access_at"`
	Profile      *model.UserProfile `json:"profile,omitempty"`
}

type CustomerTokenResponse struct {
	Token     string            `json:"token"`
	ExpiresAt time.Time         `json:"expires_at"`
	Customer  *CustomerResponse `json:"customer"`
}

func ToCustomerResponse(c *model.Customer) *CustomerResponse {
	res := &CustomerResponse{
		ID:           c.ID,
		Username:     c.Username,
		Email:        c.Email,
		FullName:     c.FullName(),
		Role:         string(c.Role),
		RoleLabel:    c.Role.Label(),
		RoleBadge:    c.RoleBadgeClass(),
		Phone:        c.Phone,
		Address:      c.Address,
		IsActive:     c.IsActive,
		RegisteredAt: c.RegisteredAt,
		LastAccessAt: c.LastAccessAt,
		Profile:      c.Profile,
	}
	if c.BirthDate != nil {
		res.BirthDate = c.BirthDate.Format(dateLayout)
	}
	return res
}

// CustomerService covers the online banking identities: registration, login and profile
type CustomerService interface {
	Register(ctx context.Context, req RegisterCustomerRequest) (*model.Customer, error)
	AuthenticateCustomer(ctx context.Context, login, password string) (*model.Customer, error)
	Login(ctx context.Context, req CustomerLoginRequest) (*CustomerTokenResponse, error)
	GetCustomer(ctx context.Context, id uuid.UUID) (*model.Customer, error)
	UpdateProfile(ctx context.Context, customerID uuid.UUID, req UpdateProfileRequest) (*model.UserProfile, error)
	UpdateAccount(ctx context.Context, customerID uuid.UUID, req UpdateAccountRequest) (*model.Customer, error)
	CreateAdmin(ctx context.Context, req CreateAdminRequest) (*model.Customer, error)
}

type customerService struct {
	tm        repository.TransactionManager
	customers repository.CustomerRepository
	hasher    security.PasswordHasher
	tokens    *security.TokenIssuer
	now       func() time.Time
	digits    func(n int) (string, error)
}

func NewCustomerService(
	tm repository.TransactionManager,
	customers repository.CustomerRepository,
	hasher security.PasswordHasher,
	tokens *security.TokenIssuer,
) CustomerService {
	return &customerService{
		tm:        tm,
		customers: customers,
		hasher:    hasher,
		tokens:    tokens,
		now:       time.Now,
		digits:    randomDigits,
	}
}

func randomDigits(n int) (string, error) {
	var sb strings.Builder
	ten := big.NewInt(10)
	for i := 0; i < n; i++ {
		d, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		sb.WriteByte(byte('0' + d.Int64()))
	}
	return sb.String(), nil
}

func parseDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, &bizerror.ErrBadParam{Cause: err}
	}
	return &t, nil
}

func validPhone(phone string) bool {
	return phone == "" || model.PhonePattern.MatchString(phone)
}

// Register creates a client-role customer and, in the same transaction, its profile
func (s *customerService) Register(ctx context.Context, req RegisterCustomerRequest) (*model.Customer, error) {
	if req.Password != req.PasswordConfirm {
		return nil, bizerror.BadParam("password confirmation does not match")
	}
	if !req.TermsAccepted {
		return nil, bizerror.BadParam("terms and conditions must be accepted")
	}
	if !validPhone(req.Phone) {
		return nil, bizerror.BadParam("phone must be in the format +595981123456")
	}
	birthDate, err := parseDate(req.BirthDate)
	if err != nil {
		return nil, err
	}

	customer := &model.Customer{
		Username:  strings.TrimSpace(req.Username),
		Email:     strings.ToLower(strings.TrimSpace(req.Email)),
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Role:      model.CustomerRoleClient,
		Phone:     req.Phone,
		BirthDate: birthDate,
		IsActive:  true,
	}
	if err := s.create(ctx, customer, req.Password); err != nil {
		return nil, err
	}
	return customer, nil
}

// create persists the customer and runs the post-creation profile hook in one transaction
func (s *customerService) create(ctx context.Context, customer *model.Customer, password string) error {
	if customer.Username == "" || customer.Email == "" {
		return bizerror.BadParam("username and email are required")
	}
	hashed, err := s.hasher.Hash(password)
	if err != nil {
		return &bizerror.ErrBadParam{Cause: err}
	}
	customer.Password = hashed

	return s.tm.RunInTx(ctx, func(txCtx context.Context) error {
		if exists, err := s.customers.ExistsByEmail(txCtx, customer.Email); err != nil {
			return err
		} else if exists {
			return fmt.Errorf("%w: email %s", bizerror.ErrDuplicateName, customer.Email)
		}
		if exists, err := s.customers.ExistsByUsername(txCtx, customer.Username); err != nil {
			return err
		} else if exists {
			return fmt.Errorf("%w: username %s", bizerror.ErrDuplicateName, customer.Username)
		}

		if err := s.customers.Create(txCtx, customer); err != nil {
			return err
		}
		profile, err := s.afterCreate(txCtx, customer)
		if err != nil {
			return err
		}
		customer.Profile = profile
		return nil
	})
}

// afterCreate builds the profile every new customer gets; clients also get a client number
func (s *customerService) afterCreate(ctx context.Context, customer *model.Customer) (*model.UserProfile, error) {
	profile := &model.UserProfile{CustomerID: customer.ID, NotifyEmail: true}
	if customer.IsClient() {
		number, err := s.newClientNumber(ctx)
		if err != nil {
			return nil, err
		}
		profile.ClientNumber = &number
	}
	if err := s.customers.CreateProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}
	return profile, nil
}

func (s *customerService) newClientNumber(ctx context.Context) (string, error) {
	for i := 0; i < clientNumberAttempts; i++ {
		number, err := s.digits(model.ClientNumberLength)
		if err != nil {
			return "", fmt.Errorf("failed to generate client number: %w", err)
		}
		taken, err := s.customers.ClientNumberExists(ctx, number)
		if err != nil {
			return "", err
		}
		if !taken {
			return number, nil
		}
	}
	return "", errors.New("could not find a free client number")
}

// AuthenticateCustomer accepts the email or the username; every failure looks the same to callers
func (s *customerService) AuthenticateCustomer(ctx context.Context, login, password string) (*model.Customer, error) {
	customer, err := s.customers.GetByLogin(ctx, strings.TrimSpace(login))
	if err != nil {
		if errors.Is(err, bizerror.ErrNotFound) {
			s.reject(login, bizerror.ErrUnknownPrincipal)
			return nil, bizerror.ErrUnknownPrincipal
		}
		return nil, fmt.Errorf("failed to look up customer: %w", err)
	}
	if !s.hasher.Check(customer.Password, password) {
		s.reject(login, bizerror.ErrInvalidCredentials)
		return nil, bizerror.ErrInvalidCredentials
	}
	if !customer.IsActive {
		s.reject(login, bizerror.ErrAccountInactive)
		return nil, bizerror.ErrAccountInactive
	}

	at := s.now()
	if err := s.customers.TouchLastAccess(ctx, customer.ID, at); err != nil {
		return nil, fmt.Errorf("failed to stamp last access: %w", err)
	}
	customer.LastAccessAt = &at
	return customer, nil
}

func (s *customerService) reject(login string, reason *bizerror.AuthFailure) {
	logging.Log.WithFields(logrus.Fields{
		"login":  login,
		"reason": reason.Reason,
	}).Info("customer authentication failed")
}

func (s *customerService) Login(ctx context.Context, req CustomerLoginRequest) (*CustomerTokenResponse, error) {
	customer, err := s.AuthenticateCustomer(ctx, req.Login, req.Password)
	if err != nil {
		return nil, err
	}
	token, expiresAt, err := s.tokens.Issue(customer.ID, customer.Username, string(customer.Role), security.KindCustomer)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &CustomerTokenResponse{Token: token, ExpiresAt: expiresAt, Customer: ToCustomerResponse(customer)}, nil
}

func (s *customerService) GetCustomer(ctx context.Context, id uuid.UUID) (*model.Customer, error) {
	return s.customers.GetByID(ctx, id)
}

func (s *customerService) UpdateProfile(ctx context.Context, customerID uuid.UUID, req UpdateProfileRequest) (*model.UserProfile, error) {
	profile, err := s.customers.GetProfile(ctx, customerID)
	if err != nil {
		return nil, err
	}

	if req.NationalID != nil {
		if v := strings.TrimSpace(*req.NationalID); v != "" {
			profile.NationalID = &v
		} else {
			profile.NationalID = nil
		}
	}
	if req.Profession != nil {
		profile.Profession = strings.TrimSpace(*req.Profession)
	}
	if req.MonthlyIncome != nil {
		if req.MonthlyIncome.IsNegative() {
			return nil, bizerror.BadParam("monthly income must not be negative")
		}
		profile.MonthlyIncome = decimal.NewNullDecimal(req.MonthlyIncome.Round(2))
	}
	if req.NotifyEmail != nil {
		profile.NotifyEmail = *req.NotifyEmail
	}
	if req.NotifySMS != nil {
		profile.NotifySMS = *req.NotifySMS
	}

	if err := s.customers.SaveProfile(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

func (s *customerService) UpdateAccount(ctx context.Context, customerID uuid.UUID, req UpdateAccountRequest) (*model.Customer, error) {
	customer, err := s.customers.GetByID(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if req.FirstName != nil {
		customer.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		customer.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.Phone != nil {
		if !validPhone(*req.Phone) {
			return nil, bizerror.BadParam("phone must be in the format +595981123456")
		}
		customer.Phone = *req.Phone
	}
	if req.Address != nil {
		customer.Address = *req.Address
	}
	if req.BirthDate != nil {
		birthDate, err := parseDate(*req.BirthDate)
		if err != nil {
			return nil, err
		}
		customer.BirthDate = birthDate
	}

	if err := s.customers.UpdateContact(ctx, customer); err != nil {
		return nil, err
	}
	return customer, nil
}

// CreateAdmin refuses, without changes, when the email or username is taken
func (s *customerService) CreateAdmin(ctx context.Context, req CreateAdminRequest) (*model.Customer, error) {
	customer := &model.Customer{
		Username:  strings.TrimSpace(req.Username),
		Email:     strings.ToLower(strings.TrimSpace(req.Email)),
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Role:      model.CustomerRoleAdmin,
		IsActive:  true,
	}
	if err := s.create(ctx, customer, req.Password); err != nil {
		return nil, err
	}
	logging.Log.WithField("email", customer.Email).Info("customer administrator created")
	return customer, nil
}
