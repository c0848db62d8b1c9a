package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"banco/internal/bizerror"
	"banco/internal/model"
	"banco/internal/repository"
	"banco/internal/security"
	"banco/pkg/pagination"

	"github.com/google/uuid"
)

// DefaultAdministratorDescription is used when provisioning has to create the administrator role
const DefaultAdministratorDescription = "Administrador del sistema con acceso completo"

// DTOs for Request validation
type CreateSystemUserRequest struct {
	Username string  `json:"username" binding:"required,max=150"`
	Password string  `json:"password" binding:"required,min=8"`
	RoleID   string  `json:"role_id" binding:"required,uuid"`
	ClientID *string `json:"client_id" binding:"omitempty,uuid"`
	Status   string  `json:"status"`
}

type ChangeRoleRequest struct {
	RoleID string `json:"role_id" binding:"required,uuid"`
}

type SetStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type SetPasswordRequest struct {
	Password string `json:"password" binding:"required,min=8"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8"`
}

type LinkClientRequest struct {
	ClientID *string `json:"client_id" binding:"omitempty,uuid"`
}

// SystemUserResponse is the list/detail representation, without the credential
type SystemUserResponse struct {
	ID                   uuid.UUID  `json:"id"`
	Username             string     `json:"username"`
	Role                 string     `json:"role"`
	RoleLabel            string     `json:"role_label"`
	RoleBadge            string     `json:"role_badge"`
	ClientID             *uuid.UUID `json:"client_id"`
	ClientName           string     `json:"client_name,omitempty"`
	Status               string     `json:"status"`
	StatusLabel          string     `json:"status_label"`
	StatusBadge          string     `json:"status_badge"`
	FailedAttempts       int        `json:"failed_attempts"`
	IsStaffAccess        bool       `json:"is_staff_access"`
	IsSuperuserAccess    bool       `json:"is_superuser_access"`
	CreatedAt            time.Time  `json:"created_at"`
	LastAccessAt         *time.Time `json:"last_access_at"`
	LastPasswordChangeAt *time.Time `json:"last_password_change_at"`
}

func ToSystemUserResponse(user *model.SystemUser) *SystemUserResponse {
	res := &SystemUserResponse{
		ID:                   user.ID,
		Username:             user.Username,
		RoleBadge:            user.RoleBadgeClass(),
		ClientID:             user.ClientID,
		Status:               string(user.Status),
		StatusLabel:          user.Status.Label(),
		StatusBadge:          user.StatusBadgeClass(),
		FailedAttempts:       user.FailedAttempts,
		IsStaffAccess:        user.IsStaffAccess,
		IsSuperuserAccess:    user.IsSuperuserAccess,
		CreatedAt:            user.CreatedAt,
		LastAccessAt:         user.LastAccessAt,
		LastPasswordChangeAt: user.LastPasswordChangeAt,
	}
	if user.Role != nil {
		res.Role = string(user.Role.Name)
		res.RoleLabel = user.Role.Name.Label()
	}
	if user.Client != nil {
		res.ClientName = user.Client.FullName()
	}
	return res
}

// SystemUserService defines the business logic for system users
type SystemUserService interface {
	CreateUser(ctx context.Context, req CreateSystemUserRequest) (*model.SystemUser, error)
	CreateSuperuser(ctx context.Context, username, password string) (*model.SystemUser, bool, error)
	GetUser(ctx context.Context, id uuid.UUID) (*model.SystemUser, error)
	ListUsers(ctx context.Context, filter repository.UserFilter, page pagination.Params) ([]SystemUserResponse, int64, error)
	ChangeRole(ctx context.Context, id, roleID uuid.UUID) (*model.SystemUser, error)
	SetStatus(ctx context.Context, id uuid.UUID, status model.UserStatus) (*model.SystemUser, error)
	Unblock(ctx context.Context, id uuid.UUID) (*model.SystemUser, error)
	ChangePassword(ctx context.Context, id uuid.UUID, current, next string) error
	SetPassword(ctx context.Context, id uuid.UUID, password string) error
	LinkClient(ctx context.Context, id uuid.UUID, clientID *uuid.UUID) (*model.SystemUser, error)
}

type systemUserService struct {
	tm      repository.TransactionManager
	users   repository.SystemUserRepository
	clients repository.ClientRepository
	catalog CatalogService
	roles   repository.RoleRepository
	hasher  security.PasswordHasher
	audit   AuditService
	events  EventPublisher
	now     func() time.Time
}

// NewSystemUserService returns a new instance of SystemUserService
func NewSystemUserService(
	tm repository.TransactionManager,
	users repository.SystemUserRepository,
	roles repository.RoleRepository,
	clients repository.ClientRepository,
	catalog CatalogService,
	hasher security.PasswordHasher,
	audit AuditService,
	events EventPublisher,
) SystemUserService {
	return &systemUserService{
		tm:      tm,
		users:   users,
		roles:   roles,
		clients: clients,
		catalog: catalog,
		hasher:  hasher,
		audit:   audit,
		events:  publisherOrDiscard(events),
		now:     time.Now,
	}
}

func parseOptionalID(raw *string) (*uuid.UUID, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*raw)
	if err != nil {
		return nil, &bizerror.ErrBadParam{Cause: err}
	}
	return &id, nil
}

func (s *systemUserService) CreateUser(ctx context.Context, req CreateSystemUserRequest) (*model.SystemUser, error) {
	roleID, err := uuid.Parse(req.RoleID)
	if err != nil {
		return nil, &bizerror.ErrBadParam{Cause: err}
	}
	clientID, err := parseOptionalID(req.ClientID)
	if err != nil {
		return nil, err
	}
	status := model.UserStatus(req.Status)
	if status == "" {
		status = model.StatusActive
	}

	var user *model.SystemUser
	err = s.tm.RunInTx(ctx, func(txCtx context.Context) error {
		role, err := s.roles.FindByID(txCtx, roleID)
		if err != nil {
			if errors.Is(err, bizerror.ErrNotFound) {
				return bizerror.ErrInvalidRole
			}
			return err
		}
		user, err = s.create(txCtx, req.Username, req.Password, role, clientID, status)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// CreateSuperuser ensures the administrator role and creates an active user holding it.
// The flag reports whether the role had to be created.
func (s *systemUserService) CreateSuperuser(ctx context.Context, username, password string) (*model.SystemUser, bool, error) {
	var (
		user        *model.SystemUser
		roleCreated bool
	)
	err := s.tm.RunInTx(ctx, func(txCtx context.Context) error {
		role, created, err := s.catalog.EnsureRole(txCtx, model.RoleAdministrator, DefaultAdministratorDescription)
		if err != nil {
			return fmt.Errorf("failed to ensure administrator role: %w", err)
		}
		roleCreated = created
		user, err = s.create(txCtx, username, password, role, nil, model.StatusActive)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return user, roleCreated, nil
}

// create is the factory every creation path goes through; username and role are required
func (s *systemUserService) create(ctx context.Context, username, password string, role *model.Role, clientID *uuid.UUID, status model.UserStatus) (*model.SystemUser, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, bizerror.BadParam("username is required")
	}
	if role == nil {
		return nil, bizerror.ErrInvalidRole
	}
	if !status.IsValid() {
		return nil, bizerror.ErrInvalidStatus
	}

	exists, err := s.users.ExistsByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if exists {
		return nil, bizerror.ErrDuplicateName
	}

	if clientID != nil {
		if _, err := s.clients.GetByID(ctx, *clientID); err != nil {
			return nil, err
		}
	}

	hashed, err := s.hasher.Hash(password)
	if err != nil {
		return nil, &bizerror.ErrBadParam{Cause: err}
	}

	user := &model.SystemUser{
		Username: username,
		Password: hashed,
		RoleID:   role.ID,
		Role:     role,
		ClientID: clientID,
		Status:   status,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	if err := s.audit.Record(ctx, AuditEntry{
		Action:     model.ActionCreateUser,
		EntityID:   user.ID.String(),
		EntityName: user.Username,
		Details:    string(role.Name),
	}); err != nil {
		return nil, err
	}
	return user, nil
}

// GetUser loads the user with role and client
func (s *systemUserService) GetUser(ctx context.Context, id uuid.UUID) (*model.SystemUser, error) {
	return s.users.GetByID(ctx, id)
}

func (s *systemUserService) ListUsers(ctx context.Context, filter repository.UserFilter, page pagination.Params) ([]SystemUserResponse, int64, error) {
	if filter.Role != "" && !filter.Role.IsValid() {
		return nil, 0, bizerror.ErrInvalidRole
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, 0, bizerror.ErrInvalidStatus
	}

	users, total, err := s.users.List(ctx, filter, page)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]SystemUserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, *ToSystemUserResponse(&users[i]))
	}
	return responses, total, nil
}

// ChangeRole persists the full user so the access flags follow the new role
func (s *systemUserService) ChangeRole(ctx context.Context, id, roleID uuid.UUID) (*model.SystemUser, error) {
	var user *model.SystemUser
	err := s.tm.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		user, err = s.users.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		role, err := s.roles.FindByID(txCtx, roleID)
		if err != nil {
			if errors.Is(err, bizerror.ErrNotFound) {
				return bizerror.ErrInvalidRole
			}
			return err
		}
		previous := user.Role
		user.RoleID = role.ID
		user.Role = role
		if err := s.users.UpdateRole(txCtx, user); err != nil {
			return err
		}

		details := string(role.Name)
		if previous != nil {
			details = string(previous.Name) + " -> " + details
		}
		return s.audit.Record(txCtx, AuditEntry{
			Action:     model.ActionRoleChanged,
			EntityID:   user.ID.String(),
			EntityName: user.Username,
			Details:    details,
		})
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// SetStatus moves the user to status. Leaving the blocked state also clears the failure counter.
func (s *systemUserService) SetStatus(ctx context.Context, id uuid.UUID, status model.UserStatus) (*model.SystemUser, error) {
	if !status.IsValid() {
		return nil, bizerror.ErrInvalidStatus
	}

	var (
		user      *model.SystemUser
		unblocked bool
	)
	err := s.tm.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		user, err = s.users.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		previous := user.Status

		columns := map[string]interface{}{"status": string(status)}
		unblocked = previous == model.StatusBlocked && status != model.StatusBlocked
		if unblocked {
			columns["failed_attempts"] = 0
		}
		if err := s.users.UpdateColumns(txCtx, id, columns); err != nil {
			return err
		}
		user.Status = status
		if unblocked {
			user.FailedAttempts = 0
		}

		action := model.ActionStatusChanged
		if unblocked {
			action = model.ActionAccountUnblocked
		}
		return s.audit.Record(txCtx, AuditEntry{
			Action:     action,
			EntityID:   user.ID.String(),
			EntityName: user.Username,
			Details:    string(previous) + " -> " + string(status),
		})
	})
	if err != nil {
		return nil, err
	}

	if unblocked {
		s.events.Publish(SecurityEvent{
			Type:     EventAccountUnblocked,
			UserID:   user.ID.String(),
			Username: user.Username,
			At:       s.now(),
		})
	}
	return user, nil
}

func (s *systemUserService) Unblock(ctx context.Context, id uuid.UUID) (*model.SystemUser, error) {
	return s.SetStatus(ctx, id, model.StatusActive)
}

func (s *systemUserService) ChangePassword(ctx context.Context, id uuid.UUID, current, next string) error {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !s.hasher.Check(user.Password, current) {
		return bizerror.ErrInvalidPassword
	}
	return s.storePassword(ctx, user, next)
}

// SetPassword is the administrative reset, no current password needed
func (s *systemUserService) SetPassword(ctx context.Context, id uuid.UUID, password string) error {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return s.storePassword(ctx, user, password)
}

func (s *systemUserService) storePassword(ctx context.Context, user *model.SystemUser, password string) error {
	hashed, err := s.hasher.Hash(password)
	if err != nil {
		return &bizerror.ErrBadParam{Cause: err}
	}
	return s.tm.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.users.UpdateColumns(txCtx, user.ID, map[string]interface{}{
			"password":                hashed,
			"last_password_change_at": s.now(),
		}); err != nil {
			return err
		}
		return s.audit.Record(txCtx, AuditEntry{
			Action:     model.ActionPasswordChanged,
			EntityID:   user.ID.String(),
			EntityName: user.Username,
		})
	})
}

// LinkClient sets or clears the client record the user represents
func (s *systemUserService) LinkClient(ctx context.Context, id uuid.UUID, clientID *uuid.UUID) (*model.SystemUser, error) {
	if clientID != nil {
		if _, err := s.clients.GetByID(ctx, *clientID); err != nil {
			return nil, err
		}
	}
	var value interface{}
	if clientID != nil {
		value = *clientID
	}
	if err := s.users.UpdateColumns(ctx, id, map[string]interface{}{"client_id": value}); err != nil {
		return nil, err
	}
	return s.users.GetByID(ctx, id)
}
