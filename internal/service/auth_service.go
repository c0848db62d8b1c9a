package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"banco/internal/bizerror"
	"banco/internal/logging"
	"banco/internal/model"
	"banco/internal/repository"
	"banco/internal/security"

	"github.com/sirupsen/logrus"
)

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type TokenResponse struct {
	Token     string              `json:"token"`
	ExpiresAt time.Time           `json:"expires_at"`
	User      *SystemUserResponse `json:"user"`
}

// AuthService is the authentication backend for system users
type AuthService interface {
	Authenticate(ctx context.Context, username, password string) (*model.SystemUser, error)
	Login(ctx context.Context, req LoginRequest) (*TokenResponse, error)
}

type authService struct {
	users  repository.SystemUserRepository
	hasher security.PasswordHasher
	tokens *security.TokenIssuer
	audit  AuditService
	events EventPublisher
	now    func() time.Time
}

func NewAuthService(
	users repository.SystemUserRepository,
	hasher security.PasswordHasher,
	tokens *security.TokenIssuer,
	audit AuditService,
	events EventPublisher,
) AuthService {
	return &authService{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		audit:  audit,
		events: publisherOrDiscard(events),
		now:    time.Now,
	}
}

// Authenticate resolves the principal and verifies the password.
//
// Unknown users and blocked users fail without touching any state. A wrong password bumps the
// failure counter and blocks the account once it reaches model.LockoutThreshold; a correct one
// clears the counter and stamps the last access. All failures match bizerror.ErrAuthenticationFailed.
func (s *authService) Authenticate(ctx context.Context, username, password string) (*model.SystemUser, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, bizerror.ErrNotFound) {
			s.reject(ctx, username, nil, bizerror.ErrUnknownPrincipal)
			return nil, bizerror.ErrUnknownPrincipal
		}
		return nil, fmt.Errorf("failed to look up system user: %w", err)
	}

	if user.IsBlocked() {
		s.reject(ctx, username, user, bizerror.ErrAccountBlocked)
		return nil, bizerror.ErrAccountBlocked
	}

	if !s.hasher.Check(user.Password, password) {
		blocked, err := s.users.IncrementFailedAttempts(ctx, user.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to record failed attempt: %w", err)
		}
		s.reject(ctx, username, user, bizerror.ErrInvalidCredentials)
		if blocked {
			s.onBlocked(ctx, user)
		}
		return nil, bizerror.ErrInvalidCredentials
	}

	at := s.now()
	reset, err := s.users.ResetFailedAttempts(ctx, user.ID, at)
	if err != nil {
		return nil, fmt.Errorf("failed to reset failed attempts: %w", err)
	}
	if !reset {
		// blocked by a concurrent failure after the status check above
		s.reject(ctx, username, user, bizerror.ErrAccountBlocked)
		return nil, bizerror.ErrAccountBlocked
	}
	user.FailedAttempts = 0
	user.LastAccessAt = &at

	logging.Log.WithFields(logrus.Fields{"username": username, "user_id": user.ID}).Info("system user authenticated")
	s.record(WithActor(ctx, user.ID), AuditEntry{
		Action:     model.ActionLoginSucceeded,
		EntityID:   user.ID.String(),
		EntityName: user.Username,
	})
	return user, nil
}

// onBlocked reports the lockout caused by the current failed attempt
func (s *authService) onBlocked(ctx context.Context, user *model.SystemUser) {
	user.Status = model.StatusBlocked
	user.FailedAttempts = model.LockoutThreshold

	logging.Log.WithFields(logrus.Fields{
		"username":        user.Username,
		"user_id":         user.ID,
		"failed_attempts": user.FailedAttempts,
	}).Warn("system user blocked after repeated failed logins")
	s.record(ctx, AuditEntry{
		Action:     model.ActionAccountBlocked,
		EntityID:   user.ID.String(),
		EntityName: user.Username,
		Details:    fmt.Sprintf("failed_attempts=%d", user.FailedAttempts),
	})
	s.events.Publish(SecurityEvent{
		Type:     EventAccountBlocked,
		UserID:   user.ID.String(),
		Username: user.Username,
		At:       s.now(),
	})
}

// reject logs the internal reason; the caller only ever sees the generic failure
func (s *authService) reject(ctx context.Context, username string, user *model.SystemUser, reason *bizerror.AuthFailure) {
	logging.Log.WithFields(logrus.Fields{
		"username": username,
		"reason":   reason.Reason,
	}).Info("system user authentication failed")

	entry := AuditEntry{Action: model.ActionLoginFailed, EntityName: username, Details: reason.Reason}
	if user != nil {
		entry.EntityID = user.ID.String()
	}
	s.record(ctx, entry)
}

// record keeps audit failures from changing the authentication outcome
func (s *authService) record(ctx context.Context, entry AuditEntry) {
	if err := s.audit.Record(ctx, entry); err != nil {
		logging.Log.WithError(err).WithField("action", entry.Action).Warn("failed to write audit entry")
	}
}

// Login authenticates and issues the session token. Inactive principals get the same generic failure.
func (s *authService) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	user, err := s.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		return nil, err
	}
	if user.Status == model.StatusInactive {
		logging.Log.WithFields(logrus.Fields{
			"username": user.Username,
			"reason":   bizerror.ErrAccountInactive.Reason,
		}).Info("session refused")
		return nil, bizerror.ErrAccountInactive
	}

	role := ""
	if user.Role != nil {
		role = string(user.Role.Name)
	}
	token, expiresAt, err := s.tokens.Issue(user.ID, user.Username, role, security.KindSystemUser)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &TokenResponse{Token: token, ExpiresAt: expiresAt, User: ToSystemUserResponse(user)}, nil
}
