package service

import (
	"context"
	"strings"

	"banco/internal/bizerror"
	"banco/internal/logging"
	"banco/internal/model"
	"banco/internal/repository"

	"github.com/google/uuid"
)

type CreateClientRequest struct {
	Nombres   string `json:"nombres" binding:"required,max=200"`
	Apellidos string `json:"apellidos" binding:"required,max=200"`
}

// ClientService manages the client records system users may represent
type ClientService interface {
	Create(ctx context.Context, req CreateClientRequest) (*model.Client, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Client, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type clientService struct {
	tm      repository.TransactionManager
	clients repository.ClientRepository
	users   repository.SystemUserRepository
	audit   AuditService
}

func NewClientService(
	tm repository.TransactionManager,
	clients repository.ClientRepository,
	users repository.SystemUserRepository,
	audit AuditService,
) ClientService {
	return &clientService{tm: tm, clients: clients, users: users, audit: audit}
}

func (s *clientService) Create(ctx context.Context, req CreateClientRequest) (*model.Client, error) {
	client := &model.Client{
		GivenName: strings.TrimSpace(req.Nombres),
		Surname:   strings.TrimSpace(req.Apellidos),
	}
	if client.GivenName == "" || client.Surname == "" {
		return nil, bizerror.BadParam("nombres and apellidos are required")
	}
	if err := s.clients.Create(ctx, client); err != nil {
		return nil, err
	}
	return client, nil
}

func (s *clientService) Get(ctx context.Context, id uuid.UUID) (*model.Client, error) {
	return s.clients.GetByID(ctx, id)
}

// Delete removes the record and detaches the users that represented it; the users stay
func (s *clientService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.tm.RunInTx(ctx, func(txCtx context.Context) error {
		client, err := s.clients.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		detached, err := s.users.ClearClient(txCtx, id)
		if err != nil {
			return err
		}
		if err := s.clients.Delete(txCtx, id); err != nil {
			return err
		}
		if detached > 0 {
			logging.Log.WithField("client_id", id).WithField("users", detached).Info("client deleted, users detached")
		}
		return s.audit.Record(txCtx, AuditEntry{
			Action:     model.ActionDeleteClient,
			EntityID:   client.ID.String(),
			EntityName: client.FullName(),
		})
	})
}
