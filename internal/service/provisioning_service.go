package service

import (
	"context"
	"fmt"

	"banco/internal/bizerror"
	"banco/internal/logging"
	"banco/internal/model"
	"banco/internal/repository"
	"banco/internal/seed"

	"github.com/sirupsen/logrus"
)

// BootstrapCredentials name the reserved principal created on an empty installation
type BootstrapCredentials struct {
	Username string
	Password string
}

type BootstrapResult struct {
	User        *model.SystemUser
	RoleCreated bool
}

type SeedResult struct {
	RolesCreated       int
	PermissionsCreated int
	GrantsApplied      int
}

type ProvisioningService interface {
	BootstrapAdministrator(ctx context.Context) (*BootstrapResult, error)
	SeedCatalog(ctx context.Context, catalog *seed.Catalog) (*SeedResult, error)
}

type provisioningService struct {
	tm      repository.TransactionManager
	users   repository.SystemUserRepository
	system  SystemUserService
	catalog CatalogService
	audit   AuditService
	creds   BootstrapCredentials
}

func NewProvisioningService(
	tm repository.TransactionManager,
	users repository.SystemUserRepository,
	system SystemUserService,
	catalog CatalogService,
	audit AuditService,
	creds BootstrapCredentials,
) ProvisioningService {
	return &provisioningService{tm: tm, users: users, system: system, catalog: catalog, audit: audit, creds: creds}
}

// BootstrapAdministrator creates the reserved superuser. When it already exists nothing changes
// and bizerror.ErrBootstrapConflict is returned.
func (s *provisioningService) BootstrapAdministrator(ctx context.Context) (*BootstrapResult, error) {
	result := &BootstrapResult{}
	err := s.tm.RunInTx(ctx, func(txCtx context.Context) error {
		exists, err := s.users.ExistsByUsername(txCtx, s.creds.Username)
		if err != nil {
			return fmt.Errorf("failed to check bootstrap user: %w", err)
		}
		if exists {
			return bizerror.ErrBootstrapConflict
		}

		user, roleCreated, err := s.system.CreateSuperuser(txCtx, s.creds.Username, s.creds.Password)
		if err != nil {
			return err
		}
		result.User, result.RoleCreated = user, roleCreated

		return s.audit.Record(txCtx, AuditEntry{
			Action:     model.ActionBootstrapAdmin,
			EntityID:   user.ID.String(),
			EntityName: user.Username,
		})
	})
	if err != nil {
		return nil, err
	}

	logging.Log.WithFields(logrus.Fields{
		"username":     result.User.Username,
		"role_created": result.RoleCreated,
	}).Info("bootstrap administrator created")
	return result, nil
}

// SeedCatalog makes sure every role kind, catalog permission and catalog grant exists
func (s *provisioningService) SeedCatalog(ctx context.Context, catalog *seed.Catalog) (*SeedResult, error) {
	result := &SeedResult{}
	err := s.tm.RunInTx(ctx, func(txCtx context.Context) error {
		roles := make(map[model.RoleName]*model.Role, len(model.RoleNames()))
		for _, name := range model.RoleNames() {
			role, created, err := s.catalog.EnsureRole(txCtx, name, catalog.RoleDescription(name))
			if err != nil {
				return fmt.Errorf("seed role %s: %w", name, err)
			}
			if created {
				result.RolesCreated++
			}
			roles[name] = role
		}

		perms := make(map[string]*model.Permission, len(catalog.Permissions))
		for _, p := range catalog.Permissions {
			perm, created, err := s.catalog.EnsurePermission(txCtx, p.Name, p.Description)
			if err != nil {
				return fmt.Errorf("seed permission %s: %w", p.Name, err)
			}
			if created {
				result.PermissionsCreated++
			}
			perms[p.Name] = perm
		}

		for roleName, names := range catalog.Grants {
			for _, name := range names {
				if err := s.catalog.Grant(txCtx, roles[roleName].ID, perms[name].ID); err != nil {
					return fmt.Errorf("seed grant %s/%s: %w", roleName, name, err)
				}
				result.GrantsApplied++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logging.Log.WithFields(logrus.Fields{
		"roles_created":       result.RolesCreated,
		"permissions_created": result.PermissionsCreated,
		"grants":              result.GrantsApplied,
	}).Info("rbac catalog seeded")
	return result, nil
}
