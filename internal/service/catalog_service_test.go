package service_test

import (
	"context"
	"errors"

	"banco/internal/app"
	"banco/internal/bizerror"
	"banco/internal/model"
	"banco/internal/repository"
	"banco/internal/service"
	"banco/internal/testinfra"
	"banco/pkg/pagination"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

type failingPermissionLookup struct {
	repository.PermissionRepository
	err error
}

func (r failingPermissionLookup) FindByName(context.Context, string) (*model.Permission, error) {
	return nil, r.err
}

var _ = Describe("CatalogService", func() {
	var (
		a   *app.App
		db  *gorm.DB
		ctx context.Context
	)

	BeforeEach(func() {
		a, db = testinfra.StartTestApp()
		ctx = context.Background()
	})

	AfterEach(func() {
		testinfra.StopTestDatabase(db)
	})

	Describe("teller scenario", func() {
		It("should grant, authenticate and lock out jdoe", func() {
			cashier, err := a.Catalog.CreateRole(ctx, model.RoleCashier, "Cajero de ventanilla")
			Expect(err).To(BeNil())
			reports, err := a.Catalog.CreatePermission(ctx, "ver_reportes", "Ver reportes")
			Expect(err).To(BeNil())
			Expect(a.Catalog.Grant(ctx, cashier.ID, reports.ID)).To(Succeed())

			jdoe := testinfra.CreateUser(a.Users, a.Catalog, "jdoe", "Correcta123", model.RoleCashier)
			Expect(jdoe.Status).To(Equal(model.StatusActive))
			Expect(jdoe.FailedAttempts).To(BeZero())

			has, err := a.Resolver.HasPermission(ctx, jdoe, "ver_reportes")
			Expect(err).To(BeNil())
			Expect(has).To(BeTrue())

			for i := 0; i < 3; i++ {
				_, err := a.AuthN.Authenticate(ctx, "jdoe", "wrong")
				Expect(err).To(Equal(bizerror.ErrInvalidCredentials))
			}
			stored, err := a.Users.GetUser(ctx, jdoe.ID)
			Expect(err).To(BeNil())
			Expect(stored.Status).To(Equal(model.StatusBlocked))
			Expect(stored.FailedAttempts).To(Equal(3))

			_, err = a.AuthN.Authenticate(ctx, "jdoe", "Correcta123")
			Expect(err).To(Equal(bizerror.ErrAccountBlocked))
			stored, err = a.Users.GetUser(ctx, jdoe.ID)
			Expect(err).To(BeNil())
			Expect(stored.FailedAttempts).To(Equal(3))
		})
	})

	Describe("CreateRole", func() {
		It("should reject unknown kinds and duplicates", func() {
			_, err := a.Catalog.CreateRole(ctx, model.RoleName("gerente"), "")
			Expect(err).To(Equal(bizerror.ErrInvalidRole))

			_, err = a.Catalog.CreateRole(ctx, model.RoleAuditor, "")
			Expect(err).To(BeNil())
			_, err = a.Catalog.CreateRole(ctx, model.RoleAuditor, "")
			Expect(err).To(Equal(bizerror.ErrDuplicateName))
		})
	})

	Describe("CreatePermission", func() {
		It("should stop when the name lookup fails", func() {
			broken := errors.New("connection reset")
			catalog := service.NewCatalogService(repository.NewTransactionManager(db), repository.NewRoleRepository(db),
				failingPermissionLookup{repository.NewPermissionRepository(db), broken}, a.Audit, nil)

			_, err := catalog.CreatePermission(ctx, "ver_reportes", "")
			Expect(err).To(MatchError(broken))

			perms, err := a.Catalog.ListPermissions(ctx, "")
			Expect(err).To(BeNil())
			Expect(perms).To(BeEmpty())
		})
	})

	Describe("EnsureRole", func() {
		It("should return the existing row on the second call", func() {
			first, created, err := a.Catalog.EnsureRole(ctx, model.RoleAdministrator, "desc")
			Expect(err).To(BeNil())
			Expect(created).To(BeTrue())

			second, created, err := a.Catalog.EnsureRole(ctx, model.RoleAdministrator, "otra")
			Expect(err).To(BeNil())
			Expect(created).To(BeFalse())
			Expect(second.ID).To(Equal(first.ID))
		})
	})

	Describe("Grant", func() {
		It("should be idempotent", func() {
			role, _ := a.Catalog.CreateRole(ctx, model.RoleCashier, "")
			perm, _ := a.Catalog.CreatePermission(ctx, "ver_reportes", "")

			Expect(a.Catalog.Grant(ctx, role.ID, perm.ID)).To(Succeed())
			Expect(a.Catalog.Grant(ctx, role.ID, perm.ID)).To(Succeed())

			grants, err := a.Catalog.ListGrants(ctx, model.RoleCashier)
			Expect(err).To(BeNil())
			Expect(grants).To(HaveLen(1))

			logs, total, err := a.Audit.GetAuditLogs(ctx, repository.AuditFilter{Action: model.ActionGrantPermission}, pagination.New(1, 10))
			Expect(err).To(BeNil())
			Expect(total).To(Equal(int64(1)))
			Expect(logs[0].Details).To(Equal("ver_reportes"))
		})

		It("should refuse unknown roles or permissions", func() {
			role, _ := a.Catalog.CreateRole(ctx, model.RoleCashier, "")
			perm, _ := a.Catalog.CreatePermission(ctx, "ver_reportes", "")

			Expect(a.Catalog.Grant(ctx, perm.ID, perm.ID)).To(Equal(bizerror.ErrNotFound))
			Expect(a.Catalog.Grant(ctx, role.ID, role.ID)).To(Equal(bizerror.ErrNotFound))
		})
	})

	Describe("DeletePermission", func() {
		It("should remove its grants and leave the rest untouched", func() {
			cashier, _ := a.Catalog.CreateRole(ctx, model.RoleCashier, "")
			auditor, _ := a.Catalog.CreateRole(ctx, model.RoleAuditor, "")
			reports, _ := a.Catalog.CreatePermission(ctx, "ver_reportes", "")
			audit, _ := a.Catalog.CreatePermission(ctx, "ver_auditoria", "")
			Expect(a.Catalog.Grant(ctx, cashier.ID, reports.ID)).To(Succeed())
			Expect(a.Catalog.Grant(ctx, auditor.ID, reports.ID)).To(Succeed())
			Expect(a.Catalog.Grant(ctx, auditor.ID, audit.ID)).To(Succeed())

			Expect(a.Catalog.DeletePermission(ctx, reports.ID)).To(Succeed())

			perms, err := a.Catalog.ListPermissions(ctx, "")
			Expect(err).To(BeNil())
			Expect(perms).To(HaveLen(1))
			Expect(perms[0].Name).To(Equal("ver_auditoria"))
			Expect(perms[0].RoleCount).To(Equal(int64(1)))

			grants, err := a.Catalog.ListGrants(ctx, "")
			Expect(err).To(BeNil())
			Expect(grants).To(HaveLen(1))
			Expect(grants[0].RoleID).To(Equal(auditor.ID))

			roles, err := a.Catalog.ListRoles(ctx)
			Expect(err).To(BeNil())
			Expect(roles).To(HaveLen(2))
		})
	})

	Describe("DeleteRole", func() {
		It("should refuse while a user holds the role and change nothing", func() {
			perm, _ := a.Catalog.CreatePermission(ctx, "realizar_transacciones", "")
			jdoe := testinfra.CreateUser(a.Users, a.Catalog, "jdoe", "Correcta123", model.RoleCashier)
			Expect(a.Catalog.Grant(ctx, jdoe.RoleID, perm.ID)).To(Succeed())

			err := a.Catalog.DeleteRole(ctx, jdoe.RoleID)
			Expect(err).To(Equal(bizerror.ErrProtectedReference))

			roles, err := a.Catalog.ListRoles(ctx)
			Expect(err).To(BeNil())
			Expect(roles).To(HaveLen(1))
			Expect(roles[0].PermissionCount).To(Equal(int64(1)))

			stored, err := a.Users.GetUser(ctx, jdoe.ID)
			Expect(err).To(BeNil())
			Expect(stored.RoleID).To(Equal(jdoe.RoleID))
		})

		It("should delete an unused role with its grants", func() {
			role, _ := a.Catalog.CreateRole(ctx, model.RoleAuditor, "")
			perm, _ := a.Catalog.CreatePermission(ctx, "ver_auditoria", "")
			Expect(a.Catalog.Grant(ctx, role.ID, perm.ID)).To(Succeed())

			Expect(a.Catalog.DeleteRole(ctx, role.ID)).To(Succeed())

			roles, err := a.Catalog.ListRoles(ctx)
			Expect(err).To(BeNil())
			Expect(roles).To(BeEmpty())
			perms, err := a.Catalog.ListPermissions(ctx, "")
			Expect(err).To(BeNil())
			Expect(perms).To(HaveLen(1))
			Expect(perms[0].RoleCount).To(BeZero())
		})
	})

	Describe("permission cache", func() {
		It("should see a new grant through the middleware cache", func() {
			role, _ := a.Catalog.CreateRole(ctx, model.RoleAuditor, "")
			perm, _ := a.Catalog.CreatePermission(ctx, "ver_auditoria", "")

			names, err := a.Auth.PermissionsForRole(ctx, model.RoleAuditor)
			Expect(err).To(BeNil())
			Expect(names).To(BeEmpty())

			Expect(a.Catalog.Grant(ctx, role.ID, perm.ID)).To(Succeed())
			names, err = a.Auth.PermissionsForRole(ctx, model.RoleAuditor)
			Expect(err).To(BeNil())
			Expect(names).To(ConsistOf("ver_auditoria"))
		})

		It("should notify changes made inside an outer transaction only after it commits", func() {
			var changed []model.RoleName
			tm := repository.NewTransactionManager(db)
			catalog := service.NewCatalogService(tm, repository.NewRoleRepository(db), repository.NewPermissionRepository(db),
				a.Audit, func(role model.RoleName) { changed = append(changed, role) })
			role, _ := catalog.CreateRole(ctx, model.RoleAuditor, "")
			perm, _ := catalog.CreatePermission(ctx, "ver_auditoria", "")

			err := tm.RunInTx(ctx, func(txCtx context.Context) error {
				Expect(catalog.Grant(txCtx, role.ID, perm.ID)).To(Succeed())
				Expect(changed).To(BeEmpty())
				return nil
			})
			Expect(err).To(BeNil())
			Expect(changed).To(Equal([]model.RoleName{model.RoleAuditor}))

			changed = nil
			boom := errors.New("boom")
			err = tm.RunInTx(ctx, func(txCtx context.Context) error {
				Expect(catalog.Revoke(txCtx, role.ID, perm.ID)).To(Succeed())
				return boom
			})
			Expect(err).To(Equal(boom))
			Expect(changed).To(BeEmpty())
		})
	})
})
