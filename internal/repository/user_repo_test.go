package repository_test

import (
	"context"
	"time"

	"banco/internal/bizerror"
	"banco/internal/model"
	"banco/internal/repository"
	"banco/internal/testinfra"
	"banco/pkg/pagination"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

var _ = Describe("SystemUserRepository", func() {
	var (
		db     *gorm.DB
		ctx    context.Context
		repo   repository.SystemUserRepository
		roles  repository.RoleRepository
		admin  *model.Role
		teller *model.Role
	)

	BeforeEach(func() {
		db = testinfra.StartTestDatabase()
		ctx = context.Background()
		repo = repository.NewSystemUserRepository(db)
		roles = repository.NewRoleRepository(db)

		admin = &model.Role{Name: model.RoleAdministrator}
		teller = &model.Role{Name: model.RoleCashier}
		Expect(roles.Create(ctx, admin)).To(Succeed())
		Expect(roles.Create(ctx, teller)).To(Succeed())
	})

	AfterEach(func() {
		testinfra.StopTestDatabase(db)
	})

	newUser := func(username string, role *model.Role) *model.SystemUser {
		u := &model.SystemUser{Username: username, Password: "hash", RoleID: role.ID, Status: model.StatusActive}
		Expect(repo.Create(ctx, u)).To(Succeed())
		return u
	}

	Describe("Create", func() {
		It("should derive the access flags from the role, whatever the caller set", func() {
			u := &model.SystemUser{Username: "jdoe", Password: "hash", RoleID: teller.ID, Status: model.StatusActive,
				IsStaffAccess: true, IsSuperuserAccess: true}
			Expect(repo.Create(ctx, u)).To(Succeed())

			loaded, err := repo.GetByID(ctx, u.ID)
			Expect(err).To(BeNil())
			Expect(loaded.IsStaffAccess).To(BeFalse())
			Expect(loaded.IsSuperuserAccess).To(BeFalse())

			root := newUser("root", admin)
			loaded, err = repo.GetByID(ctx, root.ID)
			Expect(err).To(BeNil())
			Expect(loaded.IsStaffAccess).To(BeTrue())
			Expect(loaded.IsSuperuserAccess).To(BeTrue())
		})

		It("should stamp created_at on first persist", func() {
			past := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
			u := &model.SystemUser{Username: "jdoe", Password: "hash", RoleID: teller.ID, Status: model.StatusActive, CreatedAt: past}
			Expect(repo.Create(ctx, u)).To(Succeed())
			Expect(u.CreatedAt).To(BeTemporally("~", time.Now(), 5*time.Second))
		})

		It("should reject a duplicate username", func() {
			newUser("jdoe", teller)
			err := repo.Create(ctx, &model.SystemUser{Username: "jdoe", Password: "x", RoleID: teller.ID, Status: model.StatusActive})
			Expect(err).To(MatchError(bizerror.ErrDuplicateName))
		})

		It("should refuse a user without role", func() {
			err := repo.Create(ctx, &model.SystemUser{Username: "nobody", Password: "x", Status: model.StatusActive})
			Expect(err).To(MatchError(model.ErrRoleRequired))
		})
	})

	Describe("UpdateRole", func() {
		It("should re-derive the flags after a role change", func() {
			u := newUser("jdoe", teller)
			u.RoleID = admin.ID
			u.Role = nil
			Expect(repo.UpdateRole(ctx, u)).To(Succeed())

			loaded, err := repo.GetByID(ctx, u.ID)
			Expect(err).To(BeNil())
			Expect(loaded.Role.Name).To(Equal(model.RoleAdministrator))
			Expect(loaded.IsStaffAccess).To(BeTrue())
			Expect(loaded.IsSuperuserAccess).To(BeTrue())

			loaded.RoleID = teller.ID
			loaded.Role = teller
			Expect(repo.UpdateRole(ctx, loaded)).To(Succeed())
			again, err := repo.GetByID(ctx, u.ID)
			Expect(err).To(BeNil())
			Expect(again.IsStaffAccess).To(BeFalse())
			Expect(again.IsSuperuserAccess).To(BeFalse())
		})

		It("should not write back a stale status or counter", func() {
			u := newUser("jdoe", teller)
			stale, err := repo.GetByID(ctx, u.ID)
			Expect(err).To(BeNil())
			for i := 0; i < model.LockoutThreshold; i++ {
				_, _ = repo.IncrementFailedAttempts(ctx, u.ID)
			}

			stale.RoleID = admin.ID
			stale.Role = admin
			Expect(repo.UpdateRole(ctx, stale)).To(Succeed())

			loaded, err := repo.GetByID(ctx, u.ID)
			Expect(err).To(BeNil())
			Expect(loaded.Role.Name).To(Equal(model.RoleAdministrator))
			Expect(loaded.Status).To(Equal(model.StatusBlocked))
			Expect(loaded.FailedAttempts).To(Equal(model.LockoutThreshold))
		})

		It("should report unknown users", func() {
			ghost := &model.SystemUser{ID: uuid.New(), Username: "ghost", RoleID: teller.ID}
			Expect(repo.UpdateRole(ctx, ghost)).To(Equal(bizerror.ErrNotFound))
		})
	})

	Describe("GetByUsername", func() {
		It("should load the role with the user", func() {
			newUser("jdoe", teller)
			u, err := repo.GetByUsername(ctx, "jdoe")
			Expect(err).To(BeNil())
			Expect(u.Role).ToNot(BeNil())
			Expect(u.Role.Name).To(Equal(model.RoleCashier))
		})

		It("should return ErrNotFound for unknown usernames", func() {
			_, err := repo.GetByUsername(ctx, "ghost")
			Expect(err).To(Equal(bizerror.ErrNotFound))
		})
	})

	Describe("IncrementFailedAttempts", func() {
		It("should block the account at the third failure", func() {
			u := newUser("jdoe", teller)

			for i := 1; i <= model.LockoutThreshold; i++ {
				blocked, err := repo.IncrementFailedAttempts(ctx, u.ID)
				Expect(err).To(BeNil())
				Expect(blocked).To(Equal(i == model.LockoutThreshold))

				loaded, err := repo.GetByID(ctx, u.ID)
				Expect(err).To(BeNil())
				Expect(loaded.FailedAttempts).To(Equal(i))
				if i < model.LockoutThreshold {
					Expect(loaded.Status).To(Equal(model.StatusActive))
				} else {
					Expect(loaded.Status).To(Equal(model.StatusBlocked))
				}
			}
		})

		It("should not touch a blocked account", func() {
			u := newUser("jdoe", teller)
			Expect(repo.UpdateColumns(ctx, u.ID, map[string]interface{}{
				"status": string(model.StatusBlocked), "failed_attempts": 3,
			})).To(Succeed())

			blocked, err := repo.IncrementFailedAttempts(ctx, u.ID)
			Expect(err).To(BeNil())
			Expect(blocked).To(BeFalse())

			loaded, _ := repo.GetByID(ctx, u.ID)
			Expect(loaded.FailedAttempts).To(Equal(3))
		})

		It("should report nothing for unknown users", func() {
			blocked, err := repo.IncrementFailedAttempts(ctx, uuid.New())
			Expect(err).To(BeNil())
			Expect(blocked).To(BeFalse())
		})

		It("should keep an inactive account inactive below the threshold", func() {
			u := newUser("jdoe", teller)
			Expect(repo.UpdateColumns(ctx, u.ID, map[string]interface{}{"status": string(model.StatusInactive)})).To(Succeed())

			_, err := repo.IncrementFailedAttempts(ctx, u.ID)
			Expect(err).To(BeNil())
			loaded, _ := repo.GetByID(ctx, u.ID)
			Expect(loaded.Status).To(Equal(model.StatusInactive))
			Expect(loaded.FailedAttempts).To(Equal(1))
		})
	})

	Describe("ResetFailedAttempts", func() {
		It("should clear the counter and stamp the access time", func() {
			u := newUser("jdoe", teller)
			_, _ = repo.IncrementFailedAttempts(ctx, u.ID)
			at := time.Now()

			reset, err := repo.ResetFailedAttempts(ctx, u.ID, at)
			Expect(err).To(BeNil())
			Expect(reset).To(BeTrue())
			loaded, _ := repo.GetByID(ctx, u.ID)
			Expect(loaded.FailedAttempts).To(BeZero())
			Expect(loaded.LastAccessAt).ToNot(BeNil())
			Expect(*loaded.LastAccessAt).To(BeTemporally("~", at, time.Second))
		})

		It("should leave a blocked account alone", func() {
			u := newUser("jdoe", teller)
			for i := 0; i < model.LockoutThreshold; i++ {
				_, _ = repo.IncrementFailedAttempts(ctx, u.ID)
			}

			reset, err := repo.ResetFailedAttempts(ctx, u.ID, time.Now())
			Expect(err).To(BeNil())
			Expect(reset).To(BeFalse())
			loaded, _ := repo.GetByID(ctx, u.ID)
			Expect(loaded.Status).To(Equal(model.StatusBlocked))
			Expect(loaded.FailedAttempts).To(Equal(model.LockoutThreshold))
			Expect(loaded.LastAccessAt).To(BeNil())
		})

		It("should report nothing for unknown users", func() {
			reset, err := repo.ResetFailedAttempts(ctx, uuid.New(), time.Now())
			Expect(err).To(BeNil())
			Expect(reset).To(BeFalse())
		})
	})

	Describe("List", func() {
		It("should filter by role, status and search", func() {
			newUser("ana", teller)
			newUser("bruno", teller)
			root := newUser("root", admin)
			Expect(repo.UpdateColumns(ctx, root.ID, map[string]interface{}{"status": string(model.StatusInactive)})).To(Succeed())

			users, total, err := repo.List(ctx, repository.UserFilter{Role: model.RoleCashier}, pagination.New(1, 10))
			Expect(err).To(BeNil())
			Expect(total).To(Equal(int64(2)))
			Expect(users).To(HaveLen(2))
			Expect(users[0].Role).ToNot(BeNil())

			_, total, err = repo.List(ctx, repository.UserFilter{Status: model.StatusInactive}, pagination.New(1, 10))
			Expect(err).To(BeNil())
			Expect(total).To(Equal(int64(1)))

			users, total, err = repo.List(ctx, repository.UserFilter{Search: "BRU"}, pagination.New(1, 10))
			Expect(err).To(BeNil())
			Expect(total).To(Equal(int64(1)))
			Expect(users[0].Username).To(Equal("bruno"))
		})

		It("should paginate", func() {
			for _, name := range []string{"a", "b", "c"} {
				newUser(name, teller)
			}
			users, total, err := repo.List(ctx, repository.UserFilter{}, pagination.New(2, 2))
			Expect(err).To(BeNil())
			Expect(total).To(Equal(int64(3)))
			Expect(users).To(HaveLen(1))
		})

		It("should treat LIKE wildcards literally", func() {
			newUser("ana", teller)
			_, total, err := repo.List(ctx, repository.UserFilter{Search: "%"}, pagination.New(1, 10))
			Expect(err).To(BeNil())
			Expect(total).To(BeZero())
		})
	})

	Describe("ClearClient", func() {
		It("should detach users from the client and keep them", func() {
			clients := repository.NewClientRepository(db)
			client := &model.Client{GivenName: "Juan", Surname: "Perez"}
			Expect(clients.Create(ctx, client)).To(Succeed())

			u := &model.SystemUser{Username: "jdoe", Password: "hash", RoleID: teller.ID, ClientID: &client.ID, Status: model.StatusActive}
			Expect(repo.Create(ctx, u)).To(Succeed())

			n, err := repo.ClearClient(ctx, client.ID)
			Expect(err).To(BeNil())
			Expect(n).To(Equal(int64(1)))

			loaded, err := repo.GetByID(ctx, u.ID)
			Expect(err).To(BeNil())
			Expect(loaded.ClientID).To(BeNil())
		})
	})
})
