package service_test

import (
	"context"
	"sync"
	"time"

	"banco/internal/app"
	"banco/internal/bizerror"
	"banco/internal/model"
	"banco/internal/repository"
	"banco/internal/security"
	"banco/internal/service"
	"banco/internal/testinfra"
	"banco/pkg/pagination"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []service.SecurityEvent
}

func (p *recordingPublisher) Publish(event service.SecurityEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, 0, len(p.events))
	for _, e := range p.events {
		types = append(types, e.Type)
	}
	return types
}

// lockoutBeforeReset lets the wrong-password failures of another login land between the
// password check and the counter reset
type lockoutBeforeReset struct {
	repository.SystemUserRepository
}

func (r lockoutBeforeReset) ResetFailedAttempts(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	for i := 0; i < model.LockoutThreshold; i++ {
		if _, err := r.SystemUserRepository.IncrementFailedAttempts(ctx, id); err != nil {
			return false, err
		}
	}
	return r.SystemUserRepository.ResetFailedAttempts(ctx, id, at)
}

var _ = Describe("AuthService", func() {
	var (
		a      *app.App
		db     *gorm.DB
		ctx    context.Context
		users  repository.SystemUserRepository
		events *recordingPublisher
		authn  service.AuthService
		jdoe   *model.SystemUser
	)

	BeforeEach(func() {
		a, db = testinfra.StartTestApp()
		ctx = context.Background()
		Expect(a.Seed(ctx)).To(Succeed())

		users = repository.NewSystemUserRepository(db)
		events = &recordingPublisher{}
		authn = service.NewAuthService(
			users,
			security.NewBcryptHasher(bcrypt.MinCost),
			security.NewTokenIssuer("test-secret", time.Hour),
			a.Audit,
			events,
		)
		jdoe = testinfra.CreateUser(a.Users, a.Catalog, "jdoe", "Secreto123", model.RoleCashier)
	})

	AfterEach(func() {
		testinfra.StopTestDatabase(db)
	})

	reload := func() *model.SystemUser {
		u, err := users.GetByID(ctx, jdoe.ID)
		Expect(err).To(BeNil())
		return u
	}

	It("should authenticate with the right password and reset the counter", func() {
		_, err := authn.Authenticate(ctx, "jdoe", "wrong")
		Expect(err).To(MatchError(bizerror.ErrAuthenticationFailed))
		Expect(reload().FailedAttempts).To(Equal(1))

		before := time.Now()
		user, err := authn.Authenticate(ctx, "jdoe", "Secreto123")
		Expect(err).To(BeNil())
		Expect(user.ID).To(Equal(jdoe.ID))

		stored := reload()
		Expect(stored.FailedAttempts).To(BeZero())
		Expect(stored.LastAccessAt).ToNot(BeNil())
		Expect(*stored.LastAccessAt).To(BeTemporally(">=", before.Add(-time.Second)))
	})

	It("should block after three wrong passwords and then refuse the right one", func() {
		for i := 0; i < model.LockoutThreshold; i++ {
			_, err := authn.Authenticate(ctx, "jdoe", "wrong")
			Expect(err).To(Equal(bizerror.ErrInvalidCredentials))
		}

		stored := reload()
		Expect(stored.Status).To(Equal(model.StatusBlocked))
		Expect(stored.FailedAttempts).To(Equal(3))
		Expect(events.Types()).To(Equal([]string{service.EventAccountBlocked}))

		_, err := authn.Authenticate(ctx, "jdoe", "Secreto123")
		Expect(err).To(Equal(bizerror.ErrAccountBlocked))
		Expect(err).To(MatchError(bizerror.ErrAuthenticationFailed))

		stored = reload()
		Expect(stored.FailedAttempts).To(Equal(3))
		Expect(stored.LastAccessAt).To(BeNil())
	})

	It("should not count wrong passwords of a blocked account", func() {
		for i := 0; i < model.LockoutThreshold; i++ {
			_, _ = authn.Authenticate(ctx, "jdoe", "wrong")
		}
		_, err := authn.Authenticate(ctx, "jdoe", "wrong")
		Expect(err).To(Equal(bizerror.ErrAccountBlocked))
		Expect(reload().FailedAttempts).To(Equal(3))
		Expect(events.Types()).To(HaveLen(1))
	})

	It("should refuse the right password when a concurrent failure blocks the account first", func() {
		racing := service.NewAuthService(
			lockoutBeforeReset{users},
			security.NewBcryptHasher(bcrypt.MinCost),
			security.NewTokenIssuer("test-secret", time.Hour),
			a.Audit,
			events,
		)

		user, err := racing.Authenticate(ctx, "jdoe", "Secreto123")
		Expect(err).To(Equal(bizerror.ErrAccountBlocked))
		Expect(user).To(BeNil())

		stored := reload()
		Expect(stored.Status).To(Equal(model.StatusBlocked))
		Expect(stored.FailedAttempts).To(Equal(model.LockoutThreshold))
		Expect(stored.LastAccessAt).To(BeNil())
	})

	It("should fail for unknown users without side effects on existing ones", func() {
		_, err := authn.Authenticate(ctx, "ghost", "whatever")
		Expect(err).To(Equal(bizerror.ErrUnknownPrincipal))
		Expect(err).To(MatchError(bizerror.ErrAuthenticationFailed))
		Expect(reload().FailedAttempts).To(BeZero())
	})

	It("should match usernames exactly", func() {
		_, err := authn.Authenticate(ctx, "JDOE", "Secreto123")
		Expect(err).To(Equal(bizerror.ErrUnknownPrincipal))
	})

	It("should block exactly once under concurrent failures", func() {
		var wg sync.WaitGroup
		for i := 0; i < 6; i++ {
			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				_, err := authn.Authenticate(ctx, "jdoe", "wrong")
				Expect(err).To(MatchError(bizerror.ErrAuthenticationFailed))
			}()
		}
		wg.Wait()

		stored := reload()
		Expect(stored.Status).To(Equal(model.StatusBlocked))
		Expect(stored.FailedAttempts).To(Equal(3))
		Expect(events.Types()).To(Equal([]string{service.EventAccountBlocked}))
	})

	It("should let inactive users authenticate but refuse them a session", func() {
		_, err := a.Users.SetStatus(ctx, jdoe.ID, model.StatusInactive)
		Expect(err).To(BeNil())

		user, err := authn.Authenticate(ctx, "jdoe", "Secreto123")
		Expect(err).To(BeNil())
		Expect(user.Status).To(Equal(model.StatusInactive))

		_, err = authn.Login(ctx, service.LoginRequest{Username: "jdoe", Password: "Secreto123"})
		Expect(err).To(Equal(bizerror.ErrAccountInactive))
	})

	It("should issue a token that carries the role", func() {
		res, err := authn.Login(ctx, service.LoginRequest{Username: "jdoe", Password: "Secreto123"})
		Expect(err).To(BeNil())
		Expect(res.User.Role).To(Equal(string(model.RoleCashier)))

		claims, err := security.NewTokenIssuer("test-secret", time.Hour).Parse(res.Token)
		Expect(err).To(BeNil())
		Expect(claims.Kind).To(Equal(security.KindSystemUser))
		Expect(claims.Role).To(Equal(string(model.RoleCashier)))
		id, err := claims.UserID()
		Expect(err).To(BeNil())
		Expect(id).To(Equal(jdoe.ID))
	})

	It("should audit the lockout", func() {
		for i := 0; i < model.LockoutThreshold; i++ {
			_, _ = authn.Authenticate(ctx, "jdoe", "wrong")
		}
		logs, total, err := a.Audit.GetAuditLogs(ctx, repository.AuditFilter{Action: model.ActionAccountBlocked}, pagination.New(1, 10))
		Expect(err).To(BeNil())
		Expect(total).To(Equal(int64(1)))
		Expect(logs[0].EntityID).To(Equal(jdoe.ID.String()))
	})
})
