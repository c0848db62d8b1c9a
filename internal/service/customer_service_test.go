package service_test

import (
	"context"
	"errors"
	"regexp"
	"time"

	"banco/internal/app"
	"banco/internal/bizerror"
	"banco/internal/model"
	"banco/internal/repository"
	"banco/internal/security"
	"banco/internal/service"
	"banco/internal/testinfra"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// deactivateAfterRead switches the customer off right after the service has loaded it
type deactivateAfterRead struct {
	repository.CustomerRepository
	db *gorm.DB
}

func (r deactivateAfterRead) GetByID(ctx context.Context, id uuid.UUID) (*model.Customer, error) {
	customer, err := r.CustomerRepository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	err = r.db.Model(&model.Customer{}).Where("id = ?", id).UpdateColumn("is_active", false).Error
	return customer, err
}

var _ = Describe("CustomerService", func() {
	var (
		a   *app.App
		db  *gorm.DB
		ctx context.Context
		req service.RegisterCustomerRequest
	)

	BeforeEach(func() {
		a, db = testinfra.StartTestApp()
		ctx = context.Background()
		req = service.RegisterCustomerRequest{
			Username:        "jperez",
			Email:           "Juan.Perez@Example.com",
			FirstName:       "Juan",
			LastName:        "Perez",
			Phone:           "+595981123456",
			BirthDate:       "1990-05-17",
			Password:        "Secreto123",
			PasswordConfirm: "Secreto123",
			TermsAccepted:   true,
		}
	})

	AfterEach(func() {
		testinfra.StopTestDatabase(db)
	})

	Describe("Register", func() {
		It("should create a client with exactly one profile and a client number", func() {
			customer, err := a.Customers.Register(ctx, req)
			Expect(err).To(BeNil())
			Expect(customer.Role).To(Equal(model.CustomerRoleClient))
			Expect(customer.Email).To(Equal("juan.perez@example.com"))
			Expect(customer.IsStaff).To(BeFalse())

			count, err := repository.NewCustomerRepository(db).CountProfiles(ctx, customer.ID)
			Expect(err).To(BeNil())
			Expect(count).To(Equal(int64(1)))

			Expect(customer.Profile).ToNot(BeNil())
			Expect(customer.Profile.ClientNumber).ToNot(BeNil())
			Expect(*customer.Profile.ClientNumber).To(MatchRegexp(`^\d{10}$`))
			Expect(customer.Profile.NotifyEmail).To(BeTrue())
		})

		It("should validate the confirmation, terms and phone", func() {
			bad := req
			bad.PasswordConfirm = "otra"
			_, err := a.Customers.Register(ctx, bad)
			Expect(err).To(HaveOccurred())

			bad = req
			bad.TermsAccepted = false
			_, err = a.Customers.Register(ctx, bad)
			Expect(err).To(HaveOccurred())

			bad = req
			bad.Phone = "12-34"
			_, err = a.Customers.Register(ctx, bad)
			Expect(err).To(HaveOccurred())
		})

		It("should refuse a taken email or username without creating anything", func() {
			_, err := a.Customers.Register(ctx, req)
			Expect(err).To(BeNil())

			again := req
			again.Username = "otro"
			_, err = a.Customers.Register(ctx, again)
			Expect(errors.Is(err, bizerror.ErrDuplicateName)).To(BeTrue())

			again = req
			again.Email = "otro@example.com"
			_, err = a.Customers.Register(ctx, again)
			Expect(errors.Is(err, bizerror.ErrDuplicateName)).To(BeTrue())
		})
	})

	Describe("Login", func() {
		BeforeEach(func() {
			_, err := a.Customers.Register(ctx, req)
			Expect(err).To(BeNil())
		})

		It("should accept the email or the username", func() {
			byEmail, err := a.Customers.Login(ctx, service.CustomerLoginRequest{Login: "juan.perez@example.com", Password: "Secreto123"})
			Expect(err).To(BeNil())
			Expect(byEmail.Customer.Username).To(Equal("jperez"))
			Expect(byEmail.Customer.LastAccessAt).ToNot(BeNil())

			byUsername, err := a.Customers.Login(ctx, service.CustomerLoginRequest{Login: "jperez", Password: "Secreto123"})
			Expect(err).To(BeNil())
			Expect(byUsername.Customer.ID).To(Equal(byEmail.Customer.ID))
			Expect(regexp.MustCompile(`^[\w-]+\.[\w-]+\.[\w-]+$`).MatchString(byUsername.Token)).To(BeTrue())
		})

		It("should fail generically for wrong passwords and unknown logins", func() {
			_, err := a.Customers.Login(ctx, service.CustomerLoginRequest{Login: "jperez", Password: "wrong"})
			Expect(err).To(MatchError(bizerror.ErrAuthenticationFailed))

			_, err = a.Customers.Login(ctx, service.CustomerLoginRequest{Login: "nadie", Password: "Secreto123"})
			Expect(err).To(MatchError(bizerror.ErrAuthenticationFailed))
		})

		It("should refuse inactive customers", func() {
			Expect(db.Model(&model.Customer{}).Where("username = ?", "jperez").UpdateColumn("is_active", false).Error).To(Succeed())

			_, err := a.Customers.Login(ctx, service.CustomerLoginRequest{Login: "jperez", Password: "Secreto123"})
			Expect(err).To(Equal(bizerror.ErrAccountInactive))
		})
	})

	Describe("UpdateProfile", func() {
		It("should apply only the given fields", func() {
			customer, err := a.Customers.Register(ctx, req)
			Expect(err).To(BeNil())

			income := decimal.RequireFromString("2500000.456")
			sms := true
			profile, err := a.Customers.UpdateProfile(ctx, customer.ID, service.UpdateProfileRequest{
				MonthlyIncome: &income,
				NotifySMS:     &sms,
			})
			Expect(err).To(BeNil())
			Expect(profile.MonthlyIncome.Decimal.String()).To(Equal("2500000.46"))
			Expect(profile.NotifySMS).To(BeTrue())
			Expect(profile.NotifyEmail).To(BeTrue())
			Expect(profile.ClientNumber).To(Equal(customer.Profile.ClientNumber))

			negative := decimal.NewFromInt(-1)
			_, err = a.Customers.UpdateProfile(ctx, customer.ID, service.UpdateProfileRequest{MonthlyIncome: &negative})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("UpdateAccount", func() {
		It("should write the contact fields without undoing a concurrent deactivation", func() {
			customer, err := a.Customers.Register(ctx, req)
			Expect(err).To(BeNil())

			deactivating := service.NewCustomerService(
				repository.NewTransactionManager(db),
				deactivateAfterRead{repository.NewCustomerRepository(db), db},
				security.NewBcryptHasher(bcrypt.MinCost),
				security.NewTokenIssuer("test-secret", time.Hour),
			)
			phone := "+595971000111"
			updated, err := deactivating.UpdateAccount(ctx, customer.ID, service.UpdateAccountRequest{Phone: &phone})
			Expect(err).To(BeNil())
			Expect(updated.Phone).To(Equal(phone))

			stored, err := a.Customers.GetCustomer(ctx, customer.ID)
			Expect(err).To(BeNil())
			Expect(stored.Phone).To(Equal(phone))
			Expect(stored.FirstName).To(Equal("Juan"))
			Expect(stored.IsActive).To(BeFalse())
		})
	})

	Describe("CreateAdmin", func() {
		It("should create a staff administrator without client number", func() {
			admin, err := a.Customers.CreateAdmin(ctx, service.CreateAdminRequest{
				Email: "admin@banco.com", Username: "admin", Password: "Secreto123", FirstName: "Ada", LastName: "Admin",
			})
			Expect(err).To(BeNil())
			Expect(admin.IsStaff).To(BeTrue())
			Expect(admin.IsSuperuser).To(BeTrue())
			Expect(admin.Profile.ClientNumber).To(BeNil())

			_, err = a.Customers.CreateAdmin(ctx, service.CreateAdminRequest{Email: "admin@banco.com", Username: "otro", Password: "Secreto123"})
			Expect(errors.Is(err, bizerror.ErrDuplicateName)).To(BeTrue())
		})
	})
})
