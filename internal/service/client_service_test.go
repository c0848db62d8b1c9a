package service_test

import (
	"context"

	"banco/internal/app"
	"banco/internal/bizerror"
	"banco/internal/model"
	"banco/internal/service"
	"banco/internal/testinfra"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

var _ = Describe("ClientService", func() {
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

	It("should require both names", func() {
		_, err := a.Clients.Create(ctx, service.CreateClientRequest{Nombres: " ", Apellidos: "Perez"})
		var badParam *bizerror.ErrBadParam
		Expect(err).To(BeAssignableToTypeOf(badParam))
	})

	It("should clear the reference of linked users on delete", func() {
		client, err := a.Clients.Create(ctx, service.CreateClientRequest{Nombres: "Juan", Apellidos: "Perez"})
		Expect(err).To(BeNil())
		jdoe := testinfra.CreateUser(a.Users, a.Catalog, "jdoe", "Secreto123", model.RoleClient)
		_, err = a.Users.LinkClient(ctx, jdoe.ID, &client.ID)
		Expect(err).To(BeNil())

		Expect(a.Clients.Delete(ctx, client.ID)).To(Succeed())

		stored, err := a.Users.GetUser(ctx, jdoe.ID)
		Expect(err).To(BeNil())
		Expect(stored.ClientID).To(BeNil())
		Expect(stored.Status).To(Equal(model.StatusActive))

		_, err = a.Clients.Get(ctx, client.ID)
		Expect(err).To(Equal(bizerror.ErrNotFound))
	})

	It("should report unknown clients", func() {
		client, _ := a.Clients.Create(ctx, service.CreateClientRequest{Nombres: "Ana", Apellidos: "Gomez"})
		Expect(a.Clients.Delete(ctx, client.ID)).To(Succeed())
		Expect(a.Clients.Delete(ctx, client.ID)).To(Equal(bizerror.ErrNotFound))
	})
})
