package handler_test

import (
	"context"
	"encoding/json"
	"net/http"

	"banco/internal/app"
	"banco/internal/model"
	"banco/internal/testinfra"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

var _ = Describe("RoleHandler", func() {
	var (
		a      *app.App
		db     *gorm.DB
		router *gin.Engine
	)

	BeforeEach(func() {
		a, db = testinfra.StartTestApp()
		Expect(a.Seed(context.Background())).To(Succeed())
		router = a.Router()
		testinfra.CreateUser(a.Users, a.Catalog, "jdoe", "Secreto123", model.RoleCashier)
		testinfra.CreateUser(a.Users, a.Catalog, "root", "Secreto123", model.RoleAdministrator)
	})

	AfterEach(func() {
		testinfra.StopTestDatabase(db)
	})

	It("should forbid roles without gestionar_roles", func() {
		token := login(router, "jdoe", "Secreto123")
		status, body, _ := testinfra.ExecuteRequest(authorized(http.MethodGet, "/api/roles", token), router)
		Expect(status).To(Equal(http.StatusForbidden))
		Expect(body).To(ContainSubstring(`"security.forbidden"`))
	})

	It("should list roles for administrators", func() {
		token := login(router, "root", "Secreto123")
		status, body, _ := testinfra.ExecuteRequest(authorized(http.MethodGet, "/api/roles", token), router)
		Expect(status).To(Equal(http.StatusOK))

		var res struct {
			Data []struct {
				Name      string `json:"name"`
				UserCount int64  `json:"user_count"`
			} `json:"data"`
		}
		Expect(json.Unmarshal([]byte(body), &res)).To(Succeed())
		Expect(res.Data).To(HaveLen(len(model.RoleNames())))
	})

	It("should refuse to delete a role in use", func() {
		token := login(router, "root", "Secreto123")
		role, _, err := a.Catalog.EnsureRole(context.Background(), model.RoleCashier, "")
		Expect(err).To(BeNil())

		status, body, _ := testinfra.ExecuteRequest(authorized(http.MethodDelete, "/api/roles/"+role.ID.String(), token), router)
		Expect(status).To(Equal(http.StatusConflict))
		Expect(body).To(ContainSubstring(`"common.protected_reference"`))
	})

	It("should open access once the permission is granted", func() {
		rootToken := login(router, "root", "Secreto123")
		jdoeToken := login(router, "jdoe", "Secreto123")

		status, _, _ := testinfra.ExecuteRequest(authorized(http.MethodGet, "/api/audit-logs", jdoeToken), router)
		Expect(status).To(Equal(http.StatusForbidden))

		role, _, _ := a.Catalog.EnsureRole(context.Background(), model.RoleCashier, "")
		perm, _, _ := a.Catalog.EnsurePermission(context.Background(), "ver_auditoria", "")
		req := jsonRequest(http.MethodPost, "/api/roles/"+role.ID.String()+"/permissions", rootToken,
			`{"permission_id":"`+perm.ID.String()+`"}`)
		status, _, _ = testinfra.ExecuteRequest(req, router)
		Expect(status).To(BeNumerically("<", 300))

		status, _, _ = testinfra.ExecuteRequest(authorized(http.MethodGet, "/api/audit-logs", jdoeToken), router)
		Expect(status).To(Equal(http.StatusOK))
	})
})
