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

var _ = Describe("UserHandler", func() {
	var (
		a      *app.App
		db     *gorm.DB
		router *gin.Engine
		token  string
	)

	BeforeEach(func() {
		a, db = testinfra.StartTestApp()
		Expect(a.Seed(context.Background())).To(Succeed())
		router = a.Router()
		testinfra.CreateUser(a.Users, a.Catalog, "root", "Secreto123", model.RoleAdministrator)
		token = login(router, "root", "Secreto123")
	})

	AfterEach(func() {
		testinfra.StopTestDatabase(db)
	})

	It("should create a user and hide the password hash", func() {
		role, _, _ := a.Catalog.EnsureRole(context.Background(), model.RoleAuditor, "")
		req := jsonRequest(http.MethodPost, "/api/system-users", token,
			`{"username":"auditora","password":"Secreto123","role_id":"`+role.ID.String()+`"}`)

		status, body, _ := testinfra.ExecuteRequest(req, router)
		Expect(status).To(Equal(http.StatusCreated))
		Expect(body).ToNot(ContainSubstring(`"password"`))
		Expect(body).To(ContainSubstring(`"role_label":"Auditor"`))
		Expect(body).To(ContainSubstring(`"is_staff_access":false`))
	})

	It("should page the list", func() {
		testinfra.CreateUser(a.Users, a.Catalog, "jdoe", "Secreto123", model.RoleCashier)

		status, body, _ := testinfra.ExecuteRequest(authorized(http.MethodGet, "/api/system-users?role=cajero&page=1&limit=5", token), router)
		Expect(status).To(Equal(http.StatusOK))

		var res struct {
			Data struct {
				Items []map[string]interface{} `json:"items"`
				Total int64                    `json:"total"`
				Limit int                      `json:"limit"`
			} `json:"data"`
		}
		Expect(json.Unmarshal([]byte(body), &res)).To(Succeed())
		Expect(res.Data.Total).To(Equal(int64(1)))
		Expect(res.Data.Items[0]["username"]).To(Equal("jdoe"))
		Expect(res.Data.Limit).To(Equal(5))
	})

	It("should unblock a locked out user", func() {
		jdoe := testinfra.CreateUser(a.Users, a.Catalog, "jdoe", "Secreto123", model.RoleCashier)
		for i := 0; i < model.LockoutThreshold; i++ {
			testinfra.ExecuteRequest(loginRequest("jdoe", "wrong"), router)
		}

		status, body, _ := testinfra.ExecuteRequest(authorized(http.MethodPost, "/api/system-users/"+jdoe.ID.String()+"/unblock", token), router)
		Expect(status).To(Equal(http.StatusOK))
		Expect(body).To(ContainSubstring(`"status":"activo"`))
		Expect(body).To(ContainSubstring(`"failed_attempts":0`))

		login(router, "jdoe", "Secreto123")
	})

	It("should reject invalid ids and statuses", func() {
		status, _, _ := testinfra.ExecuteRequest(authorized(http.MethodGet, "/api/system-users/nope", token), router)
		Expect(status).To(Equal(http.StatusBadRequest))

		jdoe := testinfra.CreateUser(a.Users, a.Catalog, "jdoe", "Secreto123", model.RoleCashier)
		req := jsonRequest(http.MethodPut, "/api/system-users/"+jdoe.ID.String()+"/status", token, `{"status":"suspendido"}`)
		status, body, _ := testinfra.ExecuteRequest(req, router)
		Expect(status).To(Equal(http.StatusBadRequest))
		Expect(body).To(ContainSubstring(`"users.invalid_status"`))
	})
})
