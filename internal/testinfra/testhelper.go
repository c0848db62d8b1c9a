package testinfra

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"

	"banco/internal/model"
	"banco/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	. "github.com/onsi/gomega"
)

// ExecuteRequest runs req against router and returns status, body and headers
func ExecuteRequest(req *http.Request, router *gin.Engine) (int, string, http.Header) {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	body := ""
	if w.Body != nil {
		b, err := io.ReadAll(w.Body)
		if err == nil {
			body = string(b)
		}
	}
	return w.Code, body, w.Header()
}

// CreateUser creates an active system user holding role, seeding the role when missing
func CreateUser(users service.SystemUserService, catalog service.CatalogService, username, password string, role model.RoleName) *model.SystemUser {
	r, _, err := catalog.EnsureRole(context.Background(), role, role.Label())
	Expect(err).To(BeNil())

	user, err := users.CreateUser(context.Background(), service.CreateSystemUserRequest{
		Username: username,
		Password: password,
		RoleID:   r.ID.String(),
	})
	Expect(err).To(BeNil())
	Expect(user.ID).ToNot(Equal(uuid.Nil))
	return user
}
