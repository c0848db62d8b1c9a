package handler

import (
	"net/http"

	"banco/internal/middleware"
	"banco/internal/service"
	"banco/pkg/response"

	"github.com/gin-gonic/gin"
)

type CustomerHandler struct {
	customerService service.CustomerService
	auth            *middleware.Auth
}

func NewCustomerHandler(customerService service.CustomerService, auth *middleware.Auth) *CustomerHandler {
	return &CustomerHandler{customerService: customerService, auth: auth}
}

func (h *CustomerHandler) RegisterRoutes(router *gin.RouterGroup) {
	customers := router.Group("/customers")
	customers.POST("/register", h.Register)
	customers.POST("/login", h.Login)

	me := customers.Group("/me", h.auth.RequireCustomer())
	{
		me.GET("", h.Me)
		me.PUT("", h.UpdateAccount)
		me.PUT("/profile", h.UpdateProfile)
	}
}

// Register creates an online banking customer with its profile
// @Summary      Register customer
// @Tags         customers
// @Accept       json
// @Produce      json
// @Param        payload  body      service.RegisterCustomerRequest  true  "Registration"
// @Success      201      {object}  response.Response{data=service.CustomerResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/customers/register [post]
func (h *CustomerHandler) Register(c *gin.Context) {
	var req service.RegisterCustomerRequest
	if !bindJSON(c, &req) {
		return
	}
	customer, err := h.customerService.Register(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, service.ToCustomerResponse(customer)))
}

// Login accepts the email or the username
// @Summary      Customer login
// @Tags         customers
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CustomerLoginRequest  true  "Credentials"
// @Success      200      {object}  response.Response{data=service.CustomerTokenResponse}
// @Failure      401      {object}  response.Response
// @Router       /api/customers/login [post]
func (h *CustomerHandler) Login(c *gin.Context) {
	var req service.CustomerLoginRequest
	if !bindJSON(c, &req) {
		return
	}
	tokenRes, err := h.customerService.Login(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	h.auth.SetTokenCookie(c, tokenRes.Token)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, tokenRes))
}

// Me returns the signed in customer with the profile
// @Summary      Current customer
// @Tags         customers
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=service.CustomerResponse}
// @Router       /api/customers/me [get]
func (h *CustomerHandler) Me(c *gin.Context) {
	customer, err := h.customerService.GetCustomer(c.Request.Context(), middleware.CurrentCustomerID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, service.ToCustomerResponse(customer)))
}

// UpdateAccount edits the basic personal data
// @Summary      Update account
// @Tags         customers
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.UpdateAccountRequest  true  "Fields to change"
// @Success      200      {object}  response.Response{data=service.CustomerResponse}
// @Router       /api/customers/me [put]
func (h *CustomerHandler) UpdateAccount(c *gin.Context) {
	var req service.UpdateAccountRequest
	if !bindJSON(c, &req) {
		return
	}
	customer, err := h.customerService.UpdateAccount(c.Request.Context(), middleware.CurrentCustomerID(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, service.ToCustomerResponse(customer)))
}

// UpdateProfile edits the banking profile
// @Summary      Update profile
// @Tags         customers
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.UpdateProfileRequest  true  "Fields to change"
// @Success      200      {object}  response.Response{data=model.UserProfile}
// @Router       /api/customers/me/profile [put]
func (h *CustomerHandler) UpdateProfile(c *gin.Context) {
	var req service.UpdateProfileRequest
	if !bindJSON(c, &req) {
		return
	}
	profile, err := h.customerService.UpdateProfile(c.Request.Context(), middleware.CurrentCustomerID(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, profile))
}
