package handler

import (
	"banco/internal/middleware"
	"banco/internal/websocket"

	"github.com/gin-gonic/gin"
)

type SecurityEventsHandler struct {
	hub  *websocket.Hub
	auth *middleware.Auth
}

func NewSecurityEventsHandler(hub *websocket.Hub, auth *middleware.Auth) *SecurityEventsHandler {
	return &SecurityEventsHandler{hub: hub, auth: auth}
}

// RegisterRoutes mounts the lockout feed; browsers pass the token as ?token= or through the cookie
func (h *SecurityEventsHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/security-events", h.auth.RequirePermission(PermissionViewAudit), h.Serve)
}

func (h *SecurityEventsHandler) Serve(c *gin.Context) {
	websocket.ServeWs(h.hub, c)
}
