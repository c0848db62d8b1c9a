package handler

import (
	"banco/internal/bizerror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// fail hands the error to bizerror.ErrorHandling, which renders it
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
}

func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		fail(c, &bizerror.ErrBadParam{Cause: err})
		return false
	}
	return true
}

func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		fail(c, bizerror.BadParam("invalid "+name))
		return uuid.Nil, false
	}
	return id, true
}
