package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// JSON writes payload with the given status. Monitor handlers return
// snapshots, reports and health as JSON only.
func JSON(c *gin.Context, status int, payload any) {
	c.JSON(status, payload)
}

// OK writes a 200 response.
func OK(c *gin.Context, payload any) {
	JSON(c, http.StatusOK, payload)
}

// Created writes a 201 response for a stored snapshot or archived report.
func Created(c *gin.Context, payload any) {
	JSON(c, http.StatusCreated, payload)
}
