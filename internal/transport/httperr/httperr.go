// Package httperr maps service errors onto HTTP responses.
package httperr

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainassignment "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/domain/assignment"
	domaingroup "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/domain/group"
	domaintask "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/domain/task"
	"github.com/Eeshan-Vaghjiani/workflow-sub002/internal/domain/workload"
	groupsvc "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/service/group"
	tasksvc "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/service/task"
)

// Status returns the HTTP status and public message for err.
func Status(err error) (int, string) {
	switch {
	case errors.Is(err, domainassignment.ErrNotFound),
		errors.Is(err, domaingroup.ErrNotFound),
		errors.Is(err, domaintask.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, domaingroup.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, workload.ErrNoMembers):
		return http.StatusUnprocessableEntity, "no group members to distribute tasks to"
	case errors.Is(err, tasksvc.ErrInvalidTask),
		errors.Is(err, groupsvc.ErrInvalidInput),
		errors.Is(err, domaingroup.ErrNotMember):
		return http.StatusBadRequest, "invalid request"
	case errors.Is(err, tasksvc.ErrInvalidTransition):
		return http.StatusConflict, "invalid status transition"
	case errors.Is(err, domaintask.ErrStatusConflict):
		return http.StatusConflict, "task status changed concurrently"
	}
	return http.StatusInternalServerError, "internal error"
}

// Abort writes the failure envelope and stops the handler chain.
func Abort(c *gin.Context, err error) {
	status, msg := Status(err)
	c.AbortWithStatusJSON(status, gin.H{
		"success":       false,
		"error":         msg,
		"error_details": err.Error(),
	})
}

// BadRequest rejects malformed input before any service call.
func BadRequest(c *gin.Context, details string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"success":       false,
		"error":         "invalid request",
		"error_details": details,
	})
}
