package task

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Eeshan-Vaghjiani/workflow-sub002/internal/auth"
	domaintask "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/domain/task"
	tasksvc "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/service/task"
	"github.com/Eeshan-Vaghjiani/workflow-sub002/internal/transport/httperr"
)

func Register(rg *gin.RouterGroup, svc *tasksvc.Service) {
	rg.GET("/assignments/:id/tasks", listTasks(svc))
	rg.POST("/assignments/:id/tasks", createTask(svc))
	rg.GET("/tasks/:id", getTask(svc))
	rg.PATCH("/tasks/:id/status", updateTaskStatus(svc))
	rg.PATCH("/tasks/:id/assignee", reassignTask(svc))
}

type createTaskReq struct {
	Title       string              `json:"title" binding:"required"`
	Description string              `json:"description"`
	EffortHours int                 `json:"effort_hours" binding:"required,gt=0"`
	Importance  *int                `json:"importance" binding:"omitempty,min=1,max=5"`
	Priority    domaintask.Priority `json:"priority"`
}

func createTask(svc *tasksvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		assignmentID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			httperr.BadRequest(c, "invalid assignment id")
			return
		}

		var req createTaskReq
		if err := c.ShouldBindJSON(&req); err != nil {
			httperr.BadRequest(c, err.Error())
			return
		}
		user, ok := auth.RequireUser(c)
		if !ok {
			return
		}

		t, err := svc.Create(c.Request.Context(), assignmentID, tasksvc.CreateInput{
			Title:       req.Title,
			Description: req.Description,
			EffortHours: req.EffortHours,
			Importance:  req.Importance,
			Priority:    req.Priority,
		}, user.ID)
		if err != nil {
			httperr.Abort(c, err)
			return
		}
		c.JSON(http.StatusCreated, t)
	}
}

func listTasks(svc *tasksvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		assignmentID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			httperr.BadRequest(c, "invalid assignment id")
			return
		}
		filters := domaintask.ListFilters{AssignmentID: &assignmentID}

		if v := c.Query("status"); v != "" {
			s := domaintask.Status(v)
			if !s.Valid() {
				httperr.BadRequest(c, "invalid status")
				return
			}
			filters.Status = &s
		}
		if v := c.Query("assigned_to"); v != "" {
			id, err := uuid.Parse(v)
			if err != nil {
				httperr.BadRequest(c, "invalid assigned_to")
				return
			}
			filters.AssignedTo = &id
		}
		filters.Unassigned = c.Query("unassigned") == "true"
		user, ok := auth.RequireUser(c)
		if !ok {
			return
		}

		tasks, err := svc.List(c.Request.Context(), filters, user.ID)
		if err != nil {
			httperr.Abort(c, err)
			return
		}
		if tasks == nil {
			tasks = []domaintask.Task{}
		}
		c.JSON(http.StatusOK, tasks)
	}
}

func getTask(svc *tasksvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			httperr.BadRequest(c, "invalid id")
			return
		}
		user, ok := auth.RequireUser(c)
		if !ok {
			return
		}

		t, err := svc.GetByID(c.Request.Context(), id, user.ID)
		if err != nil {
			httperr.Abort(c, err)
			return
		}
		c.JSON(http.StatusOK, t)
	}
}

type updateStatusReq struct {
	StatusFrom domaintask.Status `json:"status_from" binding:"required"`
	StatusTo   domaintask.Status `json:"status_to" binding:"required"`
}

func updateTaskStatus(svc *tasksvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			httperr.BadRequest(c, "invalid id")
			return
		}

		var req updateStatusReq
		if err := c.ShouldBindJSON(&req); err != nil {
			httperr.BadRequest(c, err.Error())
			return
		}
		user, ok := auth.RequireUser(c)
		if !ok {
			return
		}

		t, err := svc.UpdateStatus(c.Request.Context(), id, req.StatusFrom, req.StatusTo, user.ID)
		if err != nil {
			httperr.Abort(c, err)
			return
		}
		c.JSON(http.StatusOK, t)
	}
}

// reassignReq clears the assignee when assigned_user_id is null.
type reassignReq struct {
	AssignedUserID *uuid.UUID `json:"assigned_user_id"`
}

func reassignTask(svc *tasksvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			httperr.BadRequest(c, "invalid id")
			return
		}

		var req reassignReq
		if err := c.ShouldBindJSON(&req); err != nil {
			httperr.BadRequest(c, err.Error())
			return
		}
		user, ok := auth.RequireUser(c)
		if !ok {
			return
		}

		t, err := svc.Reassign(c.Request.Context(), id, req.AssignedUserID, user.ID)
		if err != nil {
			httperr.Abort(c, err)
			return
		}
		c.JSON(http.StatusOK, t)
	}
}
