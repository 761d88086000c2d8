package group

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Eeshan-Vaghjiani/workflow-sub002/internal/auth"
	domaingroup "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/domain/group"
	groupsvc "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/service/group"
	"github.com/Eeshan-Vaghjiani/workflow-sub002/internal/transport/httperr"
)

func Register(rg *gin.RouterGroup, svc *groupsvc.Service) {
	rg.POST("", createGroup(svc))
	rg.GET("/:id", getGroup(svc))
	rg.POST("/:id/members", addMember(svc))
	rg.DELETE("/:id/members/:userId", removeMember(svc))
	rg.POST("/:id/assignments", createAssignment(svc))
}

type createGroupReq struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

func createGroup(svc *groupsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createGroupReq
		if err := c.ShouldBindJSON(&req); err != nil {
			httperr.BadRequest(c, err.Error())
			return
		}
		user, ok := auth.RequireUser(c)
		if !ok {
			return
		}

		g, err := svc.Create(c.Request.Context(), req.Name, req.Description, user.ID, user.Name)
		if err != nil {
			httperr.Abort(c, err)
			return
		}
		c.JSON(http.StatusCreated, g)
	}
}

func getGroup(svc *groupsvc.Service) gin.HandlerFunc {
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

		g, err := svc.Get(c.Request.Context(), id, user.ID)
		if err != nil {
			httperr.Abort(c, err)
			return
		}
		c.JSON(http.StatusOK, g)
	}
}

type addMemberReq struct {
	UserID uuid.UUID        `json:"user_id" binding:"required"`
	Name   string           `json:"name"`
	Role   domaingroup.Role `json:"role" binding:"omitempty,oneof=leader member"`
}

func addMember(svc *groupsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		groupID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			httperr.BadRequest(c, "invalid id")
			return
		}

		var req addMemberReq
		if err := c.ShouldBindJSON(&req); err != nil {
			httperr.BadRequest(c, err.Error())
			return
		}
		user, ok := auth.RequireUser(c)
		if !ok {
			return
		}

		m, err := svc.AddMember(c.Request.Context(), groupID, req.UserID, req.Name, req.Role, user.ID)
		if err != nil {
			httperr.Abort(c, err)
			return
		}
		c.JSON(http.StatusCreated, m)
	}
}

func removeMember(svc *groupsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		groupID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			httperr.BadRequest(c, "invalid id")
			return
		}
		userID, err := uuid.Parse(c.Param("userId"))
		if err != nil {
			httperr.BadRequest(c, "invalid user id")
			return
		}
		user, ok := auth.RequireUser(c)
		if !ok {
			return
		}

		if err := svc.RemoveMember(c.Request.Context(), groupID, userID, user.ID); err != nil {
			httperr.Abort(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

type createAssignmentReq struct {
	Title       string     `json:"title" binding:"required"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"due_date"`
}

func createAssignment(svc *groupsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		groupID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			httperr.BadRequest(c, "invalid id")
			return
		}

		var req createAssignmentReq
		if err := c.ShouldBindJSON(&req); err != nil {
			httperr.BadRequest(c, err.Error())
			return
		}
		user, ok := auth.RequireUser(c)
		if !ok {
			return
		}

		a, err := svc.CreateAssignment(c.Request.Context(), groupID, req.Title, req.Description, req.DueDate, user.ID)
		if err != nil {
			httperr.Abort(c, err)
			return
		}
		c.JSON(http.StatusCreated, a)
	}
}
