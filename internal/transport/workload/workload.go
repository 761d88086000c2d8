package workload

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Eeshan-Vaghjiani/workflow-sub002/internal/auth"
	domaintask "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/domain/task"
	domainworkload "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/domain/workload"
	"github.com/Eeshan-Vaghjiani/workflow-sub002/internal/service/distribution"
	"github.com/Eeshan-Vaghjiani/workflow-sub002/internal/transport/httperr"
)

// Register mounts the stats and distribution endpoints under /groups.
// defaults is the eligibility policy used when a request does not override it.
func Register(rg *gin.RouterGroup, svc *distribution.Service, defaults distribution.EligibilityPolicy) {
	rg.GET("/:group/assignments/:assignment/get-stats", getStats(svc))
	rg.POST("/:group/assignments/:assignment/distribute-tasks", distributeTasks(svc, defaults))
}

func getStats(svc *distribution.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		groupID, assignmentID, ok := parseIDs(c)
		if !ok {
			return
		}
		user, ok := auth.RequireUser(c)
		if !ok {
			return
		}

		st, err := svc.Stats(c.Request.Context(), groupID, assignmentID, user.ID)
		if err != nil {
			httperr.Abort(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success":                 true,
			"tasks":                   nonNilTasks(st.Tasks),
			"groupMembers":            st.Members,
			"workloadDistribution":    nonNilRecords(st.Workload),
			"hasUnassignedTasks":      st.HasUnassigned,
			"invalidAssignmentsFixed": st.InvalidFixed,
		})
	}
}

func distributeTasks(svc *distribution.Service, defaults distribution.EligibilityPolicy) gin.HandlerFunc {
	return func(c *gin.Context) {
		groupID, assignmentID, ok := parseIDs(c)
		if !ok {
			return
		}
		policy, err := policyFromQuery(c, defaults)
		if err != nil {
			httperr.BadRequest(c, err.Error())
			return
		}
		user, ok := auth.RequireUser(c)
		if !ok {
			return
		}

		res, err := svc.Distribute(c.Request.Context(), distribution.Request{
			GroupID:      groupID,
			AssignmentID: assignmentID,
			Actor:        user.ID,
			Policy:       policy,
		})
		if err != nil {
			httperr.Abort(c, err)
			return
		}

		details := res.Errors
		if details == nil {
			details = []distribution.TaskError{}
		}
		c.JSON(http.StatusOK, gin.H{
			"success":              true,
			"message":              "Tasks distributed successfully",
			"tasks":                nonNilTasks(res.Tasks),
			"workloadDistribution": nonNilRecords(res.Workload),
			"stats": gin.H{
				"distributed":   res.Distributed,
				"errors":        len(res.Errors),
				"error_details": details,
			},
		})
	}
}

func parseIDs(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	groupID, err := uuid.Parse(c.Param("group"))
	if err != nil {
		httperr.BadRequest(c, "invalid group id")
		return uuid.Nil, uuid.Nil, false
	}
	assignmentID, err := uuid.Parse(c.Param("assignment"))
	if err != nil {
		httperr.BadRequest(c, "invalid assignment id")
		return uuid.Nil, uuid.Nil, false
	}
	return groupID, assignmentID, true
}

func policyFromQuery(c *gin.Context, p distribution.EligibilityPolicy) (distribution.EligibilityPolicy, error) {
	if v := c.Query("unassigned_only"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return p, err
		}
		p.UnassignedOnly = b
	}
	if v := c.Query("include_completed"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return p, err
		}
		p.IncludeCompleted = b
	}
	return p, nil
}

func nonNilTasks(ts []domaintask.Task) []domaintask.Task {
	if ts == nil {
		return []domaintask.Task{}
	}
	return ts
}

func nonNilRecords(rs []domainworkload.Record) []domainworkload.Record {
	if rs == nil {
		return []domainworkload.Record{}
	}
	return rs
}
