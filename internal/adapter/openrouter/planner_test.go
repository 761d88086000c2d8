package openrouter_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Eeshan-Vaghjiani/workflow-sub002/internal/adapter/openrouter"
	"github.com/Eeshan-Vaghjiani/workflow-sub002/internal/domain/group"
	"github.com/Eeshan-Vaghjiani/workflow-sub002/internal/domain/task"
	"github.com/Eeshan-Vaghjiani/workflow-sub002/internal/domain/workload"
	"github.com/Eeshan-Vaghjiani/workflow-sub002/internal/service/distributor"
)

var (
	alice = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	bob   = uuid.MustParse("00000000-0000-0000-0000-000000000002")
)

func fixture() ([]task.Task, group.Members) {
	tasks := []task.Task{
		{ID: uuid.New(), Title: "a", EffortHours: 6},
		{ID: uuid.New(), Title: "b", EffortHours: 4},
		{ID: uuid.New(), Title: "c", EffortHours: 2},
	}
	members := group.Members{{UserID: alice, Name: "Alice"}, {UserID: bob, Name: "Bob"}}
	return tasks, members
}

func completion(content string) string {
	body, _ := json.Marshal(map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
	})
	return string(body)
}

func newServer(t *testing.T, status int, body func(r *http.Request) string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		fmt.Fprint(w, body(r))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newPlanner(url string) *openrouter.Planner {
	return openrouter.NewPlanner(openrouter.Config{APIKey: "test-key", BaseURL: url, Model: "test-model"}, distributor.NewService())
}

func TestPlanner_AcceptsModelPlan(t *testing.T) {
	tasks, members := fixture()
	content := fmt.Sprintf(`{"assignments":[{"id":%q,"assigned_user_id":%q},{"id":%q,"assigned_user_id":%q},{"id":%q,"assigned_user_id":%q}]}`,
		tasks[0].ID, bob, tasks[1].ID, alice, tasks[2].ID, alice)

	var got struct {
		auth, model string
		temperature float64
		format      string
	}
	srv := newServer(t, http.StatusOK, func(r *http.Request) string {
		got.auth = r.Header.Get("Authorization")
		var req struct {
			Model          string            `json:"model"`
			Temperature    float64           `json:"temperature"`
			ResponseFormat map[string]string `json:"response_format"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		got.model, got.temperature, got.format = req.Model, req.Temperature, req.ResponseFormat["type"]
		assert.Equal(t, "/chat/completions", r.URL.Path)
		return completion(content)
	})

	plan, err := newPlanner(srv.URL).Distribute(context.Background(), tasks, members)
	require.NoError(t, err)

	assert.Equal(t, "Bearer test-key", got.auth)
	assert.Equal(t, "test-model", got.model)
	assert.Equal(t, 0.1, got.temperature)
	assert.Equal(t, "json_object", got.format)

	assignee, ok := plan.AssigneeOf(tasks[0].ID)
	require.True(t, ok)
	assert.Equal(t, bob, assignee)
	assert.Equal(t, 6, plan.Loads[alice])
	assert.Equal(t, 6, plan.Loads[bob])
}

func TestPlanner_FallsBackToGreedy(t *testing.T) {
	tasks, members := fixture()
	greedy, err := workload.Distribute(tasks, members)
	require.NoError(t, err)

	tests := []struct {
		name   string
		status int
		body   func() string
	}{
		{name: "http error", status: http.StatusTooManyRequests, body: func() string { return `{"error":"rate limited"}` }},
		{name: "not json", status: http.StatusOK, body: func() string { return "<html>" }},
		{name: "no choices", status: http.StatusOK, body: func() string { return `{"choices":[]}` }},
		{name: "prose content", status: http.StatusOK, body: func() string { return completion("Sure! Here is the plan.") }},
		{name: "missing task", status: http.StatusOK, body: func() string {
			return completion(fmt.Sprintf(`[{"id":%q,"assigned_user_id":%q}]`, tasks[0].ID, alice))
		}},
		{name: "non-member assignee", status: http.StatusOK, body: func() string {
			return completion(fmt.Sprintf(`[{"id":%q,"assigned_user_id":%q},{"id":%q,"assigned_user_id":%q},{"id":%q,"assigned_user_id":%q}]`,
				tasks[0].ID, uuid.New(), tasks[1].ID, alice, tasks[2].ID, bob))
		}},
		{name: "numeric ids", status: http.StatusOK, body: func() string {
			return completion(`[{"id":"1","assigned_user_id":"505"}]`)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(t, tt.status, func(*http.Request) string { return tt.body() })
			plan, err := newPlanner(srv.URL).Distribute(context.Background(), tasks, members)
			require.NoError(t, err)
			assert.Equal(t, greedy.Allocations, plan.Allocations)
		})
	}
}

func TestPlanner_AcceptsFencedArray(t *testing.T) {
	tasks, members := fixture()
	content := fmt.Sprintf("```json\n[{\"id\":%q,\"assigned_user_id\":%q},{\"id\":%q,\"assigned_user_id\":%q},{\"id\":%q,\"assigned_user_id\":%q}]\n```",
		tasks[0].ID, alice, tasks[1].ID, bob, tasks[2].ID, bob)
	srv := newServer(t, http.StatusOK, func(*http.Request) string { return completion(content) })

	plan, err := newPlanner(srv.URL).Distribute(context.Background(), tasks, members)
	require.NoError(t, err)
	assert.Equal(t, 6, plan.Loads[alice])
	assert.Equal(t, 6, plan.Loads[bob])
	for _, a := range plan.Allocations {
		assert.Equal(t, tasksByID(tasks)[a.TaskID].Weight(), a.Weight)
	}
}

func TestPlanner_NoMembers(t *testing.T) {
	tasks, _ := fixture()
	_, err := newPlanner("http://127.0.0.1:0").Distribute(context.Background(), tasks, nil)
	assert.ErrorIs(t, err, workload.ErrNoMembers)
}

func TestPlanner_NoTasksSkipsModel(t *testing.T) {
	_, members := fixture()
	called := false
	srv := newServer(t, http.StatusOK, func(*http.Request) string { called = true; return "" })

	plan, err := newPlanner(srv.URL).Distribute(context.Background(), nil, members)
	require.NoError(t, err)
	assert.Empty(t, plan.Allocations)
	assert.False(t, called)
}

func tasksByID(tasks []task.Task) map[uuid.UUID]task.Task {
	out := make(map[uuid.UUID]task.Task, len(tasks))
	for _, t := range tasks {
		out[t.ID] = t
	}
	return out
}
