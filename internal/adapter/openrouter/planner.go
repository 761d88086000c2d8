package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/Eeshan-Vaghjiani/workflow-sub002/internal/domain/group"
	"github.com/Eeshan-Vaghjiani/workflow-sub002/internal/domain/task"
	"github.com/Eeshan-Vaghjiani/workflow-sub002/internal/domain/workload"
	portdist "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/port/distributor"
)

var _ portdist.Distributor = (*Planner)(nil)

const (
	DefaultBaseURL = "https://openrouter.ai/api/v1"
	DefaultModel   = "deepseek/deepseek-chat"

	systemPrompt = `You are a task distribution assistant. Distribute the tasks among the team members so that each member's total weight (effort_hours * importance) is as even as possible.
Every task must be assigned to exactly one member, using only the member ids given.
Respond with a JSON object of the form {"assignments": [{"id": "<task id>", "assigned_user_id": "<member id>"}]} and nothing else.`
)

var errEmptyCompletion = errors.New("completion has no content")

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	// Referer and Title are sent as the attribution headers OpenRouter expects.
	Referer string
	Title   string
}

// Planner asks a chat-completion model for a plan and falls back to another
// Distributor whenever the call fails or the answer is not a valid plan.
type Planner struct {
	http     *http.Client
	cfg      Config
	fallback portdist.Distributor
}

func NewPlanner(cfg Config, fallback portdist.Distributor) *Planner {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.APIKey})
	httpClient := oauth2.NewClient(context.Background(), ts)
	httpClient.Timeout = cfg.Timeout
	return &Planner{http: httpClient, cfg: cfg, fallback: fallback}
}

func (p *Planner) Distribute(ctx context.Context, tasks []task.Task, members group.Members) (workload.Plan, error) {
	if len(members) == 0 {
		return workload.Plan{}, workload.ErrNoMembers
	}
	if len(tasks) == 0 {
		return p.fallback.Distribute(ctx, tasks, members)
	}

	plan, err := p.plan(ctx, tasks, members)
	if err != nil {
		slog.WarnContext(ctx, "model plan rejected, falling back to greedy",
			"model", p.cfg.Model, "tasks", len(tasks), "error", err)
		return p.fallback.Distribute(ctx, tasks, members)
	}
	slog.InfoContext(ctx, "model plan accepted", "model", p.cfg.Model, "tasks", len(tasks), "spread", plan.Spread())
	return plan, nil
}

func (p *Planner) plan(ctx context.Context, tasks []task.Task, members group.Members) (workload.Plan, error) {
	content, err := p.complete(ctx, tasks, members)
	if err != nil {
		return workload.Plan{}, err
	}
	allocations, err := parseAllocations(content)
	if err != nil {
		return workload.Plan{}, err
	}
	plan := workload.Rebalance(allocations, tasks, members)
	if err := plan.Validate(tasks, members); err != nil {
		return workload.Plan{}, err
	}
	return plan, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type promptTask struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	EffortHours int       `json:"effort_hours"`
	Importance  int       `json:"importance"`
}

type promptMember struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

func (p *Planner) complete(ctx context.Context, tasks []task.Task, members group.Members) (string, error) {
	payload := struct {
		Tasks   []promptTask   `json:"tasks"`
		Members []promptMember `json:"members"`
	}{}
	for _, t := range tasks {
		payload.Tasks = append(payload.Tasks, promptTask{ID: t.ID, Title: t.Title, EffortHours: t.EffortHours, Importance: t.ImportanceOrDefault()})
	}
	for _, m := range members {
		payload.Members = append(payload.Members, promptMember{ID: m.UserID, Name: m.Name})
	}
	user, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encoding prompt: %w", err)
	}

	body, err := json.Marshal(chatRequest{
		Model: p.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: string(user)},
		},
		Temperature:    0.1,
		ResponseFormat: map[string]string{"type": "json_object"},
	})
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(p.cfg.BaseURL, "/")+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.cfg.Referer != "" {
		req.Header.Set("HTTP-Referer", p.cfg.Referer)
	}
	if p.cfg.Title != "" {
		req.Header.Set("X-Title", p.cfg.Title)
	}

	resp, err := p.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling chat completions: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chat completions returned %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}

	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", errEmptyCompletion
	}
	return out.Choices[0].Message.Content, nil
}

type allocationJSON struct {
	ID             string `json:"id"`
	AssignedUserID string `json:"assigned_user_id"`
}

// parseAllocations accepts either a bare JSON array of allocations or an
// object wrapping one, optionally inside a markdown code fence.
func parseAllocations(content string) ([]workload.Allocation, error) {
	content = stripFence(content)

	var list []allocationJSON
	if err := json.Unmarshal([]byte(content), &list); err != nil {
		var wrapped map[string]json.RawMessage
		if err := json.Unmarshal([]byte(content), &wrapped); err != nil {
			return nil, fmt.Errorf("completion is not JSON: %w", err)
		}
		list = nil
		for _, key := range []string{"assignments", "tasks", "allocations"} {
			if v, ok := wrapped[key]; ok {
				if err := json.Unmarshal(v, &list); err != nil {
					return nil, fmt.Errorf("decoding %q: %w", key, err)
				}
				break
			}
		}
		if list == nil {
			return nil, errors.New("completion has no allocation list")
		}
	}

	allocations := make([]workload.Allocation, 0, len(list))
	for i, a := range list {
		taskID, err := uuid.Parse(a.ID)
		if err != nil {
			return nil, fmt.Errorf("allocation %d: task id %q: %w", i, a.ID, err)
		}
		memberID, err := uuid.Parse(a.AssignedUserID)
		if err != nil {
			return nil, fmt.Errorf("allocation %d: member id %q: %w", i, a.AssignedUserID, err)
		}
		allocations = append(allocations, workload.Allocation{TaskID: taskID, MemberID: memberID})
	}
	return allocations, nil
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
