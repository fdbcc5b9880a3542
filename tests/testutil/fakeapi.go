package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/nhle/miledo/internal/api"
	"github.com/nhle/miledo/internal/model"
	"github.com/nhle/miledo/internal/schedule"
)

// FakeToken is the bearer token FakeAPI accepts.
const FakeToken = "test-token"

// FakeAPI is an in-memory stand-in for the mile-do REST API.
type FakeAPI struct {
	Server *httptest.Server

	mu         sync.Mutex
	tasks      map[int64]model.Task
	goals      map[int64]model.Goal
	nextID     int64
	calls      map[string]int
	failStatus int
	lastBody   map[string]any
}

// NewFakeAPI starts a fake API server that is closed with the test.
func NewFakeAPI(t *testing.T) *FakeAPI {
	t.Helper()

	f := &FakeAPI{
		tasks:  make(map[int64]model.Task),
		goals:  make(map[int64]model.Goal),
		nextID: 100,
		calls:  make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/tasks/", f.listTasks(func(model.Task) bool { return true }))
	mux.HandleFunc("GET /api/v1/tasks/inbox", f.listTasks(func(t model.Task) bool {
		return schedule.IsUnscheduled(t.ScheduledDate)
	}))
	mux.HandleFunc("GET /api/v1/tasks/period", f.listPeriod)
	mux.HandleFunc("GET /api/v1/tasks/analyze", f.analyze)
	mux.HandleFunc("GET /api/v1/tasks/{id}", f.getTask)
	mux.HandleFunc("POST /api/v1/tasks/", f.createTask)
	mux.HandleFunc("PATCH /api/v1/tasks/{id}", f.updateTask)
	mux.HandleFunc("PATCH /api/v1/tasks/{id}/complete", f.completeTask)
	mux.HandleFunc("DELETE /api/v1/tasks/{id}", f.deleteTask)
	mux.HandleFunc("GET /api/v1/goals/", f.listGoals)
	mux.HandleFunc("GET /api/v1/goals/{id}", f.getGoal)
	mux.HandleFunc("GET /api/v1/goals/{id}/tasks", f.goalTasks)
	mux.HandleFunc("POST /api/v1/goals/", f.createGoal)
	mux.HandleFunc("PATCH /api/v1/goals/", f.updateGoal)
	mux.HandleFunc("DELETE /api/v1/goals/{id}", f.deleteGoal)
	mux.HandleFunc("GET /api/v1/users/me", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, api.User{Email: "me@example.com", CreatedAt: "2024-01-01 00:00:00 +0000 UTC"})
	})

	f.Server = httptest.NewServer(f.intercept(mux))
	t.Cleanup(f.Server.Close)
	return f
}

// Client returns an API client pointed at the fake server.
func (f *FakeAPI) Client() *api.Client {
	return api.NewClient(f.Server.URL+"/api/v1", api.StaticToken(FakeToken), 5*time.Second)
}

// AddTask seeds a task.
func (f *FakeAPI) AddTask(t model.Task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks[t.ID] = t
}

// AddGoal seeds a goal.
func (f *FakeAPI) AddGoal(g model.Goal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.goals[g.ID] = g
}

// Task returns the server-side copy of a task.
func (f *FakeAPI) Task(id int64) (model.Task, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	return t, ok
}

// Goal returns the server-side copy of a goal.
func (f *FakeAPI) Goal(id int64) (model.Goal, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.goals[id]
	return g, ok
}

// FailWith makes the next request answer with status.
func (f *FakeAPI) FailWith(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failStatus = status
}

// Calls returns how often a route pattern such as "PATCH /api/v1/tasks/{id}"
// was hit.
func (f *FakeAPI) Calls(pattern string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[pattern]
}

// TotalCalls returns the number of requests received.
func (f *FakeAPI) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

// LastBody returns the decoded JSON body of the last mutating request.
func (f *FakeAPI) LastBody() map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastBody
}

// BackendDateTime renders a "YYYY-MM-DD HH:MM:SS" value the way the API
// serializes times.
func BackendDateTime(value string) string {
	return value + " +0000 UTC"
}

// ScheduledTask builds a task as the API returns it.
func ScheduledTask(id int64, title, date, clock string, duration int32) model.Task {
	return model.Task{
		ID:              id,
		Title:           title,
		ScheduledDate:   BackendDateTime(date + " 00:00:00"),
		HasTime:         true,
		ScheduledTime:   BackendDateTime(date + " " + clock + ":00"),
		DurationMinutes: duration,
	}
}

// UnscheduledTask builds an unscheduled task as the API returns it.
func UnscheduledTask(id int64, title string) model.Task {
	return model.Task{
		ID:              id,
		Title:           title,
		ScheduledDate:   BackendDateTime(schedule.SentinelDateTime),
		ScheduledTime:   BackendDateTime(schedule.SentinelDateTime),
		DurationMinutes: schedule.MinDuration,
	}
}

func (f *FakeAPI) intercept(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+FakeToken {
			writeJSON(w, http.StatusUnauthorized, api.ErrorResponse{Message: "unauthorized"})
			return
		}

		f.mu.Lock()
		status := f.failStatus
		f.failStatus = 0
		if status != 0 {
			f.calls["injected"]++
		}
		f.mu.Unlock()
		if status != 0 {
			writeJSON(w, status, api.ErrorResponse{Message: "injected failure"})
			return
		}

		next.ServeHTTP(w, r)

		f.mu.Lock()
		f.calls[r.Pattern]++
		f.mu.Unlock()
	})
}

func (f *FakeAPI) listTasks(keep func(model.Task) bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		writeJSON(w, http.StatusOK, api.ListTasksResponse{UserID: 1, TaskData: f.sortedTasks(keep)})
	}
}

func (f *FakeAPI) listPeriod(w http.ResponseWriter, r *http.Request) {
	after := r.URL.Query().Get("after_date")
	before := r.URL.Query().Get("before_date")
	f.listTasks(func(t model.Task) bool {
		day := schedule.ExtractDate(t.ScheduledDate)
		return day != "" && day >= after && day < before
	})(w, r)
}

func (f *FakeAPI) analyze(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var stats model.TaskStats
	for _, t := range f.tasks {
		stats.TotalTasks++
		if t.IsDone {
			stats.Completed++
		}
	}
	writeJSON(w, http.StatusOK, stats)
}

func (f *FakeAPI) getTask(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok {
		writeJSON(w, http.StatusNotFound, api.ErrorResponse{Message: "cannot find task with provided id"})
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (f *FakeAPI) createTask(w http.ResponseWriter, r *http.Request) {
	var req api.CreateTaskRequest
	body := f.decode(r, &req)
	if body == nil {
		writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Message: "bad request"})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	t := model.Task{ID: f.nextID, GoalID: req.GoalID, Title: req.Title, DurationMinutes: schedule.MinDuration}
	applySchedule(&t, req.ScheduledDateTime, req.ScheduledEndDateTime)
	f.tasks[t.ID] = t
	writeJSON(w, http.StatusCreated, t)
}

func (f *FakeAPI) updateTask(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
	var req api.UpdateTaskRequest
	if f.decode(r, &req) == nil {
		writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Message: "bad request"})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok {
		writeJSON(w, http.StatusNotFound, api.ErrorResponse{Message: "cannot find task with provided id"})
		return
	}
	t.Title = req.Title
	t.GoalID = req.GoalID
	t.IsDone = req.IsDone
	t.DurationMinutes = req.DurationMinutes
	applySchedule(&t, req.ScheduledDateTime, req.ScheduledEndDateTime)
	f.tasks[id] = t
	writeJSON(w, http.StatusOK, t)
}

func (f *FakeAPI) completeTask(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok {
		writeJSON(w, http.StatusNotFound, api.ErrorResponse{Message: "cannot find task with provided id"})
		return
	}
	t.IsDone = true
	f.tasks[id] = t
	writeJSON(w, http.StatusOK, t)
}

func (f *FakeAPI) deleteTask(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tasks, id)
	w.WriteHeader(http.StatusNoContent)
}

func (f *FakeAPI) listGoals(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	goals := make([]model.Goal, 0, len(f.goals))
	for _, g := range f.goals {
		goals = append(goals, g)
	}
	sort.Slice(goals, func(i, j int) bool { return goals[i].ID < goals[j].ID })
	writeJSON(w, http.StatusOK, api.ListGoalsResponse{UserID: 1, Data: goals})
}

func (f *FakeAPI) getGoal(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.goals[id]
	if !ok {
		writeJSON(w, http.StatusNotFound, api.ErrorResponse{Message: "goal not found"})
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (f *FakeAPI) goalTasks(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
	f.listTasks(func(t model.Task) bool { return int64(t.GoalID) == id })(w, r)
}

func (f *FakeAPI) createGoal(w http.ResponseWriter, r *http.Request) {
	var req api.CreateGoalRequest
	if f.decode(r, &req) == nil {
		writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Message: "bad request"})
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	g := model.Goal{ID: f.nextID, Title: req.Title, Color: req.Color, CategoryType: req.CategoryType}
	f.goals[g.ID] = g
	writeJSON(w, http.StatusCreated, g)
}

func (f *FakeAPI) updateGoal(w http.ResponseWriter, r *http.Request) {
	var req api.UpdateGoalRequest
	if f.decode(r, &req) == nil {
		writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Message: "bad request"})
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.goals[req.ID]
	if !ok {
		writeJSON(w, http.StatusNotFound, api.ErrorResponse{Message: "goal not found"})
		return
	}
	g.Title = req.Title
	g.Color = req.Color
	g.CategoryType = req.CategoryType
	g.IsArchived = req.IsArchived
	f.goals[g.ID] = g
	writeJSON(w, http.StatusOK, g)
}

func (f *FakeAPI) deleteGoal(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.goals, id)
	for tid, t := range f.tasks {
		if int64(t.GoalID) == id {
			delete(f.tasks, tid)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// decode reads the JSON body into v and remembers it as the last body.
// It returns nil when the body is not valid JSON.
func (f *FakeAPI) decode(r *http.Request, v any) map[string]any {
	var raw map[string]any
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return nil
	}
	data, _ := json.Marshal(raw)
	if err := json.Unmarshal(data, v); err != nil {
		return nil
	}
	f.mu.Lock()
	f.lastBody = raw
	f.mu.Unlock()
	return raw
}

func (f *FakeAPI) sortedTasks(keep func(model.Task) bool) []model.Task {
	tasks := make([]model.Task, 0, len(f.tasks))
	for _, t := range f.tasks {
		if keep(t) {
			tasks = append(tasks, t)
		}
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	return tasks
}

// applySchedule stores start/end the way the server does: the sentinel (or
// an empty start) clears the schedule, otherwise the end fixes the duration.
func applySchedule(t *model.Task, start, end string) {
	date := schedule.ExtractDate(start)
	if date == "" {
		t.ScheduledDate = BackendDateTime(schedule.SentinelDateTime)
		t.ScheduledTime = BackendDateTime(schedule.SentinelDateTime)
		t.HasTime = false
		return
	}
	t.ScheduledDate = BackendDateTime(date + " 00:00:00")
	t.ScheduledTime = BackendDateTime(start)
	t.HasTime = true
	if end != "" {
		startClock, endClock := schedule.ExtractTime(start), schedule.ExtractTime(end)
		if minutes, err := schedule.DurationBetween(startClock, endClock); err == nil && minutes > 0 {
			t.DurationMinutes = int32(minutes)
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
