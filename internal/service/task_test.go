package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/qwertttyyy/TaskManagement/internal/cache"
	"github.com/qwertttyyy/TaskManagement/internal/model"
	"github.com/qwertttyyy/TaskManagement/internal/repository"
)

type fakeTaskStore struct {
	tasks     map[int64]*model.Task
	owners    map[int64]*model.User
	nextID    int64
	listCalls int
}

func newFakeTaskStore() *fakeTaskStore {
	return &fakeTaskStore{
		tasks:  make(map[int64]*model.Task),
		owners: make(map[int64]*model.User),
	}
}

func (s *fakeTaskStore) addOwner(user model.User) {
	s.owners[user.ID] = &user
}

func (s *fakeTaskStore) Create(ctx context.Context, task *model.Task) error {
	s.nextID++
	task.ID = s.nextID
	stored := *task
	s.tasks[task.ID] = &stored
	return nil
}

func (s *fakeTaskStore) GetByID(ctx context.Context, id int64) (*model.Task, error) {
	task, ok := s.tasks[id]
	if !ok {
		return nil, repository.ErrTaskNotFound
	}
	copied := *task
	if copied.UserID != nil {
		if owner, ok := s.owners[*copied.UserID]; ok {
			ownerCopy := *owner
			copied.User = &ownerCopy
		}
	}
	return &copied, nil
}

func (s *fakeTaskStore) Update(ctx context.Context, task *model.Task) error {
	existing, ok := s.tasks[task.ID]
	if !ok {
		return repository.ErrTaskNotFound
	}
	existing.Title = task.Title
	existing.Description = task.Description
	existing.Status = task.Status
	existing.LastUpdatedDate = task.LastUpdatedDate
	return nil
}

func (s *fakeTaskStore) Delete(ctx context.Context, id int64) error {
	if _, ok := s.tasks[id]; !ok {
		return repository.ErrTaskNotFound
	}
	delete(s.tasks, id)
	return nil
}

func (s *fakeTaskStore) List(ctx context.Context, filter model.TaskFilter) ([]model.Task, error) {
	s.listCalls++

	var result []model.Task
	for id := range s.tasks {
		task, _ := s.GetByID(ctx, id)
		if filter.Status != "" && task.Status != filter.Status {
			continue
		}
		if filter.CreatedDate != nil {
			y1, m1, d1 := task.CreatedDate.Date()
			y2, m2, d2 := filter.CreatedDate.Date()
			if y1 != y2 || m1 != m2 || d1 != d2 {
				continue
			}
		}
		if filter.UserID != nil && (task.UserID == nil || *task.UserID != *filter.UserID) {
			continue
		}
		result = append(result, *task)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedDate.After(result[j].CreatedDate)
	})
	return result, nil
}

type fakeNotifier struct {
	messages []string
	groups   []string
}

func (n *fakeNotifier) Publish(group, text string) {
	n.groups = append(n.groups, group)
	n.messages = append(n.messages, text)
}

func newTestTaskService() (*TaskService, *fakeTaskStore, *fakeNotifier) {
	store := newFakeTaskStore()
	store.addOwner(model.User{ID: 1, Email: "ivan@example.com", FirstName: "Ivan"})
	store.addOwner(model.User{ID: 2, Email: "petr@example.com", FirstName: "Petr"})
	notifier := &fakeNotifier{}
	svc := NewTaskService(store, cache.NewMemoryCache(0), notifier)
	return svc, store, notifier
}

func TestCreateTaskDefaults(t *testing.T) {
	svc, _, _ := newTestTaskService()

	resp, err := svc.Create(context.Background(), 1, model.CreateTaskRequest{
		Title:       "Test Task",
		Description: "Test Task Description",
	})
	if err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}

	if resp.Status != model.StatusNew {
		t.Errorf("Create() status = %q, want %q", resp.Status, model.StatusNew)
	}
	if resp.User == nil || resp.User.ID != 1 {
		t.Fatalf("Create() owner = %+v, want user 1", resp.User)
	}
	if resp.User.FirstName != "Ivan" || resp.User.Email != "ivan@example.com" {
		t.Errorf("Create() owner = %+v, want Ivan/ivan@example.com", resp.User)
	}
	if resp.LastUpdatedDate == nil {
		t.Fatal("Create() did not set last_updated_date")
	}
	if resp.CreatedDate.After(*resp.LastUpdatedDate) {
		t.Errorf("created_date %v is after last_updated_date %v", resp.CreatedDate, *resp.LastUpdatedDate)
	}
}

func TestCreateTaskExplicitStatus(t *testing.T) {
	svc, _, _ := newTestTaskService()

	resp, err := svc.Create(context.Background(), 1, model.CreateTaskRequest{
		Title:       "Second Test Task",
		Description: "Other Test Task Description",
		Status:      model.StatusInProgress,
	})
	if err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}
	if resp.Status != model.StatusInProgress {
		t.Errorf("Create() status = %q, want %q", resp.Status, model.StatusInProgress)
	}
}

func TestCreateTaskValidation(t *testing.T) {
	tests := []struct {
		name    string
		req     model.CreateTaskRequest
		wantErr error
	}{
		{
			name:    "missing title",
			req:     model.CreateTaskRequest{Description: "d"},
			wantErr: ErrTitleRequired,
		},
		{
			name:    "title too long",
			req:     model.CreateTaskRequest{Title: strings.Repeat("t", 31), Description: "d"},
			wantErr: ErrTitleTooLong,
		},
		{
			name:    "missing description",
			req:     model.CreateTaskRequest{Title: "t"},
			wantErr: ErrDescriptionRequired,
		},
		{
			name:    "description too long",
			req:     model.CreateTaskRequest{Title: "t", Description: strings.Repeat("d", 301)},
			wantErr: ErrDescriptionTooLong,
		},
		{
			name:    "unknown status",
			req:     model.CreateTaskRequest{Title: "t", Description: "d", Status: "archived"},
			wantErr: ErrInvalidStatus,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, _ := newTestTaskService()
			_, err := svc.Create(context.Background(), 1, tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Create() error = %v, want %v", err, tt.wantErr)
			}
			if len(store.tasks) != 0 {
				t.Error("invalid Create() stored a task")
			}
		})
	}
}

func TestCreateTaskMultibyteBounds(t *testing.T) {
	svc, _, _ := newTestTaskService()
	ctx := context.Background()

	// Bounds are in characters: 16 Cyrillic characters are 32 bytes but
	// well within the 30-character title limit.
	resp, err := svc.Create(ctx, 1, model.CreateTaskRequest{
		Title:       strings.Repeat("я", 16),
		Description: strings.Repeat("я", model.DescriptionMaxLength),
	})
	if err != nil {
		t.Fatalf("Create() with multibyte fields unexpected error: %v", err)
	}
	if resp.Title != strings.Repeat("я", 16) {
		t.Errorf("Create() title = %q, want 16 Cyrillic characters", resp.Title)
	}

	_, err = svc.Create(ctx, 1, model.CreateTaskRequest{
		Title:       strings.Repeat("я", model.TitleMaxLength+1),
		Description: "d",
	})
	if !errors.Is(err, ErrTitleTooLong) {
		t.Errorf("Create() with 31 Cyrillic characters error = %v, want ErrTitleTooLong", err)
	}

	_, err = svc.Create(ctx, 1, model.CreateTaskRequest{
		Title:       "t",
		Description: strings.Repeat("я", model.DescriptionMaxLength+1),
	})
	if !errors.Is(err, ErrDescriptionTooLong) {
		t.Errorf("Create() with 301 Cyrillic characters error = %v, want ErrDescriptionTooLong", err)
	}
}

func TestUpdateTaskMultibyteBounds(t *testing.T) {
	svc, _, _ := newTestTaskService()
	ctx := context.Background()

	created, err := svc.Create(ctx, 1, model.CreateTaskRequest{Title: "Test Task", Description: "d"})
	if err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}

	title := strings.Repeat("я", model.TitleMaxLength)
	resp, err := svc.Update(ctx, 1, created.ID, model.UpdateTaskRequest{Title: &title})
	if err != nil {
		t.Fatalf("Update() with 30 Cyrillic characters unexpected error: %v", err)
	}
	if resp.Title != title {
		t.Errorf("Update() title = %q, want 30 Cyrillic characters", resp.Title)
	}

	tooLong := strings.Repeat("я", model.TitleMaxLength+1)
	_, err = svc.Update(ctx, 1, created.ID, model.UpdateTaskRequest{Title: &tooLong})
	if !errors.Is(err, ErrTitleTooLong) {
		t.Errorf("Update() with 31 Cyrillic characters error = %v, want ErrTitleTooLong", err)
	}
}

func TestUpdateTaskNotFound(t *testing.T) {
	svc, _, _ := newTestTaskService()

	title := "renamed"
	_, err := svc.Update(context.Background(), 1, 99, model.UpdateTaskRequest{Title: &title})
	if !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("Update() error = %v, want ErrTaskNotFound", err)
	}
}

func TestUpdateTaskNotOwner(t *testing.T) {
	svc, _, notifier := newTestTaskService()
	ctx := context.Background()

	created, err := svc.Create(ctx, 1, model.CreateTaskRequest{Title: "Test Task", Description: "d"})
	if err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}

	status := model.StatusInProgress
	_, err = svc.Update(ctx, 2, created.ID, model.UpdateTaskRequest{Status: &status})
	if !errors.Is(err, ErrNotOwner) {
		t.Errorf("Update() by non-owner error = %v, want ErrNotOwner", err)
	}
	if len(notifier.messages) != 0 {
		t.Error("forbidden update published a notification")
	}
}

func TestUpdateOrphanedTaskForbidden(t *testing.T) {
	svc, store, _ := newTestTaskService()
	ctx := context.Background()

	// A task whose owner was deleted keeps existing with a nil owner and
	// is not mutable by anyone.
	now := time.Now().UTC()
	store.Create(ctx, &model.Task{
		Title:       "Orphaned",
		Description: "d",
		Status:      model.StatusNew,
		CreatedDate: now,
	})

	status := model.StatusDone
	_, err := svc.Update(ctx, 1, 1, model.UpdateTaskRequest{Status: &status})
	if !errors.Is(err, ErrNotOwner) {
		t.Errorf("Update() on orphaned task error = %v, want ErrNotOwner", err)
	}
}

func TestUpdateStatusChangePublishesOnce(t *testing.T) {
	svc, _, notifier := newTestTaskService()
	ctx := context.Background()

	created, err := svc.Create(ctx, 1, model.CreateTaskRequest{
		Title:       "Test Task",
		Description: "Test Task Description",
	})
	if err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}

	status := model.StatusInProgress
	resp, err := svc.Update(ctx, 1, created.ID, model.UpdateTaskRequest{Status: &status})
	if err != nil {
		t.Fatalf("Update() unexpected error: %v", err)
	}

	if resp.Status != model.StatusInProgress {
		t.Errorf("Update() status = %q, want %q", resp.Status, model.StatusInProgress)
	}
	if len(notifier.messages) != 1 {
		t.Fatalf("status change published %d notifications, want 1", len(notifier.messages))
	}
	msg := notifier.messages[0]
	if !strings.Contains(msg, "Test Task") || !strings.Contains(msg, "new") || !strings.Contains(msg, "in_progress") {
		t.Errorf("notification %q must name the task title, old and new status", msg)
	}
	if notifier.groups[0] != "public_room" {
		t.Errorf("notification group = %q, want public_room", notifier.groups[0])
	}
}

func TestUpdateWithoutStatusChangePublishesNothing(t *testing.T) {
	svc, _, notifier := newTestTaskService()
	ctx := context.Background()

	created, err := svc.Create(ctx, 1, model.CreateTaskRequest{Title: "Test Task", Description: "d"})
	if err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}

	title := "Renamed Task"
	if _, err := svc.Update(ctx, 1, created.ID, model.UpdateTaskRequest{Title: &title}); err != nil {
		t.Fatalf("Update() unexpected error: %v", err)
	}

	// An explicit status equal to the current one is not a change.
	status := model.StatusNew
	if _, err := svc.Update(ctx, 1, created.ID, model.UpdateTaskRequest{Status: &status}); err != nil {
		t.Fatalf("Update() unexpected error: %v", err)
	}

	if len(notifier.messages) != 0 {
		t.Errorf("non-status updates published %d notifications, want 0", len(notifier.messages))
	}
}

func TestUpdateRefreshesLastUpdated(t *testing.T) {
	svc, _, _ := newTestTaskService()
	ctx := context.Background()

	created, err := svc.Create(ctx, 1, model.CreateTaskRequest{Title: "Test Task", Description: "d"})
	if err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}

	desc := "updated description"
	resp, err := svc.Update(ctx, 1, created.ID, model.UpdateTaskRequest{Description: &desc})
	if err != nil {
		t.Fatalf("Update() unexpected error: %v", err)
	}

	if resp.LastUpdatedDate == nil {
		t.Fatal("Update() cleared last_updated_date")
	}
	if resp.CreatedDate.After(*resp.LastUpdatedDate) {
		t.Errorf("created_date %v is after last_updated_date %v", resp.CreatedDate, *resp.LastUpdatedDate)
	}
	if resp.Description != desc {
		t.Errorf("Update() description = %q, want %q", resp.Description, desc)
	}
}

func TestDeleteTask(t *testing.T) {
	svc, store, _ := newTestTaskService()
	ctx := context.Background()

	created, err := svc.Create(ctx, 1, model.CreateTaskRequest{Title: "Test Task", Description: "d"})
	if err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}

	if err := svc.Delete(ctx, 1, created.ID); err != nil {
		t.Fatalf("Delete() unexpected error: %v", err)
	}

	if _, ok := store.tasks[created.ID]; ok {
		t.Error("Delete() left the record in the store")
	}
	if _, err := svc.Get(ctx, created.ID); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrTaskNotFound", err)
	}
}

func TestDeleteTaskNotOwner(t *testing.T) {
	svc, store, _ := newTestTaskService()
	ctx := context.Background()

	created, err := svc.Create(ctx, 1, model.CreateTaskRequest{Title: "Test Task", Description: "d"})
	if err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}

	if err := svc.Delete(ctx, 2, created.ID); !errors.Is(err, ErrNotOwner) {
		t.Errorf("Delete() by non-owner error = %v, want ErrNotOwner", err)
	}
	if _, ok := store.tasks[created.ID]; !ok {
		t.Error("forbidden Delete() removed the record")
	}
}

func TestListServedFromCache(t *testing.T) {
	svc, store, _ := newTestTaskService()
	ctx := context.Background()

	if _, err := svc.Create(ctx, 1, model.CreateTaskRequest{Title: "Test Task", Description: "d"}); err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}

	first, err := svc.List(ctx, model.TaskFilter{})
	if err != nil {
		t.Fatalf("List() unexpected error: %v", err)
	}
	second, err := svc.List(ctx, model.TaskFilter{})
	if err != nil {
		t.Fatalf("List() unexpected error: %v", err)
	}

	if store.listCalls != 1 {
		t.Errorf("store queried %d times for two identical lists, want 1", store.listCalls)
	}
	if !bytes.Equal(first, second) {
		t.Error("repeated List() with unchanged state returned different renderings")
	}
}

func TestMutationsInvalidateListCache(t *testing.T) {
	svc, _, _ := newTestTaskService()
	ctx := context.Background()

	created, err := svc.Create(ctx, 1, model.CreateTaskRequest{Title: "Test Task", Description: "d"})
	if err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}

	listTitles := func() []string {
		data, err := svc.List(ctx, model.TaskFilter{})
		if err != nil {
			t.Fatalf("List() unexpected error: %v", err)
		}
		var tasks []model.TaskResponse
		if err := json.Unmarshal(data, &tasks); err != nil {
			t.Fatalf("List() produced invalid JSON: %v", err)
		}
		titles := make([]string, len(tasks))
		for i, task := range tasks {
			titles[i] = task.Title
		}
		return titles
	}

	if got := listTitles(); len(got) != 1 {
		t.Fatalf("List() returned %v, want one task", got)
	}

	status := model.StatusDone
	if _, err := svc.Update(ctx, 1, created.ID, model.UpdateTaskRequest{Status: &status}); err != nil {
		t.Fatalf("Update() unexpected error: %v", err)
	}

	data, err := svc.List(ctx, model.TaskFilter{})
	if err != nil {
		t.Fatalf("List() unexpected error: %v", err)
	}
	var tasks []model.TaskResponse
	if err := json.Unmarshal(data, &tasks); err != nil {
		t.Fatalf("List() produced invalid JSON: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Status != model.StatusDone {
		t.Errorf("List() after update = %+v, want one task with status done", tasks)
	}

	if err := svc.Delete(ctx, 1, created.ID); err != nil {
		t.Fatalf("Delete() unexpected error: %v", err)
	}
	if got := listTitles(); len(got) != 0 {
		t.Errorf("List() after delete returned %v, want empty", got)
	}
}

func TestListStatusFilter(t *testing.T) {
	svc, _, _ := newTestTaskService()
	ctx := context.Background()

	if _, err := svc.Create(ctx, 1, model.CreateTaskRequest{Title: "One", Description: "d"}); err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}
	if _, err := svc.Create(ctx, 1, model.CreateTaskRequest{Title: "Two", Description: "d", Status: model.StatusDone}); err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}

	data, err := svc.List(ctx, model.TaskFilter{Status: model.StatusDone})
	if err != nil {
		t.Fatalf("List() unexpected error: %v", err)
	}

	var tasks []model.TaskResponse
	if err := json.Unmarshal(data, &tasks); err != nil {
		t.Fatalf("List() produced invalid JSON: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Title != "Two" {
		t.Errorf("List(status=done) = %+v, want only task Two", tasks)
	}
}

func TestListMineOnlyOwnTasks(t *testing.T) {
	svc, _, _ := newTestTaskService()
	ctx := context.Background()

	if _, err := svc.Create(ctx, 1, model.CreateTaskRequest{Title: "Ivans", Description: "d"}); err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}
	if _, err := svc.Create(ctx, 2, model.CreateTaskRequest{Title: "Petrs", Description: "d"}); err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}

	data, err := svc.ListMine(ctx, 1, model.TaskFilter{})
	if err != nil {
		t.Fatalf("ListMine() unexpected error: %v", err)
	}

	var tasks []model.TaskResponse
	if err := json.Unmarshal(data, &tasks); err != nil {
		t.Fatalf("ListMine() produced invalid JSON: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Title != "Ivans" {
		t.Errorf("ListMine(1) = %+v, want only Ivans task", tasks)
	}
}

func TestListEmptyRendersArray(t *testing.T) {
	svc, _, _ := newTestTaskService()

	data, err := svc.List(context.Background(), model.TaskFilter{})
	if err != nil {
		t.Fatalf("List() unexpected error: %v", err)
	}
	if strings.TrimSpace(string(data)) != "[]" {
		t.Errorf("empty List() = %q, want []", data)
	}
}
