package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/qwertttyyy/TaskManagement/internal/cache"
	"github.com/qwertttyyy/TaskManagement/internal/model"
	"github.com/qwertttyyy/TaskManagement/internal/notify"
	"github.com/qwertttyyy/TaskManagement/internal/repository"
)

var (
	ErrTitleRequired       = errors.New("title is required")
	ErrTitleTooLong        = errors.New("title must be at most 30 characters")
	ErrDescriptionRequired = errors.New("description is required")
	ErrDescriptionTooLong  = errors.New("description must be at most 300 characters")
	ErrInvalidStatus       = errors.New("status must be one of: new, in_progress, done")
	ErrTaskNotFound        = errors.New("task not found")
	ErrNotOwner            = errors.New("only the task owner may modify it")
)

// TaskStore is the persistence contract the task service depends on.
type TaskStore interface {
	Create(ctx context.Context, task *model.Task) error
	GetByID(ctx context.Context, id int64) (*model.Task, error)
	Update(ctx context.Context, task *model.Task) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter model.TaskFilter) ([]model.Task, error)
}

// Notifier publishes a message to a broadcast group without blocking.
type Notifier interface {
	Publish(group, text string)
}

// TaskService orchestrates the task store, the listing cache and the
// notification channel.
type TaskService struct {
	tasks    TaskStore
	cache    cache.ListCache
	notifier Notifier
}

// NewTaskService creates a new TaskService.
func NewTaskService(tasks TaskStore, listCache cache.ListCache, notifier Notifier) *TaskService {
	return &TaskService{
		tasks:    tasks,
		cache:    listCache,
		notifier: notifier,
	}
}

// Create stores a new task owned by userID. Status defaults to "new".
func (s *TaskService) Create(ctx context.Context, userID int64, req model.CreateTaskRequest) (model.TaskResponse, error) {
	status := req.Status
	if status == "" {
		status = model.StatusNew
	}
	if err := validateTaskFields(req.Title, req.Description, status); err != nil {
		return model.TaskResponse{}, err
	}

	now := time.Now().UTC().Truncate(time.Second)
	task := &model.Task{
		Title:           req.Title,
		Description:     req.Description,
		Status:          status,
		CreatedDate:     now,
		LastUpdatedDate: &now,
		UserID:          &userID,
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		return model.TaskResponse{}, err
	}

	// Re-read to pick up the joined owner row.
	created, err := s.tasks.GetByID(ctx, task.ID)
	if err != nil {
		return model.TaskResponse{}, err
	}

	s.cache.InvalidateAll(ctx)

	return created.ToResponse(), nil
}

// Get retrieves a single task. Available to any caller.
func (s *TaskService) Get(ctx context.Context, taskID int64) (model.TaskResponse, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return model.TaskResponse{}, ErrTaskNotFound
		}
		return model.TaskResponse{}, err
	}

	return task.ToResponse(), nil
}

// Update applies the provided fields to a task owned by userID. A
// status change publishes one notification to the public room after
// the row is persisted.
func (s *TaskService) Update(ctx context.Context, userID, taskID int64, req model.UpdateTaskRequest) (model.TaskResponse, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return model.TaskResponse{}, ErrTaskNotFound
		}
		return model.TaskResponse{}, err
	}

	if task.UserID == nil || *task.UserID != userID {
		return model.TaskResponse{}, ErrNotOwner
	}

	if err := validateTaskUpdate(req); err != nil {
		return model.TaskResponse{}, err
	}

	oldStatus := task.Status
	if req.Title != nil {
		task.Title = *req.Title
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.Status != nil {
		task.Status = *req.Status
	}

	now := time.Now().UTC().Truncate(time.Second)
	task.LastUpdatedDate = &now

	if err := s.tasks.Update(ctx, task); err != nil {
		return model.TaskResponse{}, err
	}

	if task.Status != oldStatus {
		s.notifier.Publish(notify.PublicRoom, fmt.Sprintf(
			"status of task %s changed from %s to %s",
			task.Title, oldStatus, task.Status,
		))
	}

	s.cache.InvalidateAll(ctx)

	return task.ToResponse(), nil
}

// Delete removes a task owned by userID.
func (s *TaskService) Delete(ctx context.Context, userID, taskID int64) error {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return ErrTaskNotFound
		}
		return err
	}

	if task.UserID == nil || *task.UserID != userID {
		return ErrNotOwner
	}

	if err := s.tasks.Delete(ctx, taskID); err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return ErrTaskNotFound
		}
		return err
	}

	s.cache.InvalidateAll(ctx)

	return nil
}

// List returns the rendered task listing, served from the cache when a
// fresh entry exists.
func (s *TaskService) List(ctx context.Context, filter model.TaskFilter) ([]byte, error) {
	return s.cache.GetOrPopulate(ctx, listCacheKey("list", filter), func(ctx context.Context) ([]byte, error) {
		return s.renderList(ctx, filter)
	})
}

// ListMine returns the rendered listing restricted to tasks owned by
// userID, with the same optional filters.
func (s *TaskService) ListMine(ctx context.Context, userID int64, filter model.TaskFilter) ([]byte, error) {
	filter.UserID = &userID
	return s.cache.GetOrPopulate(ctx, listCacheKey("mine", filter), func(ctx context.Context) ([]byte, error) {
		return s.renderList(ctx, filter)
	})
}

func (s *TaskService) renderList(ctx context.Context, filter model.TaskFilter) ([]byte, error) {
	tasks, err := s.tasks.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	responses := make([]model.TaskResponse, 0, len(tasks))
	for i := range tasks {
		responses = append(responses, tasks[i].ToResponse())
	}

	return json.Marshal(responses)
}

// listCacheKey renders one key per listing variant. Invalidation stays
// wholesale: any mutation drops every variant.
func listCacheKey(kind string, filter model.TaskFilter) string {
	date := ""
	if filter.CreatedDate != nil {
		date = filter.CreatedDate.Format("2006-01-02")
	}
	user := int64(0)
	if filter.UserID != nil {
		user = *filter.UserID
	}
	return fmt.Sprintf("%s|status=%s|date=%s|user=%d", kind, filter.Status, date, user)
}

// Field bounds count characters, not bytes, matching the column widths.
func validateTaskFields(title, description, status string) error {
	if title == "" {
		return ErrTitleRequired
	}
	if utf8.RuneCountInString(title) > model.TitleMaxLength {
		return ErrTitleTooLong
	}
	if description == "" {
		return ErrDescriptionRequired
	}
	if utf8.RuneCountInString(description) > model.DescriptionMaxLength {
		return ErrDescriptionTooLong
	}
	if !model.ValidStatus(status) {
		return ErrInvalidStatus
	}
	return nil
}

func validateTaskUpdate(req model.UpdateTaskRequest) error {
	if req.Title != nil {
		if *req.Title == "" {
			return ErrTitleRequired
		}
		if utf8.RuneCountInString(*req.Title) > model.TitleMaxLength {
			return ErrTitleTooLong
		}
	}
	if req.Description != nil {
		if *req.Description == "" {
			return ErrDescriptionRequired
		}
		if utf8.RuneCountInString(*req.Description) > model.DescriptionMaxLength {
			return ErrDescriptionTooLong
		}
	}
	if req.Status != nil && !model.ValidStatus(*req.Status) {
		return ErrInvalidStatus
	}
	return nil
}
