package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/qwertttyyy/TaskManagement/internal/model"
)

var ErrTaskNotFound = errors.New("task not found")

// TaskRepository handles task persistence operations. Reads join the
// owner row so responses can embed the owner without a second query.
type TaskRepository struct {
	db *sql.DB
}

// NewTaskRepository creates a new TaskRepository.
func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

const taskSelect = `SELECT t.id, t.title, t.description, t.status,
		t.created_date, t.last_updated_date, t.user_id,
		u.id, u.email, u.first_name
	FROM tasks t
	LEFT JOIN users u ON u.id = t.user_id`

// Create inserts a new task and sets the generated ID on the task struct.
func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	query := `INSERT INTO tasks (title, description, status, created_date, last_updated_date, user_id)
		VALUES (?, ?, ?, ?, ?, ?)`

	var userID any
	if task.UserID != nil {
		userID = *task.UserID
	}

	result, err := r.db.ExecContext(ctx, query,
		task.Title, task.Description, task.Status,
		task.CreatedDate, task.LastUpdatedDate, userID,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}

	task.ID = id
	return nil
}

// GetByID retrieves a task with its owner by task ID.
func (r *TaskRepository) GetByID(ctx context.Context, id int64) (*model.Task, error) {
	row := r.db.QueryRowContext(ctx, taskSelect+` WHERE t.id = ?`, id)

	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}

	return task, nil
}

// Update persists the mutable task fields. The caller is expected to
// have loaded the row first, so a vanished row surfaces as not found.
func (r *TaskRepository) Update(ctx context.Context, task *model.Task) error {
	query := `UPDATE tasks SET title = ?, description = ?, status = ?, last_updated_date = ?
		WHERE id = ?`

	// MySQL reports zero affected rows for a no-op update on an existing
	// row, so existence is not inferred from RowsAffected here.
	_, err := r.db.ExecContext(ctx, query,
		task.Title, task.Description, task.Status, task.LastUpdatedDate, task.ID,
	)
	return err
}

// Delete removes a task row permanently.
func (r *TaskRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrTaskNotFound
	}

	return nil
}

// List retrieves tasks with their owners, newest first, applying the
// optional status, creation-day and owner filters.
func (r *TaskRepository) List(ctx context.Context, filter model.TaskFilter) ([]model.Task, error) {
	query := taskSelect
	var (
		conds []string
		args  []any
	)

	if filter.Status != "" {
		conds = append(conds, "t.status = ?")
		args = append(args, filter.Status)
	}
	if filter.CreatedDate != nil {
		conds = append(conds, "DATE(t.created_date) = ?")
		args = append(args, filter.CreatedDate.Format("2006-01-02"))
	}
	if filter.UserID != nil {
		conds = append(conds, "t.user_id = ?")
		args = append(args, *filter.UserID)
	}

	for i, cond := range conds {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += " ORDER BY t.created_date DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}

	return tasks, rows.Err()
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (*model.Task, error) {
	var (
		task        model.Task
		lastUpdated sql.NullTime
		userID      sql.NullInt64
		ownerID     sql.NullInt64
		ownerEmail  sql.NullString
		ownerName   sql.NullString
	)

	err := row.Scan(
		&task.ID, &task.Title, &task.Description, &task.Status,
		&task.CreatedDate, &lastUpdated, &userID,
		&ownerID, &ownerEmail, &ownerName,
	)
	if err != nil {
		return nil, err
	}

	if lastUpdated.Valid {
		t := lastUpdated.Time
		task.LastUpdatedDate = &t
	}
	if userID.Valid {
		id := userID.Int64
		task.UserID = &id
	}
	if ownerID.Valid {
		task.User = &model.User{
			ID:        ownerID.Int64,
			Email:     ownerEmail.String,
			FirstName: ownerName.String,
		}
	}

	return &task, nil
}
