package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hrygo/assignflow/store"
)

var instanceFields = []string{
	"uid", "company_id", "series_uid", "sequence_number", "due_ts",
	"title", "description", "priority", "assignee_id", "assigner_id",
	"attachments", "status", "is_active",
}

func instanceValues(create *store.TaskInstance) []any {
	return []any{
		create.UID, create.CompanyID, create.SeriesUID, create.SequenceNumber, create.DueTs,
		create.Title, create.Description, create.Priority, create.AssigneeID, create.AssignerID,
		create.Attachments, create.Status, create.IsActive,
	}
}

// BulkUpsertInstances inserts the batch unordered: each row is written
// independently, conflicts on (series_uid, sequence_number) are skipped, and
// one failing row never blocks its siblings. Only a dead context aborts the
// walk.
func (d *DB) BulkUpsertInstances(ctx context.Context, creates []*store.TaskInstance) (*store.BulkWriteResult, error) {
	stmt := `INSERT INTO task_instance (` + strings.Join(instanceFields, ", ") + `)
		VALUES (` + placeholders(len(instanceFields)) + `)
		ON CONFLICT (series_uid, sequence_number) DO NOTHING`

	result := &store.BulkWriteResult{}
	for i, create := range creates {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("bulk insert aborted: %w", err)
		}

		res, err := d.db.ExecContext(ctx, stmt, instanceValues(create)...)
		if err != nil {
			result.Failed = append(result.Failed, store.BulkWriteError{
				Index:          i,
				SeriesUID:      derefString(create.SeriesUID),
				SequenceNumber: create.SequenceNumber,
				Err:            err,
			})
			continue
		}
		if n, _ := res.RowsAffected(); n == 0 {
			result.Skipped++
		} else {
			result.Inserted++
		}
	}

	return result, nil
}

func (d *DB) ListTaskInstances(ctx context.Context, find *store.FindTaskInstance) ([]*store.TaskInstance, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.ID; v != nil {
		where, args = append(where, "task_instance.id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.UID; v != nil {
		where, args = append(where, "task_instance.uid = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.SeriesUID; v != nil {
		where, args = append(where, "task_instance.series_uid = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.CompanyID; v != nil {
		where, args = append(where, "task_instance.company_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.AssigneeID; v != nil {
		where, args = append(where, "task_instance.assignee_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.Status; v != nil {
		where, args = append(where, "task_instance.status = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.RowStatus; v != nil {
		where, args = append(where, "task_instance.row_status = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.IsActive; v != nil {
		where, args = append(where, "task_instance.is_active = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.DueAfter; v != nil {
		where, args = append(where, "task_instance.due_ts >= "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.DueBefore; v != nil {
		where, args = append(where, "task_instance.due_ts <= "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.AutoDeleteBefore; v != nil {
		where, args = append(where, "task_instance.auto_delete_ts IS NOT NULL AND task_instance.auto_delete_ts <= "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `
		SELECT
			id, uid, row_status, created_ts, updated_ts,
			company_id, series_uid, sequence_number, due_ts,
			title, description, priority, assignee_id, assigner_id,
			attachments, status, completed_ts, completion_note,
			is_active, deleted_ts, auto_delete_ts
		FROM task_instance
		WHERE ` + strings.Join(where, " AND ") + ` ORDER BY task_instance.due_ts ASC, task_instance.sequence_number ASC`

	if find.Limit != nil {
		query = fmt.Sprintf("%s LIMIT %d", query, *find.Limit)
		if find.Offset != nil {
			query = fmt.Sprintf("%s OFFSET %d", query, *find.Offset)
		}
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query task instances: %w", err)
	}
	defer rows.Close()

	list := make([]*store.TaskInstance, 0)
	for rows.Next() {
		instance, err := scanTaskInstance(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, instance)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate task instances: %w", err)
	}

	return list, nil
}

func scanTaskInstance(rows *sql.Rows) (*store.TaskInstance, error) {
	var instance store.TaskInstance
	var seriesUID, attachments, completionNote sql.NullString
	var completedTs, deletedTs, autoDeleteTs sql.NullInt64

	if err := rows.Scan(
		&instance.ID,
		&instance.UID,
		&instance.RowStatus,
		&instance.CreatedTs,
		&instance.UpdatedTs,
		&instance.CompanyID,
		&seriesUID,
		&instance.SequenceNumber,
		&instance.DueTs,
		&instance.Title,
		&instance.Description,
		&instance.Priority,
		&instance.AssigneeID,
		&instance.AssignerID,
		&attachments,
		&instance.Status,
		&completedTs,
		&completionNote,
		&instance.IsActive,
		&deletedTs,
		&autoDeleteTs,
	); err != nil {
		return nil, fmt.Errorf("failed to scan task instance: %w", err)
	}

	if seriesUID.Valid {
		instance.SeriesUID = &seriesUID.String
	}
	if attachments.Valid {
		instance.Attachments = &attachments.String
	}
	if completionNote.Valid {
		instance.CompletionNote = &completionNote.String
	}
	if completedTs.Valid {
		instance.CompletedTs = &completedTs.Int64
	}
	if deletedTs.Valid {
		instance.DeletedTs = &deletedTs.Int64
	}
	if autoDeleteTs.Valid {
		instance.AutoDeleteTs = &autoDeleteTs.Int64
	}

	return &instance, nil
}

func (d *DB) UpdateTaskInstance(ctx context.Context, update *store.UpdateTaskInstance) error {
	set, args := []string{}, []any{}

	if v := update.RowStatus; v != nil {
		set, args = append(set, "row_status = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Status; v != nil {
		set, args = append(set, "status = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.CompletedTs; v != nil {
		set, args = append(set, "completed_ts = "+placeholder(len(args)+1)), append(args, nullableTs(v))
	}
	if v := update.CompletionNote; v != nil {
		set, args = append(set, "completion_note = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.IsActive; v != nil {
		set, args = append(set, "is_active = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.DeletedTs; v != nil {
		set, args = append(set, "deleted_ts = "+placeholder(len(args)+1)), append(args, nullableTs(v))
	}
	if v := update.AutoDeleteTs; v != nil {
		set, args = append(set, "auto_delete_ts = "+placeholder(len(args)+1)), append(args, nullableTs(v))
	}

	if len(set) == 0 {
		return nil
	}

	set = append(set, "updated_ts = strftime('%s', 'now')")
	args = append(args, update.ID)

	stmt := `UPDATE task_instance SET ` + strings.Join(set, ", ") + ` WHERE id = ` + placeholder(len(args))
	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return fmt.Errorf("failed to update task instance: %w", err)
	}

	return nil
}

func (d *DB) UpdateInstancesBySeries(ctx context.Context, update *store.UpdateInstancesBySeries) error {
	set, args := []string{}, []any{}

	if v := update.RowStatus; v != nil {
		set, args = append(set, "row_status = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.IsActive; v != nil {
		set, args = append(set, "is_active = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.DeletedTs; v != nil {
		set, args = append(set, "deleted_ts = "+placeholder(len(args)+1)), append(args, nullableTs(v))
	}
	if v := update.AutoDeleteTs; v != nil {
		set, args = append(set, "auto_delete_ts = "+placeholder(len(args)+1)), append(args, nullableTs(v))
	}

	if len(set) == 0 {
		return nil
	}

	set = append(set, "updated_ts = strftime('%s', 'now')")
	args = append(args, update.SeriesUID)

	stmt := `UPDATE task_instance SET ` + strings.Join(set, ", ") + ` WHERE series_uid = ` + placeholder(len(args))
	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return fmt.Errorf("failed to update instances of series: %w", err)
	}

	return nil
}

func (d *DB) DeleteTaskInstance(ctx context.Context, delete *store.DeleteTaskInstance) error {
	stmt := `DELETE FROM task_instance WHERE id = ` + placeholder(1)
	if _, err := d.db.ExecContext(ctx, stmt, delete.ID); err != nil {
		return fmt.Errorf("failed to delete task instance: %w", err)
	}
	return nil
}

func (d *DB) DeleteInstancesBySeries(ctx context.Context, delete *store.DeleteInstancesBySeries) error {
	stmt := `DELETE FROM task_instance WHERE series_uid = ` + placeholder(1)
	if _, err := d.db.ExecContext(ctx, stmt, delete.SeriesUID); err != nil {
		return fmt.Errorf("failed to delete instances of series: %w", err)
	}
	return nil
}

func (d *DB) CountPendingByAssignee(ctx context.Context, companyID int32) (map[int32]int, error) {
	query := `
		SELECT assignee_id, COUNT(*)
		FROM task_instance
		WHERE company_id = ` + placeholder(1) + `
			AND row_status = 'NORMAL'
			AND is_active = 1
			AND status IN ('pending', 'in-progress', 'overdue')
		GROUP BY assignee_id`

	rows, err := d.db.QueryContext(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to count pending instances: %w", err)
	}
	defer rows.Close()

	counts := make(map[int32]int)
	for rows.Next() {
		var assigneeID int32
		var count int
		if err := rows.Scan(&assigneeID, &count); err != nil {
			return nil, fmt.Errorf("failed to scan pending count: %w", err)
		}
		counts[assigneeID] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pending counts: %w", err)
	}

	return counts, nil
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
