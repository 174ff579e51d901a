package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hrygo/assignflow/store"
)

func (d *DB) CreateMasterSeries(ctx context.Context, create *store.MasterSeries) (*store.MasterSeries, error) {
	fields := []string{
		"uid", "company_id", "title", "description", "priority",
		"assignee_id", "assigner_id", "attachments",
		"pattern", "start_ts", "end_ts", "forever", "include_sunday",
		"weekly_days", "monthly_day", "yearly_duration", "week_off_days",
		"is_active", "regenerating",
	}
	placeholderValues := []any{
		create.UID, create.CompanyID, create.Title, create.Description, create.Priority,
		create.AssigneeID, create.AssignerID, create.Attachments,
		create.Pattern, create.StartTs, create.EndTs, create.Forever, create.IncludeSunday,
		create.WeeklyDays, create.MonthlyDay, create.YearlyDuration, create.WeekOffDays,
		create.IsActive, create.Regenerating,
	}

	stmt := `INSERT INTO master_series (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(placeholderValues)) + `)
		RETURNING id, created_ts, updated_ts, row_status`

	if err := d.db.QueryRowContext(ctx, stmt, placeholderValues...).Scan(
		&create.ID,
		&create.CreatedTs,
		&create.UpdatedTs,
		&create.RowStatus,
	); err != nil {
		return nil, fmt.Errorf("failed to create master series: %w", err)
	}

	return create, nil
}

func (d *DB) ListMasterSeries(ctx context.Context, find *store.FindMasterSeries) ([]*store.MasterSeries, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.ID; v != nil {
		where, args = append(where, "master_series.id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.UID; v != nil {
		where, args = append(where, "master_series.uid = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.CompanyID; v != nil {
		where, args = append(where, "master_series.company_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.AssigneeID; v != nil {
		where, args = append(where, "master_series.assignee_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.RowStatus; v != nil {
		where, args = append(where, "master_series.row_status = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.IsActive; v != nil {
		where, args = append(where, "master_series.is_active = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.Regenerating; v != nil {
		where, args = append(where, "master_series.regenerating = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.AutoDeleteBefore; v != nil {
		where, args = append(where, "master_series.auto_delete_ts IS NOT NULL AND master_series.auto_delete_ts <= "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `
		SELECT
			id, uid, row_status, created_ts, updated_ts,
			company_id, title, description, priority,
			assignee_id, assigner_id, attachments,
			pattern, start_ts, end_ts, forever, include_sunday,
			weekly_days, monthly_day, yearly_duration, week_off_days,
			is_active, regenerating, deleted_ts, auto_delete_ts
		FROM master_series
		WHERE ` + strings.Join(where, " AND ") + ` ORDER BY master_series.created_ts DESC, master_series.id DESC`

	if find.Limit != nil {
		query = fmt.Sprintf("%s LIMIT %d", query, *find.Limit)
		if find.Offset != nil {
			query = fmt.Sprintf("%s OFFSET %d", query, *find.Offset)
		}
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query master series: %w", err)
	}
	defer rows.Close()

	list := make([]*store.MasterSeries, 0)
	for rows.Next() {
		series, err := scanMasterSeries(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, series)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate master series: %w", err)
	}

	return list, nil
}

func scanMasterSeries(rows *sql.Rows) (*store.MasterSeries, error) {
	var series store.MasterSeries
	var attachments, weeklyDays, weekOffDays sql.NullString
	var endTs, deletedTs, autoDeleteTs sql.NullInt64

	if err := rows.Scan(
		&series.ID,
		&series.UID,
		&series.RowStatus,
		&series.CreatedTs,
		&series.UpdatedTs,
		&series.CompanyID,
		&series.Title,
		&series.Description,
		&series.Priority,
		&series.AssigneeID,
		&series.AssignerID,
		&attachments,
		&series.Pattern,
		&series.StartTs,
		&endTs,
		&series.Forever,
		&series.IncludeSunday,
		&weeklyDays,
		&series.MonthlyDay,
		&series.YearlyDuration,
		&weekOffDays,
		&series.IsActive,
		&series.Regenerating,
		&deletedTs,
		&autoDeleteTs,
	); err != nil {
		return nil, fmt.Errorf("failed to scan master series: %w", err)
	}

	if attachments.Valid {
		series.Attachments = &attachments.String
	}
	if weeklyDays.Valid {
		series.WeeklyDays = &weeklyDays.String
	}
	if weekOffDays.Valid {
		series.WeekOffDays = &weekOffDays.String
	}
	if endTs.Valid {
		series.EndTs = &endTs.Int64
	}
	if deletedTs.Valid {
		series.DeletedTs = &deletedTs.Int64
	}
	if autoDeleteTs.Valid {
		series.AutoDeleteTs = &autoDeleteTs.Int64
	}

	return &series, nil
}

func (d *DB) UpdateMasterSeries(ctx context.Context, update *store.UpdateMasterSeries) error {
	set, args := []string{}, []any{}

	if v := update.RowStatus; v != nil {
		set, args = append(set, "row_status = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Title; v != nil {
		set, args = append(set, "title = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Description; v != nil {
		set, args = append(set, "description = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Priority; v != nil {
		set, args = append(set, "priority = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.AssigneeID; v != nil {
		set, args = append(set, "assignee_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Attachments; v != nil {
		set, args = append(set, "attachments = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Pattern; v != nil {
		set, args = append(set, "pattern = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.StartTs; v != nil {
		set, args = append(set, "start_ts = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.EndTs; v != nil {
		set, args = append(set, "end_ts = "+placeholder(len(args)+1)), append(args, nullableTs(v))
	}
	if v := update.Forever; v != nil {
		set, args = append(set, "forever = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.IncludeSunday; v != nil {
		set, args = append(set, "include_sunday = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.WeeklyDays; v != nil {
		set, args = append(set, "weekly_days = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.MonthlyDay; v != nil {
		set, args = append(set, "monthly_day = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.YearlyDuration; v != nil {
		set, args = append(set, "yearly_duration = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.WeekOffDays; v != nil {
		set, args = append(set, "week_off_days = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.IsActive; v != nil {
		set, args = append(set, "is_active = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Regenerating; v != nil {
		set, args = append(set, "regenerating = "+placeholder(len(args)+1)), append(args, *v)
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

	set = append(set, "updated_ts = EXTRACT(EPOCH FROM NOW())")
	args = append(args, update.ID)

	stmt := `UPDATE master_series SET ` + strings.Join(set, ", ") + ` WHERE id = ` + placeholder(len(args))
	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return fmt.Errorf("failed to update master series: %w", err)
	}

	return nil
}

func (d *DB) DeleteMasterSeries(ctx context.Context, delete *store.DeleteMasterSeries) error {
	stmt := `DELETE FROM master_series WHERE id = ` + placeholder(1)
	if _, err := d.db.ExecContext(ctx, stmt, delete.ID); err != nil {
		return fmt.Errorf("failed to delete master series: %w", err)
	}
	return nil
}
