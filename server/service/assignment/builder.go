package assignment

import (
	"time"

	"github.com/hrygo/assignflow/internal/util"
	"github.com/hrygo/assignflow/store"
)

const defaultPriority = "medium"

// buildInstances materializes expanded dates into instance rows. Sequence
// numbers are dense, 1-based, and follow due-date order; every instance
// carries a full copy of the template fields so it stays readable if the
// master is purged. seriesUID is nil for one-time tasks.
func buildInstances(dates []time.Time, tmpl *Template, seriesUID *string, companyID, assigneeID, assignerID int32, attachments *string) []*store.TaskInstance {
	priority := tmpl.Priority
	if priority == "" {
		priority = defaultPriority
	}
	instances := make([]*store.TaskInstance, 0, len(dates))
	for i, due := range dates {
		instances = append(instances, &store.TaskInstance{
			UID:            util.GenShortUUID(),
			RowStatus:      store.Normal,
			CompanyID:      companyID,
			SeriesUID:      seriesUID,
			SequenceNumber: int32(i + 1),
			DueTs:          due.Unix(),
			Title:          tmpl.Title,
			Description:    tmpl.Description,
			Priority:       priority,
			AssigneeID:     assigneeID,
			AssignerID:     assignerID,
			Attachments:    attachments,
			Status:         store.InstanceStatusPending,
			IsActive:       true,
		})
	}
	return instances
}
