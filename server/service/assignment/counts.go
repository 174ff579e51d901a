package assignment

import (
	"context"
	"fmt"

	apperr "github.com/hrygo/assignflow/server/internal/errors"
)

func pendingCountsKey(companyID int32) string {
	return fmt.Sprintf("pending_counts:%d", companyID)
}

// PendingCounts returns the number of live, unfinished instances per assignee
// for one company. The aggregate is served from the injected cache and
// invalidated by every write path that changes it.
func (s *service) PendingCounts(ctx context.Context, companyID int32) (map[int32]int, error) {
	key := pendingCountsKey(companyID)
	if s.cache != nil {
		if v, ok := s.cache.Get(key); ok {
			if counts, ok := v.(map[int32]int); ok {
				return counts, nil
			}
		}
	}

	counts, err := s.store.CountPendingByAssignee(ctx, companyID)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.ErrCodeFailedPrecondition, "failed to count pending instances")
	}
	if s.cache != nil {
		s.cache.Set(key, counts)
	}
	return counts, nil
}

func (s *service) invalidatePendingCounts(companyID int32) {
	if s.cache != nil {
		s.cache.Delete(pendingCountsKey(companyID))
	}
}
