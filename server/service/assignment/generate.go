package assignment

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hrygo/assignflow/internal/util"
	apperr "github.com/hrygo/assignflow/server/internal/errors"
	"github.com/hrygo/assignflow/server/internal/observability"
	"github.com/hrygo/assignflow/server/scheduler/recur"
	"github.com/hrygo/assignflow/store"
)

// expandConcurrency bounds the parallel (template, assignee) expansions of
// one request. Expansion is pure CPU work; a small limit keeps a wide request
// from starving its neighbors.
const expandConcurrency = 8

type pairPlan struct {
	templateIndex int
	assigneeID    int32
	template      *Template
	attachments   *string
}

type pairResult struct {
	plan      *pairPlan
	series    *store.MasterSeries
	instances []*store.TaskInstance
	err       error
}

// Generate fans every template out across every assignee, expands each pair
// into dated instances, and persists them in one unordered batch. Failures
// are isolated per pair: a malformed rule or a write failure on one
// combination never blocks the others.
func (s *service) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResult, error) {
	if req == nil {
		return nil, apperr.InvalidArgument("request is required")
	}
	if len(req.Templates) == 0 {
		return nil, apperr.InvalidArgument("at least one template is required")
	}
	if len(req.AssigneeIDs) == 0 {
		return nil, apperr.InvalidArgument("at least one assignee is required")
	}

	reqCtx := observability.NewRequestContext(s.logger, "generate", req.CompanyID)
	reqCtx.Info("bulk generation started",
		slog.Int("templates", len(req.Templates)),
		slog.Int("assignees", len(req.AssigneeIDs)))

	result := &GenerateResult{}

	// Validate each template once and resolve its attachments once; every
	// pair of the template reuses the outcome.
	plans := make([]*pairPlan, 0, len(req.Templates)*len(req.AssigneeIDs))
	for ti := range req.Templates {
		tmpl := &req.Templates[ti]
		var tmplErr error
		if tmpl.Title == "" {
			tmplErr = apperr.InvalidArgument("template %d: title is required", ti)
		} else if err := tmpl.Rule.Validate(); err != nil {
			tmplErr = apperr.Wrap(err, apperr.ErrCodeInvalidArgument, "invalid recurrence rule")
		}
		var attachments *string
		if tmplErr == nil {
			attachments, tmplErr = resolveAttachments(tmpl.Attachments, s.resolver)
		}
		if tmplErr != nil {
			for _, assigneeID := range req.AssigneeIDs {
				result.PairErrors = append(result.PairErrors, PairError{
					TemplateIndex: ti,
					AssigneeID:    assigneeID,
					Err:           tmplErr,
				})
			}
			continue
		}
		for _, assigneeID := range req.AssigneeIDs {
			plans = append(plans, &pairPlan{
				templateIndex: ti,
				assigneeID:    assigneeID,
				template:      tmpl,
				attachments:   attachments,
			})
		}
	}

	results := make([]*pairResult, len(plans))
	var g errgroup.Group
	g.SetLimit(expandConcurrency)
	for i, plan := range plans {
		i, plan := i, plan
		g.Go(func() error {
			// Per-pair failures land in the result slot; siblings keep going.
			results[i] = s.expandPair(req, plan)
			return nil
		})
	}
	_ = g.Wait()

	// Persist sequentially: series rows first, then every instance of the
	// request in one unordered batch.
	var batch []*store.TaskInstance
	var persisted []*pairResult
	for _, res := range results {
		if res.err != nil {
			result.PairErrors = append(result.PairErrors, PairError{
				TemplateIndex: res.plan.templateIndex,
				AssigneeID:    res.plan.assigneeID,
				Err:           res.err,
			})
			continue
		}
		if res.series != nil {
			created, err := s.store.CreateMasterSeries(ctx, res.series)
			if err != nil {
				result.PairErrors = append(result.PairErrors, PairError{
					TemplateIndex: res.plan.templateIndex,
					AssigneeID:    res.plan.assigneeID,
					Err:           apperr.Wrap(err, apperr.ErrCodeFailedPrecondition, "failed to create series"),
				})
				continue
			}
			res.series = created
			result.SeriesUIDs = append(result.SeriesUIDs, created.UID)
		}
		batch = append(batch, res.instances...)
		persisted = append(persisted, res)
	}

	if len(batch) > 0 {
		bulk, err := s.store.BulkUpsertInstances(ctx, batch)
		if err != nil {
			return nil, apperr.Wrap(err, apperr.ErrCodePartialPersistence, "bulk instance write aborted")
		}
		result.CreatedCount = bulk.Inserted
		result.SkippedCount = bulk.Skipped
		result.FailedCount = len(bulk.Failed)
		if len(bulk.Failed) > 0 {
			reqCtx.Error("bulk instance write partially failed",
				apperr.PartialPersistence(bulk.Inserted, len(bulk.Failed)),
				slog.Int("failed", len(bulk.Failed)))
		}
	}

	for _, res := range persisted {
		if res.series != nil && res.series.Forever {
			if err := s.healSeriesEnd(ctx, res.series.UID); err != nil {
				reqCtx.Warn("failed to heal series end date",
					slog.String(observability.LogFieldSeriesUID, res.series.UID),
					slog.String("error", err.Error()))
			}
		}
		s.notifyPair(req, res)
	}

	s.invalidatePendingCounts(req.CompanyID)

	reqCtx.Info("bulk generation finished",
		slog.Int("created", result.CreatedCount),
		slog.Int("skipped", result.SkippedCount),
		slog.Int("failed", result.FailedCount),
		slog.Int("pair_errors", len(result.PairErrors)),
		slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()))
	return result, nil
}

// expandPair turns one (template, assignee) combination into its series row
// and instance rows, without touching the store.
func (s *service) expandPair(req *GenerateRequest, plan *pairPlan) *pairResult {
	res := &pairResult{plan: plan}
	rule := plan.template.Rule

	windowStart, windowEnd := expansionWindow(rule)
	dates, err := recur.Expand(rule, windowStart, windowEnd)
	if err != nil {
		res.err = apperr.Wrap(err, apperr.ErrCodeInvalidArgument, "rule expansion failed")
		return res
	}
	if len(dates) == 0 {
		res.err = apperr.InvalidArgument("rule yields no occurrences")
		return res
	}

	var seriesUID *string
	if rule.Pattern != recur.OneTime {
		series := &store.MasterSeries{
			UID:         util.GenUUID(),
			RowStatus:   store.Normal,
			CompanyID:   req.CompanyID,
			Title:       plan.template.Title,
			Description: plan.template.Description,
			Priority:    plan.template.Priority,
			AssigneeID:  plan.assigneeID,
			AssignerID:  req.AssignerID,
			Attachments: plan.attachments,
			IsActive:    true,
		}
		if series.Priority == "" {
			series.Priority = defaultPriority
		}
		applyRuleToSeries(series, rule)
		res.series = series
		seriesUID = &series.UID
	}

	res.instances = buildInstances(dates, plan.template, seriesUID,
		req.CompanyID, plan.assigneeID, req.AssignerID, plan.attachments)
	return res
}

// healSeriesEnd reconciles the stored end date of a series with the last due
// date its live instances actually reach. Forever series carry a provisional
// horizon during expansion; the healed end date is what reassignment later
// extends from.
func (s *service) healSeriesEnd(ctx context.Context, seriesUID string) error {
	normal := store.Normal
	instances, err := s.store.ListTaskInstances(ctx, &store.FindTaskInstance{
		SeriesUID: &seriesUID,
		RowStatus: &normal,
	})
	if err != nil {
		return err
	}
	if len(instances) == 0 {
		return nil
	}
	var maxDue int64
	for _, inst := range instances {
		if inst.DueTs > maxDue {
			maxDue = inst.DueTs
		}
	}

	series, err := s.store.GetMasterSeries(ctx, &store.FindMasterSeries{UID: &seriesUID})
	if err != nil {
		return err
	}
	if series == nil {
		return apperr.SeriesNotFound(seriesUID)
	}
	if series.EndTs != nil && *series.EndTs == maxDue {
		return nil
	}
	return s.store.UpdateMasterSeries(ctx, &store.UpdateMasterSeries{
		ID:    series.ID,
		EndTs: &maxDue,
	})
}

func (s *service) notifyPair(req *GenerateRequest, res *pairResult) {
	if len(res.instances) == 0 {
		return
	}
	notice := AssignmentNotice{
		CompanyID:     req.CompanyID,
		AssigneeID:    res.plan.assigneeID,
		Title:         res.plan.template.Title,
		FirstDue:      time.Unix(res.instances[0].DueTs, 0).UTC(),
		InstanceCount: len(res.instances),
	}
	if res.series != nil {
		notice.SeriesUID = res.series.UID
	}
	s.dispatcher.enqueue(notice)
}
