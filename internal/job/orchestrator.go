package job

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/insightforge/company-intel/internal/collect"
	"github.com/insightforge/company-intel/internal/model"
	"github.com/insightforge/company-intel/internal/pipeline"
	"github.com/insightforge/company-intel/internal/store"
)

const rawSampleLen = 500

// SubmitResult is the outcome of a submission: either a cached report
// (Cached true, Report set) or the job now tracking the work. When a
// submission deduplicates against an in-flight job, Job is that existing job
// and Attached is true.
type SubmitResult struct {
	Cached   bool
	Attached bool
	Report   *model.Report
	Job      *model.JobRecord
}

// Orchestrator owns the job lifecycle: the dedup/cache gate at submission,
// pipeline execution in a background goroutine, progress accounting, and
// report persistence.
type Orchestrator struct {
	jobs    Store
	reports store.Store
	deps    pipeline.Deps

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator creates an orchestrator over the given stores and pipeline
// collaborators. Close cancels in-flight jobs and waits for them to settle.
func NewOrchestrator(jobs Store, reports store.Store, deps pipeline.Deps) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		jobs:    jobs,
		reports: reports,
		deps:    deps,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Submit runs the dedup/cache gate and, when the work is genuinely new,
// creates a pending job and starts its pipeline in the background.
//
// Gate order: a completed report for the same normalized identity and tier
// wins first (no job is created), then an in-flight job for the same key
// (the caller attaches to it), and only then new work.
func (o *Orchestrator) Submit(ctx context.Context, id model.CompanyIdentity, tier model.AnalysisTier) (*SubmitResult, error) {
	if id.Name == "" || id.URL == "" {
		return nil, eris.New("job: company name and URL are required")
	}

	pl, err := pipeline.ForTier(tier, o.deps)
	if err != nil {
		return nil, err
	}

	key := id.DedupKey(tier)

	if rep, err := o.reports.GetReport(ctx, key); err == nil {
		zap.L().Info("serving cached report",
			zap.String("company", id.Name),
			zap.String("tier", string(tier)),
			zap.String("report_id", rep.ID),
		)
		return &SubmitResult{Cached: true, Report: rep}, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, eris.Wrap(err, "job: cache lookup failed")
	}

	if existing, err := o.jobs.FindActive(ctx, key); err == nil {
		return &SubmitResult{Attached: true, Job: existing}, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	rec := &model.JobRecord{
		ID:       uuid.NewString(),
		Identity: id,
		Tier:     tier,
		Progress: model.Progress{TotalSteps: pl.TotalSteps(), Label: "Queued"},
	}
	if err := o.jobs.Create(ctx, rec); err != nil {
		// Lost the race to a concurrent submit of the same work.
		if errors.Is(err, ErrActiveExists) {
			if existing, ferr := o.jobs.FindActive(ctx, key); ferr == nil {
				return &SubmitResult{Attached: true, Job: existing}, nil
			}
		}
		return nil, err
	}

	created, err := o.jobs.Get(ctx, rec.ID)
	if err != nil {
		return nil, err
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.execute(created, pl)
	}()

	return &SubmitResult{Job: created}, nil
}

// Status returns a snapshot of the job record.
func (o *Orchestrator) Status(ctx context.Context, id string) (*model.JobRecord, error) {
	return o.jobs.Get(ctx, id)
}

// Report returns a persisted report by its report ID.
func (o *Orchestrator) Report(ctx context.Context, id string) (*model.Report, error) {
	return o.reports.GetReportByID(ctx, id)
}

// Evict removes terminal job records older than the cutoff. Reports are
// untouched; they are the durable artifact.
func (o *Orchestrator) Evict(ctx context.Context, olderThan time.Duration) (int, error) {
	return o.jobs.Evict(ctx, olderThan)
}

// Close cancels in-flight jobs and waits for their goroutines to settle.
func (o *Orchestrator) Close() {
	o.cancel()
	o.wg.Wait()
}

// execute drives one job through its pipeline. It runs detached from the
// submitting request; only orchestrator shutdown cancels it.
func (o *Orchestrator) execute(rec *model.JobRecord, pl *pipeline.Pipeline) {
	log := zap.L().With(
		zap.String("job_id", rec.ID),
		zap.String("company", rec.Identity.Name),
		zap.String("tier", string(rec.Tier)),
	)

	if err := o.jobs.Claim(o.ctx, rec.ID); err != nil {
		log.Error("claim failed", zap.Error(err))
		return
	}

	start := time.Now()
	st := &pipeline.State{Identity: rec.Identity, Tier: rec.Tier}
	total := pl.TotalSteps()

	for i, stage := range pl.Stages() {
		progress := model.Progress{CurrentStep: i + 1, TotalSteps: total, Label: stage.Label()}
		if err := o.jobs.UpdateProgress(o.ctx, rec.ID, progress); err != nil {
			log.Error("progress update failed", zap.Error(err))
			return
		}
		log.Info("stage starting", zap.String("stage", stage.Name()), zap.Int("step", i+1), zap.Int("total", total))

		if err := stage.Run(o.ctx, st); err != nil {
			o.fail(log, rec.ID, stageError(stage.Name(), err))
			return
		}
	}

	rep := &model.Report{
		ID:             uuid.NewString(),
		JobID:          rec.ID,
		Identity:       rec.Identity,
		Tier:           rec.Tier,
		Sections:       st.Sections,
		Embedding:      st.Embedding,
		SourceFailures: st.Failures,
		ContentLength:  len(st.Aggregate),
		RawSample:      sample(st.Aggregate),
		ProcessingSecs: time.Since(start).Seconds(),
		CompletedAt:    time.Now().UTC(),
	}
	if err := o.reports.PutReport(o.ctx, rep); err != nil {
		o.fail(log, rec.ID, &model.JobError{Stage: "persist", Cause: eris.Wrap(err, "job: report write failed").Error()})
		return
	}

	if err := o.jobs.Complete(o.ctx, rec.ID, rep.ID); err != nil {
		log.Error("complete failed", zap.Error(err))
		return
	}
	log.Info("job complete",
		zap.String("report_id", rep.ID),
		zap.Int("soft_failures", len(rep.SourceFailures)),
		zap.Float64("seconds", rep.ProcessingSecs),
	)
}

func (o *Orchestrator) fail(log *zap.Logger, id string, jerr *model.JobError) {
	log.Error("job failed",
		zap.String("stage", jerr.Stage),
		zap.String("source", jerr.Source),
		zap.String("cause", jerr.Cause),
	)
	if err := o.jobs.Fail(o.ctx, id, jerr); err != nil {
		log.Error("failure record failed", zap.Error(err))
	}
}

func sample(s string) string {
	if len(s) > rawSampleLen {
		return s[:rawSampleLen]
	}
	return s
}

// stageError builds the structured failure cause, surfacing the failing
// source when a required-source fetch aborted a collection stage.
func stageError(stage string, err error) *model.JobError {
	var rse *collect.RequiredSourceError
	if errors.As(err, &rse) {
		return &model.JobError{Stage: stage, Source: rse.Source, Cause: rse.Err.Error()}
	}
	return &model.JobError{Stage: stage, Cause: err.Error()}
}
