package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// State is a pipeline state. Between the initial and terminal states the
// state is the name of the stage currently executing.
type State string

const (
	// StateIdle is the initial state of a run.
	StateIdle State = "idle"
	// StateComplete is the terminal state after every stage committed.
	StateComplete State = "complete"
	// StateAborted is the terminal state after an infrastructure failure.
	StateAborted State = "aborted"
)

// Stage is one step of the import pipeline. Execute must attempt every record
// of its kind; per-record failures are contained via Run.Handle and only
// store failures are returned.
type Stage interface {
	// Name returns the stage name, used as the pipeline state while it runs.
	Name() string

	// Execute runs the stage inside tx. Returning an error rolls back tx.
	Execute(ctx context.Context, tx *gorm.DB, run *Run) error
}

// Run is the explicit run-scoped context shared by every stage. It is owned by
// the Pipeline for one invocation and discarded afterwards.
type Run struct {
	// ID uniquely identifies the run in logs and reports.
	ID string

	// Mapper holds the foreign key → backend id mappings produced so far.
	Mapper *Mapper

	// Summary accumulates per-kind outcomes.
	Summary *Summary

	// Logger is scoped to the run (run_id field).
	Logger *zap.Logger

	state   State
	history []State
}

// NewRun creates an idle run.
func NewRun(logger *zap.Logger) *Run {
	if logger == nil {
		logger = zap.NewNop()
	}
	id := uuid.NewString()
	return &Run{
		ID:      id,
		Mapper:  NewMapper(),
		Summary: NewSummary(),
		Logger:  logger.With(zap.String("run_id", id)),
		state:   StateIdle,
		history: []State{StateIdle},
	}
}

// State returns the current state.
func (r *Run) State() State {
	return r.state
}

// History returns every state the run went through, in order.
func (r *Run) History() []State {
	out := make([]State, len(r.history))
	copy(out, r.history)
	return out
}

func (r *Run) transition(s State) {
	r.state = s
	r.history = append(r.history, s)
}

// Created records a created row of kind.
func (r *Run) Created(kind Kind) {
	r.Summary.AddCreated(kind)
}

// Skipped records a duplicate of kind.
func (r *Run) Skipped(kind Kind, key string) {
	r.Summary.AddSkipped(kind, key, ReasonDuplicateNaturalKey, "")
	r.Logger.Debug("Record already present",
		zap.String("kind", string(kind)),
		zap.String("key", key),
	)
}

// Handle contains per-record errors and passes store failures through.
// A RecordError is logged and counted as failed and nil is returned; any other
// non-nil error is returned as a StoreError so the stage aborts.
func (r *Run) Handle(kind Kind, key string, err error) error {
	if err == nil {
		return nil
	}
	if re, ok := AsRecordError(err); ok {
		detail := ""
		if re.Err != nil {
			detail = re.Err.Error()
		}
		r.Summary.AddFailed(kind, key, re.Reason, detail)
		r.Logger.Warn("Record dropped",
			zap.String("kind", string(kind)),
			zap.String("key", key),
			zap.String("reason", string(re.Reason)),
			zap.String("detail", detail),
		)
		return nil
	}
	return StoreFailure(fmt.Sprintf("%s %q", kind, key), err)
}

// Pipeline executes stages in strict order, each in its own transaction.
type Pipeline struct {
	db     *gorm.DB
	stages []Stage
}

// NewPipeline creates a pipeline over db.
func NewPipeline(db *gorm.DB, stages ...Stage) *Pipeline {
	return &Pipeline{db: db, stages: stages}
}

// Stages returns the stage names in execution order.
func (p *Pipeline) Stages() []string {
	names := make([]string, len(p.stages))
	for i, st := range p.stages {
		names[i] = st.Name()
	}
	return names
}

// Execute runs every stage. A stage fully completes and commits before the
// next one starts. On the first store failure (or context cancellation) the
// current stage is rolled back, the run moves to StateAborted and the error is
// returned; stages that already committed are kept.
func (p *Pipeline) Execute(ctx context.Context, run *Run) error {
	if run.State() != StateIdle {
		return fmt.Errorf("run %s is not idle (state %s)", run.ID, run.State())
	}

	for _, st := range p.stages {
		st := st
		name := st.Name()

		if err := ctx.Err(); err != nil {
			run.transition(StateAborted)
			return fmt.Errorf("pipeline interrupted before stage %s: %w", name, err)
		}

		run.transition(State(name))
		started := time.Now()
		run.Logger.Info("Stage started", zap.String("stage", name))

		err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return st.Execute(ctx, tx, run)
		})
		if err != nil {
			run.transition(StateAborted)
			run.Logger.Error("Stage aborted", zap.String("stage", name), zap.Error(err))
			return fmt.Errorf("stage %s: %w", name, StoreFailure("commit "+name, err))
		}

		run.Logger.Info("Stage finished",
			zap.String("stage", name),
			zap.Duration("elapsed", time.Since(started)),
		)
	}

	run.transition(StateComplete)
	return nil
}
