package importer

import (
	"context"
	"time"

	"forum-importer/core/reconcile"
	"forum-importer/feature/forum/records"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Options controls a single import run.
type Options struct {
	// ClearExisting purges every forum table before importing.
	ClearExisting bool
	// DefaultCategory overrides the configured category fallback.
	DefaultCategory string
	// PasswordCost is the bcrypt cost for plaintext passwords; zero means bcrypt.DefaultCost.
	PasswordCost int
}

// Result is the outcome of an import. It is returned even when the run
// aborts, reflecting the stages that committed.
type Result struct {
	RunID      string                             `json:"run_id"`
	State      reconcile.State                    `json:"state"`
	History    []reconcile.State                  `json:"history"`
	Summary    *reconcile.Summary                 `json:"summary"`
	Mappings   map[reconcile.Kind]map[string]uint `json:"mappings"`
	Purged     []PurgeCount                       `json:"purged,omitempty"`
	Stats      Stats                              `json:"stats"`
	StartedAt  time.Time                          `json:"started_at"`
	FinishedAt time.Time                          `json:"finished_at"`
	Error      string                             `json:"error,omitempty"`
}

// Importer runs imports, previews and recounts against one database.
type Importer struct {
	db     *gorm.DB
	logger *zap.Logger
	cfg    reconcile.Config
	cache  *reconcile.IndexCache
}

// New creates an importer.
func New(db *gorm.DB, logger *zap.Logger, cfg reconcile.Config) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{
		db:     db,
		logger: logger,
		cfg:    cfg,
		cache:  reconcile.NewIndexCache(cfg.CacheTTL()),
	}
}

// DefaultCategory is the canonical category used when none is configured.
const DefaultCategory = "Technology Discussion"

// DefaultConfig returns the configuration used by Import.
func DefaultConfig() reconcile.Config {
	return reconcile.Config{
		DefaultCategory: DefaultCategory,
		ReportPrefix:    "reports/imports",
		CacheTTLSeconds: 60,
	}
}

// Import runs set through the pipeline with default configuration.
func Import(ctx context.Context, db *gorm.DB, set *records.RecordSet, opts Options) (*Result, error) {
	return New(db, nil, DefaultConfig()).Import(ctx, set, opts)
}

// Import runs set through the pipeline. The returned error is non-nil only
// when the run aborted on a store failure or cancellation.
func (im *Importer) Import(ctx context.Context, set *records.RecordSet, opts Options) (*Result, error) {
	defaultCategory := opts.DefaultCategory
	if defaultCategory == "" {
		defaultCategory = im.cfg.DefaultCategory
	}

	run := reconcile.NewRun(im.logger)
	for _, kind := range Kinds() {
		run.Summary.Touch(kind)
	}

	resolver := NewResolver(run.Mapper, run.Logger, defaultCategory)
	purge := &purgeStage{}
	stats := &statisticsStage{}
	posts := make(postIDs, len(set.Posts))

	var stages []reconcile.Stage
	if opts.ClearExisting {
		stages = append(stages, purge)
	}
	stages = append(stages,
		&usersStage{users: set.Users, cost: opts.PasswordCost},
		&sectionsStage{sections: set.Sections},
		&categoriesStage{categories: set.Categories},
		&tagsStage{tags: set.Tags},
		&postsStage{posts: set.Posts, resolver: resolver, ids: posts},
		&postTagsStage{posts: set.Posts, resolver: resolver, ids: posts},
		&commentsStage{comments: set.Comments, resolver: resolver},
		&votesStage{votes: set.Votes, resolver: resolver},
		stats,
	)

	result := &Result{RunID: run.ID, StartedAt: time.Now()}
	run.Logger.Info("Import started",
		zap.Int("records", set.Len()),
		zap.Bool("clear_existing", opts.ClearExisting),
	)

	err := reconcile.NewPipeline(im.db, stages...).Execute(ctx, run)
	im.cache.Invalidate()

	result.State = run.State()
	result.History = run.History()
	result.Summary = run.Summary
	result.Mappings = run.Mapper.Snapshot()
	result.Purged = purge.counts
	result.Stats = stats.stats
	result.FinishedAt = time.Now()

	totals := run.Summary.Totals()
	fields := []zap.Field{
		zap.String("state", string(result.State)),
		zap.Int("created", totals.Created),
		zap.Int("skipped", totals.Skipped),
		zap.Int("failed", totals.Failed),
		zap.Duration("elapsed", result.FinishedAt.Sub(result.StartedAt)),
	}
	if err != nil {
		result.Error = err.Error()
		run.Logger.Error("Import aborted", append(fields, zap.Error(err))...)
		return result, err
	}
	run.Logger.Info("Import finished", fields...)
	return result, nil
}

// Recount recalculates denormalized counters outside of an import.
func (im *Importer) Recount(ctx context.Context) (Stats, error) {
	var stats Stats
	err := im.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		stats, err = Recalculate(ctx, tx)
		return err
	})
	if err != nil {
		return Stats{}, err
	}
	im.logger.Info("Counters recalculated", zap.Int64("posts", stats.Posts), zap.Int64("tags", stats.Tags))
	return stats, nil
}

// Preview reports, per natural-keyed kind, what an import of set would do.
func (im *Importer) Preview(ctx context.Context, set *records.RecordSet, clearExisting bool) (*reconcile.PreviewReport, error) {
	return reconcile.Preview(ctx, &reconcile.PreviewSpec{
		Sources:       PreviewSources(set),
		ClearExisting: clearExisting,
		Cache:         im.cache,
	}, im.db)
}

// PreviewSources returns one index source per natural-keyed kind of set.
// Posts are indexed by title only, so a post whose title exists under another
// author previews as a skip even though it would be created.
func PreviewSources(set *records.RecordSet) []reconcile.IndexSource {
	users := make([]string, 0, len(set.Users))
	for _, u := range set.Users {
		users = append(users, u.Username)
	}
	sections := make([]string, 0, len(set.Sections))
	for _, s := range set.Sections {
		sections = append(sections, s.Name)
	}
	categories := make([]string, 0, len(set.Categories))
	for _, c := range set.Categories {
		categories = append(categories, c.Name)
	}
	tags := make([]string, 0, len(set.Tags))
	for _, t := range set.Tags {
		tags = append(tags, t.Name)
	}
	posts := make([]string, 0, len(set.Posts))
	for _, p := range set.Posts {
		posts = append(posts, p.Title)
		tags = append(tags, p.Tags...)
	}

	return []reconcile.IndexSource{
		reconcile.ColumnSource{SourceKind: KindUser, Table: "users", Column: "username", Keys: users},
		reconcile.ColumnSource{SourceKind: KindSection, Table: "sections", Column: "name", Keys: sections},
		reconcile.ColumnSource{SourceKind: KindCategory, Table: "categories", Column: "name", Keys: categories},
		reconcile.ColumnSource{SourceKind: KindTag, Table: "tags", Column: "name", Keys: tags},
		reconcile.ColumnSource{SourceKind: KindPost, Table: "posts", Column: "title", Keys: posts},
	}
}
