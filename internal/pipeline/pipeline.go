// Package pipeline drives the backlog of unprocessed meetings through
// classification, extraction, and the store writer.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/call-pipeline/internal/classify"
	"github.com/sells-group/call-pipeline/internal/cost"
	"github.com/sells-group/call-pipeline/internal/extract"
	"github.com/sells-group/call-pipeline/internal/model"
	"github.com/sells-group/call-pipeline/internal/resilience"
	"github.com/sells-group/call-pipeline/internal/resolve"
	"github.com/sells-group/call-pipeline/internal/writer"
	"github.com/sells-group/call-pipeline/pkg/anthropic"
)

// Store is the persistence a run needs.
type Store interface {
	writer.Store

	ListUnprocessed(ctx context.Context, limit int) ([]model.RawMeeting, error)
	SetClassification(ctx context.Context, meetingID string, category model.Category) error
	MarkProcessed(ctx context.Context, meetingID string, at time.Time) error
}

// Classifier assigns a category to one meeting.
type Classifier interface {
	Classify(ctx context.Context, meeting model.RawMeeting) (classify.Result, error)
}

// Extractor produces the structured form of a sales call.
type Extractor interface {
	Adequate(transcript string) bool
	Extract(ctx context.Context, in extract.Input) (*model.ExtractionResult, anthropic.TokenUsage, error)
}

// Limiter blocks before a model call.
type Limiter interface {
	Wait(ctx context.Context) error
}

// DefaultPageSize is how many unprocessed meetings a run reads at a time.
const DefaultPageSize = 100

// Config holds run settings.
type Config struct {
	InternalDomain string
	ClassifyModel  string
	ExtractModel   string
	PageSize       int // 0 uses DefaultPageSize
}

// Pipeline processes unprocessed meetings one at a time.
type Pipeline struct {
	cfg        Config
	store      Store
	classifier Classifier
	extractor  Extractor
	limiter    Limiter
	costCalc   *cost.Calculator
	now        func() time.Time
}

// New creates a Pipeline. limiter runs before every extraction call and
// may be nil. costCalc may be nil to use the default rates.
func New(cfg Config, st Store, classifier Classifier, extractor Extractor, limiter Limiter, costCalc *cost.Calculator) *Pipeline {
	if costCalc == nil {
		costCalc = cost.NewCalculator(nil)
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	return &Pipeline{
		cfg:        cfg,
		store:      st,
		classifier: classifier,
		extractor:  extractor,
		limiter:    limiter,
		costCalc:   costCalc,
		now:        time.Now,
	}
}

// Run processes up to limit unprocessed meetings (0 means all) and returns
// the run statistics. The backlog is read a page at a time; each meeting is
// marked processed before the next page is listed, so a page never repeats
// one. Meetings imported while a run is in progress may be picked up by it. Every meeting handled is marked processed whatever
// its outcome. An error is returned only when the backlog cannot be read,
// a meeting cannot be marked processed, or ctx is cancelled between
// meetings; the statistics gathered so far are returned with it.
func (p *Pipeline) Run(ctx context.Context, limit int) (*model.RunStats, error) {
	stats := model.NewRunStats()
	defer func() { stats.FinishedAt = p.now().UTC() }()

	zap.L().Info("pipeline: starting run", zap.Int("limit", limit), zap.Int("page_size", p.cfg.PageSize))

	// Identity caches live for one run only.
	w := writer.New(p.store, resolve.New(p.store, p.cfg.InternalDomain))

	seen := make(map[string]struct{})
	for limit <= 0 || stats.Total < limit {
		if err := ctx.Err(); err != nil {
			return stats, eris.Wrap(err, "pipeline: run cancelled")
		}
		n := p.cfg.PageSize
		if limit > 0 {
			n = min(n, limit-stats.Total)
		}
		page, err := p.store.ListUnprocessed(ctx, n)
		if err != nil {
			return stats, eris.Wrap(err, "pipeline: list unprocessed meetings")
		}

		for _, m := range page {
			if err := ctx.Err(); err != nil {
				return stats, eris.Wrap(err, "pipeline: run cancelled")
			}
			if _, ok := seen[m.ID]; ok {
				return stats, eris.Errorf("pipeline: meeting %s listed again after it was processed", m.ExternalID)
			}
			seen[m.ID] = struct{}{}
			if err := p.processOne(ctx, w, m, stats); err != nil {
				return stats, err
			}
		}
		if len(page) < n {
			break
		}
	}

	zap.L().Info("pipeline: run complete",
		zap.Int("total", stats.Total),
		zap.Int("sales", stats.ByCategory[model.CategorySales]),
		zap.Int("extracted", stats.Extracted),
		zap.Int("extraction_errors", stats.ExtractionErrors),
		zap.Int("skipped_short", stats.SkippedShort),
		zap.Float64("cost_usd", stats.Usage.Cost),
	)
	return stats, nil
}

func (p *Pipeline) processOne(ctx context.Context, w *writer.Writer, m model.RawMeeting, stats *model.RunStats) error {
	log := zap.L().With(zap.String("external_id", m.ExternalID))
	stats.Total++

	res, err := p.classifier.Classify(ctx, m)
	p.addUsage(stats, p.cfg.ClassifyModel, res.Usage)
	category := res.Category
	if err != nil {
		var llmErr *classify.LLMError
		if errors.As(err, &llmErr) {
			stats.ClassifyLLMErrors++
		} else {
			stats.ClassifyRuleErrors++
		}
		log.Warn("pipeline: classification failed, treating as other",
			zap.String("failure", resilience.Label(err)),
			zap.Error(err),
		)
		category = model.CategoryOther
	} else if res.Tier == classify.TierLLM {
		stats.LLMClassified++
	}
	if _, ok := model.ParseCategory(string(category)); !ok {
		category = model.CategoryOther
	}
	stats.ByCategory[category]++
	log.Debug("pipeline: classified",
		zap.String("category", string(category)),
		zap.String("tier", string(res.Tier)),
		zap.String("reason", res.Reason),
	)

	if err := p.store.SetClassification(ctx, m.ID, category); err != nil {
		log.Warn("pipeline: persist classification failed", zap.Error(err))
	}

	if category == model.CategorySales {
		p.extractAndWrite(ctx, w, m, stats, log)
	}

	if err := p.store.MarkProcessed(ctx, m.ID, p.now().UTC()); err != nil {
		return eris.Wrapf(err, "pipeline: mark %s processed", m.ExternalID)
	}
	return nil
}

func (p *Pipeline) extractAndWrite(ctx context.Context, w *writer.Writer, m model.RawMeeting, stats *model.RunStats, log *zap.Logger) {
	meta, err := m.DecodeMetadata()
	if err != nil {
		stats.ExtractionErrors++
		log.Warn("pipeline: undecodable metadata", zap.Error(err))
		return
	}
	if !p.extractor.Adequate(meta.Transcript) {
		stats.SkippedShort++
		log.Info("pipeline: transcript too short, skipping extraction")
		return
	}

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			stats.ExtractionErrors++
			log.Warn("pipeline: throttle wait failed", zap.Error(err))
			return
		}
	}

	result, usage, err := p.extractor.Extract(ctx, extract.Input{
		ExternalID: m.ExternalID,
		Title:      m.Title,
		Summary:    meta.SummaryText(),
		Transcript: meta.Transcript,
	})
	p.addUsage(stats, p.cfg.ExtractModel, usage)
	if err != nil {
		if errors.Is(err, extract.ErrTranscriptTooShort) {
			stats.SkippedShort++
			return
		}
		stats.ExtractionErrors++
		log.Warn("pipeline: extraction failed",
			zap.String("failure", resilience.Label(err)),
			zap.Error(err),
		)
		return
	}

	rep, err := w.Materialize(ctx, m, meta, result)
	if err != nil {
		stats.WriteErrors++
		log.Warn("pipeline: write failed",
			zap.String("failure", resilience.Label(err)),
			zap.Error(err),
		)
		return
	}
	stats.Extracted++
	stats.LinkFailures += rep.LinkFailures
	stats.DroppedReferences += rep.Dropped
	log.Info("pipeline: call written",
		zap.String("call_id", rep.CallID),
		zap.Int("link_failures", rep.LinkFailures),
		zap.Int("dropped", rep.Dropped),
	)
}

func (p *Pipeline) addUsage(stats *model.RunStats, modelName string, u anthropic.TokenUsage) {
	if u.InputTokens == 0 && u.OutputTokens == 0 {
		return
	}
	stats.Usage.Add(p.costCalc.Usage(modelName, u.InputTokens, u.OutputTokens))
}
