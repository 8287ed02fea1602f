package pipeline

import (
	"context"
	"crypto/sha1" //nolint:gosec
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/visibility-cli/internal/answer"
	"github.com/sells-group/visibility-cli/internal/config"
	"github.com/sells-group/visibility-cli/internal/evaluate"
	"github.com/sells-group/visibility-cli/internal/ingest"
	"github.com/sells-group/visibility-cli/internal/metrics"
	"github.com/sells-group/visibility-cli/internal/model"
	"github.com/sells-group/visibility-cli/internal/planner"
	"github.com/sells-group/visibility-cli/internal/report"
	"github.com/sells-group/visibility-cli/internal/store"
	"github.com/sells-group/visibility-cli/internal/textutil"
)

// Phase names, in execution order.
const (
	PhaseIngest = "ingest"
	PhasePlan   = "plan"
	PhaseAnswer = "answer"
	PhaseScore  = "score"
)

// Backend is the answer source and planner serving one run. Usage, when set,
// reports the tokens and calls consumed so far. BudgetRemaining, when set,
// reports calls left in the run budget (-1 when unlimited).
type Backend struct {
	Source          answer.Source
	Planner         planner.Planner
	Usage           func() (model.TokenUsage, int)
	BudgetRemaining func() int
}

// BackendFactory builds a fresh Backend for a run in the given mode.
type BackendFactory func(mode model.Mode, targetCount int) (*Backend, error)

// Request is one analysis request. Zero values fall back to configuration.
type Request struct {
	Text            string
	StoryID         string
	ProviderName    string
	ProviderAliases []string
	Models          []string
	Mode            model.Mode
	SourceURL       string
	ClientName      string
	TargetCount     int
	SkipMaskCheck   bool
}

// Outcome is the result of a successful run.
type Outcome struct {
	RunID   string                 `json:"run_id,omitempty"`
	Result  model.VisibilityResult `json:"result"`
	Payload report.Payload         `json:"payload"`
	Phases  []model.PhaseResult    `json:"phases"`
	Usage   model.TokenUsage       `json:"usage"`
	Calls   int                    `json:"calls"`
}

// Pipeline orchestrates visibility runs.
type Pipeline struct {
	cfg      *config.Config
	backends BackendFactory
	store    store.Store
	metrics  *metrics.Metrics
	now      func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithStore records runs and phases in st.
func WithStore(st store.Store) Option {
	return func(p *Pipeline) { p.store = st }
}

// WithMetrics records run metrics in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New creates a Pipeline.
func New(cfg *config.Config, backends BackendFactory, opts ...Option) *Pipeline {
	p := &Pipeline{cfg: cfg, backends: backends, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// StoryID derives a stable identifier from transcript text.
func StoryID(text string) string {
	sum := sha1.Sum([]byte(text)) //nolint:gosec
	return "story-" + hex.EncodeToString(sum[:])[:10]
}

// resolved holds request values after configuration defaults are applied.
type resolved struct {
	mode     model.Mode
	provider string
	aliases  []string
	models   []string
	terms    []string
	target   int
	meta     model.StoryMetadata
}

func (p *Pipeline) resolve(req Request) (resolved, error) {
	r := resolved{mode: req.Mode}
	if r.mode == "" {
		m, err := model.ParseMode(p.cfg.Model.Mode)
		if err != nil {
			return r, eris.Wrap(err, "pipeline: configured mode")
		}
		r.mode = m
	} else if _, err := model.ParseMode(string(r.mode)); err != nil {
		return r, err
	}

	r.provider = strings.TrimSpace(req.ProviderName)
	if r.provider == "" {
		r.provider = p.cfg.Provider.Name
	}
	r.aliases = config.Dedupe(req.ProviderAliases)
	if len(r.aliases) == 0 {
		r.aliases = config.Dedupe(p.cfg.Provider.Aliases)
	}
	r.models = config.Dedupe(req.Models)
	if len(r.models) == 0 {
		r.models = p.cfg.Model.Models()
	}
	r.terms = config.Dedupe(append([]string{r.provider}, r.aliases...))

	r.target = req.TargetCount
	if r.target < 1 {
		r.target = p.cfg.Pillars.TargetCount
	}

	storyID := strings.TrimSpace(req.StoryID)
	if storyID == "" {
		storyID = StoryID(req.Text)
	}
	r.meta = model.StoryMetadata{
		StoryID:      storyID,
		SourceURL:    req.SourceURL,
		ClientName:   req.ClientName,
		ProviderName: r.provider,
	}
	return r, nil
}

// Run executes ingest, plan, answer and score for one transcript. Answers are
// fetched from every model concurrently and concatenated in model order. The
// first ingestion or Answer Source error fails the run.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Outcome, error) {
	start := p.now()

	r, err := p.resolve(req)
	if err != nil {
		return nil, err
	}

	log := zap.L().With(
		zap.String("story_id", r.meta.StoryID),
		zap.String("mode", string(r.mode)),
	)
	log.Info("pipeline: starting run", zap.Strings("models", r.models))

	backend, err := p.backends(r.mode, r.target)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: build backend")
	}

	out := &Outcome{}

	// Store writes must land even when ctx has expired.
	storeCtx := context.WithoutCancel(ctx)

	if p.store != nil {
		run, createErr := p.store.CreateRun(storeCtx, model.RunRequest{
			StoryID:      r.meta.StoryID,
			ProviderName: r.provider,
			Aliases:      r.aliases,
			Models:       r.models,
			Mode:         r.mode,
			SourceURL:    r.meta.SourceURL,
			ClientName:   r.meta.ClientName,
		})
		if createErr != nil {
			return nil, eris.Wrap(createErr, "pipeline: create run")
		}
		out.RunID = run.ID
		log = log.With(zap.String("run_id", run.ID))
	}

	setStatus := func(status model.RunStatus) {
		if p.store == nil {
			return
		}
		if statusErr := p.store.UpdateRunStatus(storeCtx, out.RunID, status); statusErr != nil {
			log.Warn("pipeline: failed to update status", zap.Error(statusErr))
		}
	}

	trackPhase := func(name string, fn func() (*model.PhaseResult, error)) error {
		var phase *model.RunPhase
		if p.store != nil {
			var phaseErr error
			phase, phaseErr = p.store.CreatePhase(storeCtx, out.RunID, name)
			if phaseErr != nil {
				log.Warn("pipeline: failed to create phase", zap.String("phase", name), zap.Error(phaseErr))
			}
		}

		phaseStart := p.now()
		phaseResult, fnErr := fn()
		elapsed := p.now().Sub(phaseStart)

		if phaseResult == nil {
			phaseResult = &model.PhaseResult{}
		}
		phaseResult.Name = name
		phaseResult.Duration = elapsed.Milliseconds()

		if fnErr != nil {
			phaseResult.Status = model.PhaseStatusFailed
			phaseResult.Error = fnErr.Error()
			log.Error("pipeline: phase failed",
				zap.String("phase", name),
				zap.Int64("duration_ms", phaseResult.Duration),
				zap.Error(fnErr),
			)
		} else {
			phaseResult.Status = model.PhaseStatusComplete
			log.Info("pipeline: phase complete",
				zap.String("phase", name),
				zap.Int64("duration_ms", phaseResult.Duration),
			)
		}

		if phase != nil {
			if completeErr := p.store.CompletePhase(storeCtx, phase.ID, phaseResult); completeErr != nil {
				log.Warn("pipeline: failed to complete phase", zap.String("phase", name), zap.Error(completeErr))
			}
		}
		p.metrics.ObservePhase(name, phaseResult.Status, elapsed)
		out.Phases = append(out.Phases, *phaseResult)
		return fnErr
	}

	fail := func(runErr error) (*Outcome, error) {
		if p.store != nil {
			if failErr := p.store.FailRun(storeCtx, out.RunID, runErr.Error()); failErr != nil {
				log.Warn("pipeline: failed to record failure", zap.Error(failErr))
			}
		}
		p.metrics.ObserveRun(r.mode, model.RunStatusFailed, p.now().Sub(start), nil)
		return nil, runErr
	}

	// ===== Ingest: normalize and mask =====
	setStatus(model.RunStatusMasking)

	var doc *model.StoryDocument
	err = trackPhase(PhaseIngest, func() (*model.PhaseResult, error) {
		var loadErr error
		doc, loadErr = ingest.LoadStoryDocumentFromText(req.Text, r.meta, r.aliases, ingest.WithMaskCheck(!req.SkipMaskCheck))
		if loadErr != nil {
			return nil, loadErr
		}
		var masked int
		for _, n := range textutil.KeywordHits(doc.NormalizedText, r.terms) {
			masked += n
		}
		p.metrics.ObserveMasked(masked)
		return &model.PhaseResult{Metadata: map[string]any{
			"masked_terms": masked,
			"aliases":      len(r.terms),
		}}, nil
	})
	if err != nil {
		return fail(err)
	}

	// ===== Plan: pillars and questions =====
	setStatus(model.RunStatusPlanning)

	var plan planner.Plan
	err = trackPhase(PhasePlan, func() (*model.PhaseResult, error) {
		var planErr error
		plan, planErr = backend.Planner.Plan(ctx, doc.MaskedText)
		if planErr != nil {
			return nil, planErr
		}
		return &model.PhaseResult{Metadata: map[string]any{
			"pillars":   len(plan.Pillars),
			"questions": len(plan.Questions),
		}}, nil
	})
	if err != nil {
		return fail(err)
	}

	// ===== Answer: fan out across models =====
	setStatus(model.RunStatusAnswering)

	var answers []model.QuestionAnswer
	err = trackPhase(PhaseAnswer, func() (*model.PhaseResult, error) {
		var answerErr error
		answers, answerErr = answerModels(ctx, backend.Source, r.models, plan.Questions, doc.MaskedText, len(r.models))
		pr := &model.PhaseResult{}
		if backend.Usage != nil {
			out.Usage, out.Calls = backend.Usage()
			pr.TokenUsage = out.Usage
		}
		if answerErr != nil {
			return pr, answerErr
		}
		pr.Metadata = map[string]any{
			"models":  len(r.models),
			"answers": len(answers),
			"calls":   out.Calls,
		}
		if backend.BudgetRemaining != nil {
			pr.Metadata["budget_remaining"] = backend.BudgetRemaining()
		}
		return pr, nil
	})
	if err != nil {
		return fail(err)
	}

	// ===== Score =====
	setStatus(model.RunStatusScoring)

	err = trackPhase(PhaseScore, func() (*model.PhaseResult, error) {
		out.Result = evaluate.Score(model.VisibilityResult{
			StoryID:     r.meta.StoryID,
			Pillars:     plan.Pillars,
			Questions:   plan.Questions,
			Answers:     answers,
			GeneratedAt: p.now().UTC(),
			ModelsRun:   r.models,
			Metadata:    doc.Metadata,
			Mode:        r.mode,
		}, r.terms)
		out.Payload = report.Serialize(out.Result)
		return &model.PhaseResult{Metadata: map[string]any{
			"coverage":   out.Result.Scores.Coverage,
			"confidence": out.Result.Scores.Confidence,
			"recognized": out.Result.Summary.AIProviderRecognizedIn,
		}}, nil
	})
	if err != nil {
		return fail(err)
	}

	if p.store != nil {
		payloadJSON, marshalErr := json.Marshal(out.Payload)
		if marshalErr != nil {
			return fail(eris.Wrap(marshalErr, "pipeline: marshal payload"))
		}
		runResult := &model.RunResult{
			Coverage:    out.Result.Scores.Coverage,
			Confidence:  out.Result.Scores.Confidence,
			Summary:     out.Result.Summary,
			TotalTokens: out.Usage.Total(),
			TotalCost:   out.Usage.Cost,
			Phases:      out.Phases,
			Payload:     payloadJSON,
		}
		if saveErr := p.store.UpdateRunResult(storeCtx, out.RunID, runResult); saveErr != nil {
			log.Warn("pipeline: failed to save run result", zap.Error(saveErr))
		}
	}

	scores := out.Result.Scores
	p.metrics.ObserveRun(r.mode, model.RunStatusComplete, p.now().Sub(start), &scores)

	log.Info("pipeline: run complete",
		zap.Float64("coverage", scores.Coverage),
		zap.Float64("confidence", scores.Confidence),
		zap.Int("questions", out.Result.Summary.TotalQuestions),
		zap.Int("recognized", out.Result.Summary.AIProviderRecognizedIn),
		zap.Int("tokens", out.Usage.Total()),
		zap.Float64("cost_usd", out.Usage.Cost),
	)

	return out, nil
}
