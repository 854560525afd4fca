// Package enrich scores and annotates leads with Claude. Each lead gets one
// analysis call producing an AI score and opportunity notes, and optionally a
// second call drafting an outreach email. Enrichment failures never discard a
// lead; the algorithmic score simply remains in effect.
package enrich

import (
	"context"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/logiclamp/leadscout/internal/model"
	"github.com/logiclamp/leadscout/internal/resilience"
	"github.com/logiclamp/leadscout/pkg/anthropic"
)

const (
	defaultModel       = "claude-sonnet-4-5-20250929"
	defaultMaxTokens   = 1024
	defaultConcurrency = 4

	// The analysis reply feeds ranking, so it samples cool. The email
	// draft is prose and gets more room.
	analysisTemperature = 0.5
	outreachTemperature = 0.7
)

// Options configure an Enricher. Zero values fall back to defaults.
type Options struct {
	Model       string
	MaxTokens   int64
	Concurrency int

	// Outreach adds a second call per lead drafting an intro email,
	// signed per Sender when set.
	Outreach bool
	Sender   Sender
}

// Sender identifies who outreach emails are written as. Zero values leave
// the signature up to the model.
type Sender struct {
	Name    string
	Title   string
	Company string
}

// Result reports what happened to a batch.
type Result struct {
	Enriched int
	Skipped  int
}

// Enricher annotates leads through an Anthropic client.
type Enricher struct {
	client         anthropic.Client
	opts           Options
	analysisSystem []anthropic.SystemBlock
	outreachSystem []anthropic.SystemBlock
	retryBase      time.Duration
}

// New builds an Enricher around client.
func New(client anthropic.Client, opts Options) *Enricher {
	if opts.Model == "" {
		opts.Model = defaultModel
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	return &Enricher{
		client:         client,
		opts:           opts,
		analysisSystem: anthropic.BuildCachedSystemBlocks(analysisSystemPrompt),
		outreachSystem: anthropic.BuildCachedSystemBlocks(outreachSystemPrompt),
		retryBase:      time.Second,
	}
}

// Enrich annotates leads in place. Leads whose enrichment fails keep their
// algorithmic score and a nil AI score. Cancellation takes effect between
// leads; leads not reached count as skipped.
func (e *Enricher) Enrich(ctx context.Context, leads []model.Lead) Result {
	if len(leads) == 0 {
		return Result{}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Concurrency)

	enriched := make([]bool, len(leads))
	for i := range leads {
		g.Go(func() error {
			enriched[i] = e.enrichOne(gctx, &leads[i])
			return nil
		})
	}
	_ = g.Wait()

	var res Result
	for _, ok := range enriched {
		if ok {
			res.Enriched++
		} else {
			res.Skipped++
		}
	}
	return res
}

// enrichOne runs the analysis call, and the outreach call when requested,
// for a single lead. Reports whether the AI score landed.
func (e *Enricher) enrichOne(ctx context.Context, lead *model.Lead) bool {
	if ctx.Err() != nil {
		return false
	}
	log := zap.L().With(zap.String("lead", lead.Name))

	resp, err := e.call(ctx, e.analysisSystem, analysisContext(lead), analysisTemperature)
	if err != nil {
		log.Warn("enrichment skipped", zap.Error(err))
		return false
	}
	resp.Usage.LogCost(e.opts.Model, "analysis")

	score, notes, err := parseAnalysis(resp.Text())
	if err != nil {
		log.Warn("enrichment reply unusable, keeping algorithmic score", zap.Error(err))
		return false
	}

	now := time.Now().UTC()
	lead.AIScore = &score
	lead.AINotes = notes
	lead.EnrichedAt = &now

	if e.opts.Outreach {
		resp, err := e.call(ctx, e.outreachSystem, outreachContext(lead, e.opts.Sender), outreachTemperature)
		if err != nil {
			log.Warn("outreach draft skipped", zap.Error(err))
			return true
		}
		resp.Usage.LogCost(e.opts.Model, "outreach")
		lead.OutreachEmail = strings.TrimSpace(resp.Text())
	}
	return true
}

// call sends one message request, retrying exactly once on a transient
// provider failure.
func (e *Enricher) call(ctx context.Context, system []anthropic.SystemBlock, content string, temperature float64) (*anthropic.MessageResponse, error) {
	req := anthropic.MessageRequest{
		Model:       e.opts.Model,
		MaxTokens:   e.opts.MaxTokens,
		System:      system,
		Messages:    []anthropic.Message{{Role: "user", Content: content}},
		Temperature: &temperature,
	}

	policy := resilience.Policy{
		MaxAttempts: 2,
		BaseDelay:   e.retryBase,
		ShouldRetry: transient,
		OnRetry:     resilience.LogRetries("enrich", "create message"),
	}
	return resilience.DoVal(ctx, policy, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return e.client.CreateMessage(ctx, req)
	})
}

// transient reports provider errors worth one more attempt: rate limits,
// overload, timeouts, server-side 5xx.
func transient(err error) bool {
	if err == nil {
		return false
	}
	if resilience.Retryable(err) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"429", "500", "502", "503", "504", "529",
		"rate limit", "rate_limit", "overloaded",
		"timeout", "deadline exceeded",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// analysisReply is the JSON shape the analysis prompt asks for.
type analysisReply struct {
	Score    *int   `json:"score"`
	Analysis string `json:"analysis"`
}

var scoreRe = regexp.MustCompile(`(?i)(?:score|rating)[:\s]+(\d{1,3})`)

// parseAnalysis extracts the lead score and narrative from a model reply.
// Valid JSON wins; a score mentioned in prose is the fallback, in which case
// the whole reply becomes the notes.
func parseAnalysis(text string) (int, string, error) {
	var reply analysisReply
	if err := json.Unmarshal([]byte(cleanJSON(text)), &reply); err == nil && reply.Score != nil {
		return clampScore(*reply.Score), strings.TrimSpace(reply.Analysis), nil
	}

	if m := scoreRe.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return clampScore(n), strings.TrimSpace(text), nil
		}
	}

	return 0, "", eris.Errorf("enrich: no usable score in reply (%d bytes)", len(text))
}

// cleanJSON strips markdown fences and surrounding prose so the reply can be
// unmarshaled even when the model decorates its JSON.
func cleanJSON(text string) string {
	cleaned := strings.TrimSpace(text)

	if strings.HasPrefix(cleaned, "```json") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		if idx := strings.LastIndex(cleaned, "```"); idx >= 0 {
			cleaned = cleaned[:idx]
		}
	} else if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```")
		if idx := strings.LastIndex(cleaned, "```"); idx >= 0 {
			cleaned = cleaned[:idx]
		}
	}

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start >= 0 && end > start {
		cleaned = cleaned[start : end+1]
	}

	return strings.TrimSpace(cleaned)
}

func clampScore(n int) int {
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}
