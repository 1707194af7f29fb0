package generation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dailyinspo/inspo/internal/assistant"
	dbgorm "github.com/dailyinspo/inspo/internal/db/gorm"
	"github.com/dailyinspo/inspo/pkg/models"
)

// Outer retry parameters: after the initial attempt fails, the whole
// pipeline reruns with a format hint appended to the prompt.
const (
	retryMaxAttempts = 3
	retryDelay       = 10 * time.Second
)

// contextSummaryLimit caps per-idea summaries in the dedup context block.
const contextSummaryLimit = 100

// Pipeline runs one end-to-end idea generation: prompt assembly, assistant
// call, parse, validate, enhance, persist. Every attempt, including
// retries, is recorded in the generation log.
type Pipeline struct {
	ideas       *dbgorm.IdeaStore
	logs        *dbgorm.GenerationLogStore
	client      assistant.Client
	methodology *Methodology

	contextIdeas int

	// sleep is swapped out in tests.
	sleep func(time.Duration)
	now   func() time.Time
}

// NewPipeline assembles a pipeline. contextIdeas bounds how many existing
// ideas are included in the dedup context.
func NewPipeline(ideas *dbgorm.IdeaStore, logs *dbgorm.GenerationLogStore, client assistant.Client, methodology *Methodology, contextIdeas int) *Pipeline {
	return &Pipeline{
		ideas:        ideas,
		logs:         logs,
		client:       client,
		methodology:  methodology,
		contextIdeas: contextIdeas,
		sleep:        time.Sleep,
		now:          time.Now,
	}
}

// Run executes the pipeline, retrying the whole flow on failure. Returns
// the stored idea's ID. A missing methodology document fails immediately
// with no retries (no amount of retrying will conjure it), but the failed
// attempt is still recorded in the generation log.
func (p *Pipeline) Run(ctx context.Context) (int64, error) {
	if _, err := p.methodology.Load(); err != nil {
		entry := &models.GenerationLogEntry{Success: false, ErrorMessage: err.Error()}
		if logErr := p.logs.LogAttempt(ctx, entry); logErr != nil {
			log.Error().Err(logErr).Msg("Failed to record generation attempt")
		}
		return 0, err
	}

	id, err := p.attempt(ctx, 0)
	if err == nil {
		return id, nil
	}
	log.Error().Err(err).Msg("Generation failed, retrying")

	for retry := 1; retry <= retryMaxAttempts; retry++ {
		p.sleep(retryDelay)

		id, err = p.attempt(ctx, retry)
		if err == nil {
			log.Info().Int("retry", retry).Int64("idea_id", id).Msg("Retry succeeded")
			return id, nil
		}
		log.Warn().Err(err).Int("retry", retry).Msg("Retry attempt failed")
	}
	return 0, fmt.Errorf("generation failed after %d retries: %w", retryMaxAttempts, err)
}

// attempt executes one full pipeline pass and logs its outcome. retry 0 is
// the initial attempt; later passes append a format hint to the prompt.
func (p *Pipeline) attempt(ctx context.Context, retry int) (int64, error) {
	start := p.now()

	id, err := p.generateOnce(ctx, retry)
	elapsed := p.now().Sub(start).Seconds()

	entry := &models.GenerationLogEntry{
		Success:              err == nil,
		ExecutionTimeSeconds: elapsed,
	}
	if err != nil {
		entry.ErrorMessage = err.Error()
	} else {
		entry.IdeaID = &id
	}
	if logErr := p.logs.LogAttempt(ctx, entry); logErr != nil {
		log.Error().Err(logErr).Msg("Failed to record generation attempt")
	}

	return id, err
}

func (p *Pipeline) generateOnce(ctx context.Context, retry int) (int64, error) {
	methodology, err := p.methodology.Load()
	if err != nil {
		return 0, err
	}

	prompt := p.buildPrompt(ctx, methodology)
	if retry > 0 {
		prompt += fmt.Sprintf(
			"\n\nNote: This is retry attempt %d. Please ensure the response is valid JSON.",
			retry)
	}

	response, err := p.client.Generate(ctx, prompt, "")
	if err != nil {
		return 0, fmt.Errorf("assistant execution failed: %w", err)
	}
	if strings.TrimSpace(response) == "" {
		return 0, fmt.Errorf("assistant returned empty response")
	}

	raw, err := parseIdea(response)
	if err != nil {
		return 0, fmt.Errorf("response parsing failed: %w", err)
	}
	if err := validateIdea(raw); err != nil {
		return 0, fmt.Errorf("invalid idea structure: %w", err)
	}

	idea := enhanceIdea(raw, p.now())
	id, err := p.persistWithRetry(ctx, idea)
	if err != nil {
		return 0, fmt.Errorf("database storage failed: %w", err)
	}

	log.Info().Int64("idea_id", id).Str("title", idea.Title).Msg("Generated idea stored")
	return id, nil
}

// buildPrompt assembles the full generation prompt: methodology, date,
// existing-ideas context and the output contract.
func (p *Pipeline) buildPrompt(ctx context.Context, methodology string) string {
	var b strings.Builder
	b.WriteString(methodology)
	b.WriteString("\n\n--- GENERATION REQUEST ---\n\n")
	fmt.Fprintf(&b, "Date: %s\n\n", p.now().Format("2006-01-02"))
	b.WriteString(p.existingIdeasContext(ctx))
	b.WriteString("\n\nPlease generate exactly one outstanding app idea following the methodology above.\n\n")
	b.WriteString("IMPORTANT: Respond with valid JSON only, no additional text or explanation. ")
	b.WriteString("The JSON should exactly match the structure specified in the methodology.\n\n")
	b.WriteString(`Ensure the idea:
1. Addresses a real market need
2. Has strong business potential
3. Includes factual supporting data
4. Is technically feasible
5. Has clear differentiation
6. Is completely different from any existing ideas listed above

Generate the idea now:`)
	return b.String()
}

// existingIdeasContext lists recent ideas so the assistant avoids
// duplicating them. Failing to load the list degrades to a generic nudge
// rather than aborting the run.
func (p *Pipeline) existingIdeasContext(ctx context.Context) string {
	cards, err := p.ideas.RecentTitles(ctx, p.contextIdeas)
	if err != nil {
		log.Warn().Err(err).Msg("Could not load existing ideas context")
		return "Could not load existing ideas - please generate a unique concept."
	}
	if len(cards) == 0 {
		return "No existing ideas in database."
	}

	var b strings.Builder
	b.WriteString("EXISTING IDEAS TO AVOID DUPLICATING:")
	for i, card := range cards {
		fmt.Fprintf(&b, "\n%d. %s: %s",
			i+1, card.Title, models.TruncateText(card.Summary, contextSummaryLimit))
	}
	b.WriteString("\n\nPlease generate something completely different from these existing ideas.")
	return b.String()
}
