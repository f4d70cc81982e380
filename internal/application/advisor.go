package application

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/ahrav/go-tactician/internal/domain"
	"github.com/ahrav/go-tactician/internal/logging"
	"github.com/ahrav/go-tactician/internal/ports"
)

// Retrieval fan-out sizes for one advice request.
const (
	adviceCompositionResults = 5
	adviceAugmentResults     = 5
	advicePlaybookResults    = 3

	// contextResultsPerSection bounds how many retrieved documents feed
	// the prompt context per section.
	contextResultsPerSection = 3

	// contextPreviewLength truncates documents echoed back to the caller
	// in the retrieved-context transparency list.
	contextPreviewLength = 100

	// fallbackConfidence is the confidence of the single option returned
	// when generation fails.
	fallbackConfidence = 0.3

	maxOptions = 5

	optionsTemperature = 0.7
	optionsMaxTokens   = 1500
	generalMaxTokens   = 200
)

const optionsSystemPrompt = "You are a professional TFT coach providing strategic advice based on data."

const generalSystemPrompt = "You are a concise TFT coach."

const fallbackGeneralAdvice = "Focus on economy and positioning. Make decisions based on your health and lobby strength."

// llmOption is the structured shape each generated option must satisfy.
// Responses that fail validation trigger the fallback path.
type llmOption struct {
	Rank        int            `json:"rank"`
	Title       string         `json:"title" validate:"required,min=1"`
	Description string         `json:"description"`
	Reasoning   string         `json:"reasoning"`
	KeyStats    map[string]any `json:"key_stats"`
	Confidence  float64        `json:"confidence" validate:"min=0.0,max=1.0"`
}

// Advisor composes strategic advice for a live game snapshot: it builds
// a retrieval query from the snapshot, gathers statistics and guides
// from the index, and asks the generative model to rank 3-5 options.
// Generation failures never propagate; the caller always receives
// advice, degraded to a single low-confidence fallback option when the
// model is unavailable or returns garbage.
type Advisor struct {
	indexer  *Indexer
	llm      ports.LLMClient
	resolver *NameResolver
	validate *validator.Validate
	metrics  ports.MetricsCollector
	log      *logging.Logger
	tracer   trace.Tracer
}

// NewAdvisor creates an Advisor. The resolver and metrics collector may
// be nil; the indexer and LLM client are required.
func NewAdvisor(indexer *Indexer, llm ports.LLMClient, resolver *NameResolver, metrics ports.MetricsCollector, log *logging.Logger) (*Advisor, error) {
	if indexer == nil {
		return nil, fmt.Errorf("indexer is required")
	}
	if llm == nil {
		return nil, fmt.Errorf("LLM client is required")
	}
	if resolver == nil {
		resolver = NewNameResolver(nil)
	}
	return &Advisor{
		indexer:  indexer,
		llm:      llm,
		resolver: resolver,
		validate: validator.New(),
		metrics:  metrics,
		log:      log,
		tracer:   otel.Tracer("advisor"),
	}, nil
}

// Advise produces ranked strategic options for the snapshot. It returns
// domain.ErrInvalidSnapshot (wrapped) for malformed input and surfaces
// retrieval failures; generation failures are absorbed into the
// fallback option.
func (a *Advisor) Advise(ctx context.Context, snapshot domain.GameSnapshot) (domain.StrategicAdvice, error) {
	ctx, span := a.tracer.Start(ctx, "advisor.advise",
		trace.WithAttributes(
			attribute.String("set_version", snapshot.SetVersion),
			attribute.String("stage", snapshot.Stage),
		))
	defer span.End()

	if err := a.validate.Struct(snapshot); err != nil {
		return domain.StrategicAdvice{}, fmt.Errorf("%w: %v", domain.ErrInvalidSnapshot, err)
	}

	query := a.buildQuery(snapshot)

	var comps, augments, guides []ports.RetrievalResult
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		comps, err = a.indexer.QueryCompositions(gctx, query, adviceCompositionResults, snapshot.SetVersion)
		return err
	})
	g.Go(func() error {
		var err error
		augments, err = a.indexer.QueryAugments(gctx, query, adviceAugmentResults, snapshot.SetVersion)
		return err
	})
	g.Go(func() error {
		var err error
		guides, err = a.indexer.QueryGuides(gctx, query, advicePlaybookResults)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.StrategicAdvice{}, fmt.Errorf("retrieving context: %w", err)
	}

	promptContext := a.buildContext(snapshot, comps, augments, guides)

	options := a.generateOptions(ctx, snapshot, promptContext)
	general := a.generateGeneralAdvice(ctx, promptContext)

	return domain.StrategicAdvice{
		Snapshot:         snapshot,
		Options:          options,
		GeneralAdvice:    general,
		RetrievedContext: contextPreviews(comps, augments),
	}, nil
}

// buildQuery renders the snapshot as one retrieval query with a fixed
// section order (champions, traits, stage/level, augments) so identical
// snapshots always retrieve identically.
func (a *Advisor) buildQuery(snapshot domain.GameSnapshot) string {
	var parts []string

	if len(snapshot.Board) > 0 {
		names := make([]string, len(snapshot.Board))
		for i, c := range snapshot.Board {
			names[i] = a.resolver.Resolve(c.Name)
		}
		parts = append(parts, "Champions: "+strings.Join(names, ", "))
	}
	if len(snapshot.ActiveTraits) > 0 {
		parts = append(parts, "Traits: "+strings.Join(snapshot.ActiveTraits, ", "))
	}
	parts = append(parts, fmt.Sprintf("Stage %s, Level %d", snapshot.Stage, snapshot.Level))
	if len(snapshot.AvailableAugments) > 0 {
		parts = append(parts, "Available augments: "+strings.Join(snapshot.AvailableAugments, ", "))
	}

	return strings.Join(parts, " ")
}

// buildContext assembles the bounded prompt context in fixed section
// order: game state, compositions, augments, guides.
func (a *Advisor) buildContext(snapshot domain.GameSnapshot, comps, augments, guides []ports.RetrievalResult) string {
	var b strings.Builder

	b.WriteString("## Current Game State\n")
	fmt.Fprintf(&b, "Set: %s\n", snapshot.SetVersion)
	fmt.Fprintf(&b, "Stage: %s\n", snapshot.Stage)
	fmt.Fprintf(&b, "Level: %d\n", snapshot.Level)
	fmt.Fprintf(&b, "Gold: %d\n", snapshot.Gold)
	fmt.Fprintf(&b, "Health: %d\n", snapshot.Health)

	if len(snapshot.Board) > 0 {
		board := make([]string, len(snapshot.Board))
		for i, c := range snapshot.Board {
			board[i] = fmt.Sprintf("%s (%d-star)", a.resolver.Resolve(c.Name), c.Stars)
		}
		fmt.Fprintf(&b, "Board: %s\n", strings.Join(board, ", "))
	}
	if len(snapshot.ActiveTraits) > 0 {
		fmt.Fprintf(&b, "Active Traits: %s\n", strings.Join(snapshot.ActiveTraits, ", "))
	}

	writeSection(&b, "## Relevant Team Compositions", comps, contextResultsPerSection, 0)
	writeSection(&b, "## Relevant Augments", augments, contextResultsPerSection, 0)
	writeSection(&b, "## Strategic Playbooks", guides, len(guides), 200)

	return b.String()
}

func writeSection(b *strings.Builder, heading string, results []ports.RetrievalResult, limit, truncate int) {
	if len(results) == 0 {
		return
	}
	b.WriteString("\n" + heading + "\n")
	for i, r := range results {
		if i >= limit {
			break
		}
		doc := r.Document
		if truncate > 0 {
			doc = truncateRunes(doc, truncate)
		}
		fmt.Fprintf(b, "- %s\n", doc)
	}
}

// generateOptions asks the model for 3-5 ranked options constrained to a
// JSON schema. Every failure path (call error, unparseable output,
// invalid structure, empty list) collapses to the single fallback
// option.
func (a *Advisor) generateOptions(ctx context.Context, snapshot domain.GameSnapshot, promptContext string) []domain.StrategicOption {
	userContext := snapshot.Context
	if userContext == "" {
		userContext = "None provided"
	}

	prompt := fmt.Sprintf(`Based on the current game state and retrieved statistics, provide 3-5 ranked strategic options for the player.

%s

User Context: %s

For each option provide a clear title, a brief description of what to do, reasoning based on the statistics and game state, key stats supporting the option, and a confidence level between 0.0 and 1.0.

Respond with a JSON object of the form {"options": [{"rank": 1, "title": "...", "description": "...", "reasoning": "...", "key_stats": {"avg_placement": 3.2}, "confidence": 0.85}]}, ordered by recommendation strength.`,
		promptContext, userContext)

	opts := map[string]any{
		"system":      optionsSystemPrompt,
		"temperature": optionsTemperature,
		"max_tokens":  optionsMaxTokens,
	}
	if supportsJSONMode(a.llm) {
		opts["response_format"] = map[string]string{"type": "json_object"}
	}

	response, err := a.llm.Complete(ctx, prompt, opts)
	if err != nil {
		return a.fallbackOptions(err)
	}

	parsed, err := parseOptions(response, a.validate)
	if err != nil {
		return a.fallbackOptions(err)
	}
	return parsed
}

func (a *Advisor) fallbackOptions(cause error) []domain.StrategicOption {
	if a.log != nil {
		a.log.WithError(cause).Warn("option generation failed, returning fallback")
	}
	if a.metrics != nil {
		a.metrics.RecordCounter("advice_generation_fallback", 1, nil)
	}
	return []domain.StrategicOption{{
		Rank:        1,
		Title:       "Continue Current Strategy",
		Description: "Maintain your current approach based on available information.",
		Reasoning:   "Unable to generate specific recommendations at this time.",
		KeyStats:    map[string]any{},
		Confidence:  fallbackConfidence,
	}}
}

// generateGeneralAdvice asks for a short free-form summary, falling back
// to a fixed message on any failure.
func (a *Advisor) generateGeneralAdvice(ctx context.Context, promptContext string) string {
	prompt := fmt.Sprintf(`Based on the current game state and statistics, provide brief general advice (2-3 sentences) for this TFT player.

%s

Focus on immediate priorities and key considerations for their current situation.`, promptContext)

	response, err := a.llm.Complete(ctx, prompt, map[string]any{
		"system":      generalSystemPrompt,
		"temperature": optionsTemperature,
		"max_tokens":  generalMaxTokens,
	})
	if err != nil || strings.TrimSpace(response) == "" {
		if a.log != nil && err != nil {
			a.log.WithError(err).Warn("general advice generation failed, returning fallback")
		}
		return fallbackGeneralAdvice
	}
	return strings.TrimSpace(response)
}

// parseOptions extracts and validates the option list from a model
// response. Both a bare array and an object with an "options" key are
// accepted; the list is clamped to maxOptions and ranks are filled in
// positionally when the model omits them.
func parseOptions(response string, validate *validator.Validate) ([]domain.StrategicOption, error) {
	jsonStr := extractJSON(response)
	if jsonStr == "" {
		return nil, fmt.Errorf("%w: no JSON found in response", ports.ErrEmptyResponse)
	}

	var raw []llmOption
	if strings.HasPrefix(jsonStr, "[") {
		if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
			return nil, fmt.Errorf("parsing options array: %w", err)
		}
	} else {
		var wrapper struct {
			Options []llmOption `json:"options"`
		}
		if err := json.Unmarshal([]byte(jsonStr), &wrapper); err != nil {
			return nil, fmt.Errorf("parsing options object: %w", err)
		}
		raw = wrapper.Options
	}

	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: model returned no options", ports.ErrEmptyResponse)
	}
	if len(raw) > maxOptions {
		raw = raw[:maxOptions]
	}

	options := make([]domain.StrategicOption, 0, len(raw))
	for i, opt := range raw {
		if err := validate.Struct(opt); err != nil {
			return nil, fmt.Errorf("option %d failed validation: %w", i+1, err)
		}
		rank := opt.Rank
		if rank == 0 {
			rank = i + 1
		}
		keyStats := opt.KeyStats
		if keyStats == nil {
			keyStats = map[string]any{}
		}
		options = append(options, domain.StrategicOption{
			Rank:        rank,
			Title:       opt.Title,
			Description: opt.Description,
			Reasoning:   opt.Reasoning,
			KeyStats:    keyStats,
			Confidence:  opt.Confidence,
		})
	}
	return options, nil
}

// contextPreviews builds the transparency list echoed back to callers:
// the first few composition and augment documents, truncated.
func contextPreviews(comps, augments []ports.RetrievalResult) []string {
	previews := make([]string, 0, contextResultsPerSection*2)
	for i, r := range comps {
		if i >= contextResultsPerSection {
			break
		}
		previews = append(previews, "Composition: "+truncateDoc(r.Document))
	}
	for i, r := range augments {
		if i >= contextResultsPerSection {
			break
		}
		previews = append(previews, "Augment: "+truncateDoc(r.Document))
	}
	return previews
}

func truncateDoc(doc string) string {
	if len(doc) <= contextPreviewLength {
		return doc
	}
	return truncateRunes(doc, contextPreviewLength) + "..."
}

// truncateRunes shortens s to at most max bytes without splitting a
// multi-byte rune.
func truncateRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

// supportsJSONMode reports whether the model is known to honor a JSON
// response-format hint.
func supportsJSONMode(client ports.LLMClient) bool {
	model := strings.ToLower(client.GetModel())
	return strings.Contains(model, "gpt") ||
		strings.Contains(model, "claude") ||
		strings.Contains(model, "gemini")
}

// extractJSON pulls a JSON value out of a model response that may wrap
// it in markdown fences or surrounding prose.
func extractJSON(response string) string {
	response = strings.TrimSpace(response)

	if i := strings.Index(response, "```json"); i >= 0 {
		rest := response[i+len("```json"):]
		if j := strings.Index(rest, "```"); j >= 0 {
			return strings.TrimSpace(rest[:j])
		}
	}
	if i := strings.Index(response, "```"); i >= 0 {
		rest := response[i+3:]
		if nl := strings.Index(rest, "\n"); nl >= 0 {
			rest = rest[nl+1:]
		}
		if j := strings.Index(rest, "```"); j >= 0 {
			candidate := strings.TrimSpace(rest[:j])
			if strings.HasPrefix(candidate, "{") || strings.HasPrefix(candidate, "[") {
				return candidate
			}
		}
	}

	objStart := strings.IndexByte(response, '{')
	arrStart := strings.IndexByte(response, '[')
	start, closeByte := objStart, byte('}')
	if objStart < 0 || (arrStart >= 0 && arrStart < objStart) {
		start, closeByte = arrStart, ']'
	}
	if start < 0 {
		return ""
	}
	if end := strings.LastIndexByte(response, closeByte); end > start {
		return response[start : end+1]
	}
	return ""
}
