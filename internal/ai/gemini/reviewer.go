package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	_ "embed"

	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"

	"github.com/spigell/job-matcher/internal/ai"
	"github.com/spigell/job-matcher/internal/logger"
	"github.com/spigell/job-matcher/internal/matching"
	"github.com/spigell/job-matcher/internal/resume"
	"github.com/spigell/job-matcher/internal/utils"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, system, message string) (string, error)
	Model() string
}

//go:embed prompt.md
var promptTemplate string

//go:embed verdict.schema.json
var verdictSchema string

const (
	systemInstruction     = "You review job postings for a candidate and answer with JSON only."
	defaultMaxLogLength   = 200
	maxInstructionRunes   = 500
	noInstructionsBlock   = "  - none"
	instructionLinePrefix = "  - "
)

// Reviewer asks Gemini for a fit verdict on a scored job.
type Reviewer struct {
	generator    contentGenerator
	minScore     float64
	instructions string
	logger       *zap.Logger
	maxLogLen    int
}

var _ ai.Reviewer = (*Reviewer)(nil)

func NewReviewer(generator contentGenerator, minScore float64, maxLogLength int, log *zap.Logger) *Reviewer {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Reviewer{
		generator:    generator,
		minScore:     minScore,
		instructions: noInstructionsBlock,
		logger:       logger.ForProvider(log, ProviderName, generator.Model()),
		maxLogLen:    maxLogLength,
	}
}

// SetInstructions adds free-form criteria to every prompt.
func (r *Reviewer) SetInstructions(instructions string) {
	r.instructions = sanitizeInstructions(instructions)
}

func (r *Reviewer) Review(ctx context.Context, profile *resume.Profile, job *matching.ScoredJob) (*ai.FitAssessment, error) {
	if profile == nil {
		return nil, fmt.Errorf("profile is required")
	}
	if job == nil {
		return nil, fmt.Errorf("job is required")
	}

	profileJSON, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal profile payload: %w", err)
	}

	jobJSON, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal job payload: %w", err)
	}

	prompt := r.buildPrompt(string(profileJSON), string(jobJSON))
	log := r.logger.With(logger.JobFields(job.ID, job.Category)...)

	log.Debug("gemini generate content request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, r.maxLogLen)),
	)

	raw, err := r.generator.GenerateContent(ctx, systemInstruction, prompt)
	if err != nil {
		return nil, err
	}

	log.Debug("gemini generate content response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, r.maxLogLen)),
	)

	assessment, err := parseResponse(raw)
	if err != nil {
		return nil, err
	}

	if r.minScore > 0 && assessment.Score < r.minScore {
		log.Debug("set fit to false by score threshold",
			zap.Float64("score", assessment.Score),
			zap.Float64("threshold", r.minScore),
		)
		assessment.Fit = false
	}

	assessment.Raw = raw
	return assessment, nil
}

func (r *Reviewer) buildPrompt(profileJSON, jobJSON string) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Candidate:\n{{PROFILE_JSON}}\n\nJob:\n{{JOB_JSON}}\n\nCriteria:\n{{INSTRUCTIONS}}\n\nJSON Response:"
	}

	return strings.NewReplacer(
		"{{PROFILE_JSON}}", profileJSON,
		"{{JOB_JSON}}", jobJSON,
		"{{INSTRUCTIONS}}", r.instructions,
	).Replace(template)
}

// sanitizeInstructions keeps non-empty lines, neutralises brackets that could
// mimic prompt sections, and caps the total length.
func sanitizeInstructions(raw string) string {
	budget := maxInstructionRunes
	lines := make([]string, 0)

	for _, line := range strings.Split(raw, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			continue
		}
		line = strings.NewReplacer("[", "(", "]", ")", "{{", "(", "}}", ")").Replace(line)

		runes := []rune(line)
		if len(runes) > budget {
			runes = runes[:budget]
		}
		budget -= len(runes)
		lines = append(lines, instructionLinePrefix+string(runes))

		if budget <= 0 {
			break
		}
	}

	if len(lines) == 0 {
		return noInstructionsBlock
	}
	return strings.Join(lines, "\n")
}

func parseResponse(raw string) (*ai.FitAssessment, error) {
	cleaned := extractJSON(raw)
	if err := validateVerdict(cleaned); err != nil {
		return nil, err
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("parse gemini response: %w", err)
	}

	score := coerceFloat(data["score"])
	if math.IsNaN(score) {
		score = 0
	}
	// Some replies use a 0-100 scale.
	if score > 1 && score <= 100 {
		score /= 100
	}
	score = math.Max(0, math.Min(1, score))

	return &ai.FitAssessment{
		Fit:    coerceBool(data["fit"]),
		Score:  score,
		Reason: coerceString(data["reason"]),
	}, nil
}

// validateVerdict checks the reply shape before any coercion happens.
func validateVerdict(document string) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(verdictSchema),
		gojsonschema.NewStringLoader(document),
	)
	if err != nil {
		return fmt.Errorf("parse gemini response: %w", err)
	}
	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		problems = append(problems, field+": "+desc.Description())
	}
	return fmt.Errorf("gemini response does not match verdict schema: %s", strings.Join(problems, "; "))
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.TrimSpace(strings.Trim(raw, "`"))

	if start, end := strings.Index(raw, "{"), strings.LastIndex(raw, "}"); start > 0 && end > start {
		raw = raw[start : end+1]
	}
	return raw
}

func coerceBool(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		lower := strings.ToLower(strings.TrimSpace(val))
		return lower == "true" || lower == "yes"
	case float64:
		return val != 0
	default:
		return false
	}
}

func coerceFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func coerceString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	default:
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}
