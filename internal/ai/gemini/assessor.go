package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	_ "embed"

	"github.com/mitchellh/mapstructure"
	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"

	"github.com/spigell/roomie-matcher/internal/ai"
	"github.com/spigell/roomie-matcher/internal/logger"
	"github.com/spigell/roomie-matcher/internal/profile"
	"github.com/spigell/roomie-matcher/internal/utils"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, system, prompt string) (string, error)
}

// Assessor implements ai.Assessor on top of a Gemini content generator.
type Assessor struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

//go:embed prompt.md
var promptTemplate string

//go:embed system.md
var systemInstruction string

const (
	defaultMaxLogLength = 200
	maxReasons          = 5
)

var responseSchema = gojsonschema.NewGoLoader(map[string]any{
	"type":     "object",
	"required": []any{"score", "reasons"},
	"properties": map[string]any{
		"score": map[string]any{"type": "number"},
		"reasons": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		},
		"concerns": map[string]any{
			"type":  []any{"array", "null"},
			"items": map[string]any{"type": "string"},
		},
	},
})

type responsePayload struct {
	Score    float64  `mapstructure:"score"`
	Reasons  []string `mapstructure:"reasons"`
	Concerns []string `mapstructure:"concerns"`
}

var _ ai.Assessor = (*Assessor)(nil)

func NewAssessor(generator contentGenerator, maxLogLength int, log *zap.Logger) *Assessor {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Assessor{
		generator: generator,
		logger:    log,
		maxLogLen: maxLogLength,
	}
}

func (a *Assessor) Assess(ctx context.Context, current, candidate *profile.Profile, ruleScore float64) (*ai.Assessment, error) {
	if current == nil {
		return nil, fmt.Errorf("current user profile is required")
	}
	if candidate == nil {
		return nil, fmt.Errorf("candidate profile is required")
	}

	prompt := buildPrompt(current, candidate, ruleScore)
	log := logger.WithPair(a.logger, current.ID, candidate.ID)

	log.Debug("gemini generate content request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, a.maxLogLen)),
	)

	raw, err := a.generator.GenerateContent(ctx, systemInstruction, prompt)
	if err != nil {
		return nil, err
	}

	log.Debug("gemini generate content response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, a.maxLogLen)),
	)

	assessment, err := parseResponse(raw)
	if err != nil {
		return nil, err
	}

	assessment.Raw = raw
	return assessment, nil
}

func buildPrompt(current, candidate *profile.Profile, ruleScore float64) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "User 1:\n{{CURRENT_USER}}\n\nUser 2:\n{{CANDIDATE}}\n\nRule-based score: {{RULE_SCORE}}\n\nJSON Response:"
	}

	prompt := strings.ReplaceAll(template, "{{CURRENT_USER}}", describeProfile(current, false))
	prompt = strings.ReplaceAll(prompt, "{{CANDIDATE}}", describeProfile(candidate, true))
	prompt = strings.ReplaceAll(prompt, "{{RULE_SCORE}}", strconv.FormatFloat(ruleScore, 'f', 1, 64))
	return prompt
}

// describeProfile renders the sections relevant to the analysis as a bullet list.
// Absent values are spelled out as "unknown" so the model does not guess them.
func describeProfile(p *profile.Profile, withBio bool) string {
	var lines []string

	if withBio && strings.TrimSpace(p.Bio) != "" {
		lines = append(lines, "- Bio: "+singleLine(p.Bio))
	}

	schedule := "unknown"
	if s := p.ScheduleInfo; s != nil {
		schedule = fmt.Sprintf("%s, %s-%s, works from home: %s",
			orUnknown(s.WorkSchedule), orUnknown(s.WakeUpTime), orUnknown(s.BedTime), boolText(s.WorkFromHome))
	}
	lines = append(lines, "- Schedule: "+schedule)

	preferences := "unknown"
	if p.PreferencesInfo != nil {
		if data, err := json.Marshal(p.PreferencesInfo); err == nil {
			preferences = string(data)
		}
	}
	lines = append(lines, "- Preferences: "+preferences)

	services := "unknown"
	if s := p.ServicesInfo; s != nil {
		services = fmt.Sprintf("Offers %s, Needs %s", listText(s.ServicesOffered), listText(s.ServicesNeeded))
	}
	lines = append(lines, "- Services: "+services)

	housing := "unknown"
	if h := p.HousingInfo; h != nil {
		budget := "unknown"
		if h.Budget != nil {
			budget = fmt.Sprintf("$%.0f-%.0f", h.Budget.Min, h.Budget.Max)
		}
		housing = fmt.Sprintf("%s, Budget %s, Preferred location %s",
			orUnknown(h.HousingType), budget, orUnknown(singleLine(h.PreferredLocation)))
	}
	lines = append(lines, "- Housing: "+housing)

	if p.BasicInfo != nil && strings.TrimSpace(p.BasicInfo.Location) != "" {
		lines = append(lines, "- Location: "+singleLine(p.BasicInfo.Location))
	}

	return strings.Join(lines, "\n")
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "unknown"
	}
	return strings.TrimSpace(s)
}

func boolText(v *bool) string {
	if v == nil {
		return "unknown"
	}
	return strconv.FormatBool(*v)
}

func listText(items []string) string {
	if len(items) == 0 {
		return "nothing"
	}
	return strings.Join(items, ", ")
}

func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ValidResponse reports whether raw would be accepted as an assessment.
func ValidResponse(raw string) bool {
	_, err := parseResponse(raw)
	return err == nil
}

// parseResponse accepts only a JSON object with a numeric score and a list of
// string reasons. Anything else is reported as ai.ErrMalformedResponse.
func parseResponse(raw string) (*ai.Assessment, error) {
	cleaned, err := extractJSON(raw)
	if err != nil {
		return nil, err
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("%w: %w", ai.ErrMalformedResponse, err)
	}

	result, err := gojsonschema.Validate(responseSchema, gojsonschema.NewGoLoader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: validate: %w", ai.ErrMalformedResponse, err)
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return nil, fmt.Errorf("%w: %s", ai.ErrMalformedResponse, strings.Join(errs, "; "))
	}

	var payload responsePayload
	if err := mapstructure.Decode(data, &payload); err != nil {
		return nil, fmt.Errorf("%w: decode: %w", ai.ErrMalformedResponse, err)
	}

	if math.IsNaN(payload.Score) || math.IsInf(payload.Score, 0) {
		return nil, fmt.Errorf("%w: score is not a finite number", ai.ErrMalformedResponse)
	}

	reasons := compact(payload.Reasons)
	if len(reasons) > maxReasons {
		reasons = reasons[:maxReasons]
	}

	return &ai.Assessment{
		Score:    math.Max(0, math.Min(100, payload.Score)),
		Reasons:  reasons,
		Concerns: compact(payload.Concerns),
	}, nil
}

// extractJSON strips markdown code fences and returns the outermost JSON object.
func extractJSON(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end < start {
		return "", fmt.Errorf("%w: %w", ai.ErrMalformedResponse, errNoJSONObject)
	}

	return raw[start : end+1], nil
}

var errNoJSONObject = errors.New("no json object found")

func compact(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
