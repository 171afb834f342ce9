// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sentiment

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strings"
	"text/template"

	json "github.com/goccy/go-json"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// classificationPromptTmpl is sent once per study. The model must answer
// with a single JSON object.
var classificationPromptTmpl = template.Must(template.New("classification").Parse(`You are a biomedical evidence reviewer. Judge whether the findings of the study below support, oppose, or are neutral toward the claimed effect of the supplement.

Supplement: {{.Term}}
{{- if .Benefit}}
Claimed benefit: {{.Benefit}}
{{- end}}

Label definitions:
- "positive": the study reports a beneficial, statistically significant effect of the supplement{{if .Benefit}} on the claimed benefit{{end}}.
- "negative": the study reports no effect, a null result, or harm.
- "neutral": the findings are mixed, inconclusive, or do not address the effect.

Respond with a JSON object with exactly these fields and no text outside it:
- label: one of "positive", "negative", "neutral"
- confidence: a float between 0.0 and 1.0
- rationale: one sentence explaining the judgment

Example response:
{"label": "positive", "confidence": 0.82, "rationale": "The trial found a significant reduction in sleep latency versus placebo."}

Title: {{.Title}}

Abstract:
{{.Abstract}}
`))

// renderPrompt executes the classification prompt template for one request.
func renderPrompt(req Request) (string, error) {
	var buf bytes.Buffer
	if err := classificationPromptTmpl.Execute(&buf, req); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// errMalformed marks a response that does not match the expected shape.
var errMalformed = errors.New("malformed classification response")

// rawResponse is the loosely typed model output.
type rawResponse struct {
	Label      string   `json:"label"`
	Confidence *float64 `json:"confidence"`
	Rationale  string   `json:"rationale"`
}

const maxRationale = 300

// parseResponse extracts the JSON object from model text and maps it to a
// SentimentResult. Code fences and surrounding prose are tolerated; an
// unknown label or an out-of-range confidence is not.
func parseResponse(text string) (types.SentimentResult, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return types.SentimentResult{}, fmt.Errorf("%w: no JSON object", errMalformed)
	}

	var raw rawResponse
	if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err != nil {
		return types.SentimentResult{}, fmt.Errorf("%w: %v", errMalformed, err)
	}

	label, ok := NormalizeLabel(raw.Label)
	if !ok {
		return types.SentimentResult{}, fmt.Errorf("%w: unknown label %q", errMalformed, raw.Label)
	}
	if raw.Confidence == nil {
		return types.SentimentResult{}, fmt.Errorf("%w: missing confidence", errMalformed)
	}
	conf := *raw.Confidence
	if math.IsNaN(conf) || conf < 0 || conf > 1 {
		return types.SentimentResult{}, fmt.Errorf("%w: confidence %v out of range", errMalformed, conf)
	}

	rationale := strings.TrimSpace(raw.Rationale)
	if r := []rune(rationale); len(r) > maxRationale {
		rationale = string(r[:maxRationale-3]) + "..."
	}

	return types.SentimentResult{
		Label:      label,
		Confidence: conf,
		Rationale:  rationale,
		Classified: true,
	}, nil
}

// NormalizeLabel maps the label vocabularies models use onto
// SentimentLabel.
func NormalizeLabel(s string) (types.SentimentLabel, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "positive", "supports", "support", "supporting":
		return types.SentimentPositive, true
	case "negative", "opposes", "oppose", "opposing":
		return types.SentimentNegative, true
	case "neutral", "inconclusive", "mixed":
		return types.SentimentNeutral, true
	default:
		return "", false
	}
}

// excerpt truncates s to at most n runes.
func excerpt(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
