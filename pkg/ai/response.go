package ai

import (
	"encoding/json"
	"fmt"
	"html"
	"math"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

const evaluationSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["quality_score"],
  "properties": {
    "quality_score": {"type": "number", "minimum": 1, "maximum": 5}
  }
}`

var (
	responseSchema = jsonschema.MustCompileString("evaluation.schema.json", evaluationSchema)
	textPolicy     = bluemonday.StrictPolicy()
)

// ParseEvaluationResponse validates the model output and normalises list fields.
func ParseEvaluationResponse(content string) (EvaluationResult, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return EvaluationResult{}, fmt.Errorf("empty evaluation response")
	}

	var payload interface{}
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return EvaluationResult{}, fmt.Errorf("parse evaluation json: %w", err)
	}

	if err := responseSchema.Validate(payload); err != nil {
		return EvaluationResult{}, fmt.Errorf("invalid evaluation payload: %w", err)
	}

	object := payload.(map[string]interface{})
	score, _ := object["quality_score"].(float64)

	return EvaluationResult{
		QualityScore:        int(math.Round(score)),
		Strengths:           normalizeStringList(object["strengths"]),
		AreasForImprovement: normalizeStringList(object["areas_for_improvement"]),
		RiskTags:            normalizeStringList(object["risk_tags"]),
	}, nil
}

// normalizeStringList keeps trimmed, markup-free, non-empty strings; anything
// that is not an array becomes an empty list.
func normalizeStringList(value interface{}) []string {
	items, ok := value.([]interface{})
	if !ok {
		return []string{}
	}

	result := make([]string, 0, len(items))
	for _, item := range items {
		text, ok := item.(string)
		if !ok {
			continue
		}
		clean := strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(text)))
		if clean != "" {
			result = append(result, clean)
		}
	}
	return result
}
