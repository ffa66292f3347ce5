package llm

import (
	"github.com/joseph-ayodele/bookscan/constants"
)

// Schema names reported to the provider.
const (
	PageSchemaName       = "page_extract"
	PageNumberSchemaName = "page_num_only"
	JudgmentSchemaName   = "judge_result"
)

// BuildPageJSONSchema is the only shape the model may return for a page. Book and
// author are deliberately absent: they come from the folder name, never the model.
func BuildPageJSONSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"page_number": nullable(map[string]any{"type": "integer"}),
			"text":        map[string]any{"type": "string"},
			"life_stage_flag": map[string]any{
				"type": "string",
				"enum": constants.LifeStagesAsStrings(),
			},
		},
		"required": []string{"page_number", "text", "life_stage_flag"},
	}
}

// BuildPageNumberJSONSchema is used for the bottom-crop second pass.
func BuildPageNumberJSONSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"page_number": nullable(map[string]any{"type": "integer"}),
		},
		"required": []string{"page_number"},
	}
}

// BuildJudgmentJSONSchema scores an existing extraction on a 1..3 scale.
// Page number and title scores are null when the field is not visible on the page.
func BuildJudgmentJSONSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"text_accuracy":        score(),
			"page_number_accuracy": nullable(score()),
			"title_accuracy":       nullable(score()),
			"rationale":            map[string]any{"type": "string"},
		},
		"required": []string{"text_accuracy", "page_number_accuracy", "title_accuracy", "rationale"},
	}
}

func score() map[string]any {
	return map[string]any{"type": "integer", "enum": []int{1, 2, 3}}
}

func nullable(s map[string]any) map[string]any {
	return map[string]any{"anyOf": []any{s, map[string]any{"type": "null"}}}
}
