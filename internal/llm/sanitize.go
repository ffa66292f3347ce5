package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/bookscan/constants"
)

// folderOwnedKeys are never accepted from the model: book and author come only from the
// directory convention. They are dropped before validation instead of failing the call.
var folderOwnedKeys = []string{"book_name", "author_name", "author", "title", "book", "book_title"}

// NormalizeAndSanitizeJSON
// - Recovers JSON wrapped in code fences or prose
// - Drops folder-owned metadata keys the model volunteered
// - Lowercases life_stage_flag and turns digit-only page_number strings into integers
// Unknown keys are left in place so strict validation rejects them.
func NormalizeAndSanitizeJSON(raw []byte, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	parsed, err := parseStructuredJSON(string(raw))
	if err != nil {
		return nil, nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(parsed, &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	dropped := make([]string, 0, 2)
	for _, k := range folderOwnedKeys {
		if _, ok := m[k]; ok {
			delete(m, k)
			dropped = append(dropped, k+"(folder-owned)")
		}
	}

	if v, ok := m["life_stage_flag"].(string); ok {
		// Unknown labels are left for the schema enum to reject.
		if ls, ok := constants.ParseLifeStage(v); ok {
			m["life_stage_flag"] = string(ls)
		}
	}
	if v, ok := m["page_number"].(string); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			m["page_number"] = n
		}
	}

	out, err := json.Marshal(m)
	if err != nil {
		return nil, dropped, fmt.Errorf("sanitize: encode: %w", err)
	}
	if len(dropped) > 0 {
		logger.Warn("llm.extract.normalize_sanitize", "dropped", dropped)
	}
	return out, dropped, nil
}

// parseStructuredJSON parses JSON from model output, with lightweight recovery
// for markdown code fences and surrounding text.
func parseStructuredJSON(content string) (json.RawMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("empty structured output")
	}

	candidates := []string{content}
	if stripped := stripCodeFences(content); stripped != "" {
		candidates = append(candidates, stripped)
	}
	if start, end := strings.Index(content, "{"), strings.LastIndex(content, "}"); start >= 0 && end > start {
		candidates = append(candidates, content[start:end+1])
	}

	for _, c := range candidates {
		var probe map[string]any
		if err := json.Unmarshal([]byte(c), &probe); err == nil {
			return json.RawMessage(c), nil
		}
	}
	return nil, fmt.Errorf("reply is not a JSON object")
}

func stripCodeFences(content string) string {
	if !strings.HasPrefix(content, "```") {
		return ""
	}
	lines := strings.Split(content, "\n")
	if len(lines) < 2 {
		return ""
	}
	lines = lines[1:]
	if strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
