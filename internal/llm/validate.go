package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/bookscan/constants"
	"github.com/joseph-ayodele/bookscan/internal/common"
)

// PageFields is what the model is allowed to decide about a page.
type PageFields struct {
	PageNumber    *int                `json:"page_number"`
	Text          string              `json:"text"`
	LifeStageFlag constants.LifeStage `json:"life_stage_flag"`
}

// PageNumberFields is the reply of the bottom-crop pass.
type PageNumberFields struct {
	PageNumber *int `json:"page_number"`
}

// JudgmentFields is the reply of the judge pass.
type JudgmentFields struct {
	TextAccuracy       int    `json:"text_accuracy"`
	PageNumberAccuracy *int   `json:"page_number_accuracy"`
	TitleAccuracy      *int   `json:"title_accuracy"`
	Rationale          string `json:"rationale"`
}

// SchemaViolation is the named failure of a reply that is not valid JSON or does
// not satisfy its schema. It matches common.ErrSchemaViolation.
type SchemaViolation struct {
	Schema string
	Raw    []byte
	Cause  error
}

func (e *SchemaViolation) Error() string {
	return fmt.Sprintf("%s: reply violates schema: %v", e.Schema, e.Cause)
}

func (e *SchemaViolation) Unwrap() error        { return e.Cause }
func (e *SchemaViolation) Is(target error) bool { return target == common.ErrSchemaViolation }

// IsSchemaViolation reports whether err carries a *SchemaViolation.
func IsSchemaViolation(err error) bool {
	var sv *SchemaViolation
	return errors.As(err, &sv)
}

func compileSchema(schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

func validateCompiled(schema *jsonschema.Schema, data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}

var (
	pageSchema       = sync.OnceValues(func() (*jsonschema.Schema, error) { return compileSchema(BuildPageJSONSchema()) })
	pageNumberSchema = sync.OnceValues(func() (*jsonschema.Schema, error) { return compileSchema(BuildPageNumberJSONSchema()) })
	judgmentSchema   = sync.OnceValues(func() (*jsonschema.Schema, error) { return compileSchema(BuildJudgmentJSONSchema()) })
)

// ValidatePage turns a raw model reply into PageFields or a *SchemaViolation.
func ValidatePage(raw []byte, logger *slog.Logger) (PageFields, error) {
	var out PageFields
	err := validateInto(PageSchemaName, pageSchema, raw, logger, &out)
	if err != nil {
		return PageFields{}, err
	}
	if out.PageNumber != nil && *out.PageNumber < 0 {
		return PageFields{}, &SchemaViolation{Schema: PageSchemaName, Raw: raw, Cause: fmt.Errorf("negative page_number %d", *out.PageNumber)}
	}
	return out, nil
}

// ValidatePageNumber validates the bottom-crop reply.
func ValidatePageNumber(raw []byte, logger *slog.Logger) (PageNumberFields, error) {
	var out PageNumberFields
	if err := validateInto(PageNumberSchemaName, pageNumberSchema, raw, logger, &out); err != nil {
		return PageNumberFields{}, err
	}
	if out.PageNumber != nil && *out.PageNumber < 0 {
		return PageNumberFields{}, &SchemaViolation{Schema: PageNumberSchemaName, Raw: raw, Cause: fmt.Errorf("negative page_number %d", *out.PageNumber)}
	}
	return out, nil
}

// ValidateJudgment validates the judge reply.
func ValidateJudgment(raw []byte, logger *slog.Logger) (JudgmentFields, error) {
	var out JudgmentFields
	if err := validateInto(JudgmentSchemaName, judgmentSchema, raw, logger, &out); err != nil {
		return JudgmentFields{}, err
	}
	return out, nil
}

func validateInto(name string, compiled func() (*jsonschema.Schema, error), raw []byte, logger *slog.Logger, dst any) error {
	schema, err := compiled()
	if err != nil {
		// A schema that does not compile is a programming error, not a bad reply.
		return fmt.Errorf("%s: %w", name, err)
	}
	clean, _, err := NormalizeAndSanitizeJSON(raw, logger)
	if err != nil {
		return &SchemaViolation{Schema: name, Raw: raw, Cause: err}
	}
	if err := validateCompiled(schema, clean); err != nil {
		return &SchemaViolation{Schema: name, Raw: raw, Cause: err}
	}
	if err := json.Unmarshal(clean, dst); err != nil {
		return &SchemaViolation{Schema: name, Raw: raw, Cause: err}
	}
	return nil
}
