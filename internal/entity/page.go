package entity

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/joseph-ayodele/bookscan/constants"
)

// PageRecord is the sidecar persisted next to each photographed page.
// Pointer fields marshal as null; every key is always written.
type PageRecord struct {
	BookName      *string             `json:"book_name"`
	AuthorName    *string             `json:"author_name"`
	PageNumber    *int                `json:"page_number" validate:"omitempty,gte=0"`
	Text          string              `json:"text"`
	LifeStageFlag constants.LifeStage `json:"life_stage_flag"`
	SourceFile    string              `json:"source_file" validate:"required"`
	Reference     string              `json:"reference" validate:"required"`

	// SidecarPath is where the record was read from; never serialized.
	SidecarPath string `json:"-"`
}

var validate = validator.New()

// Validate checks the invariants a record read back from disk must still satisfy.
func (p *PageRecord) Validate() error {
	if err := validate.Struct(p); err != nil {
		return err
	}
	if p.LifeStageFlag != "" && !p.LifeStageFlag.Valid() {
		return fmt.Errorf("life_stage_flag %q is not one of %v", p.LifeStageFlag, constants.LifeStagesAsStrings())
	}
	return nil
}

// ReviewRow is the per-record projection emitted by aggregation. It is never persisted
// as a source of truth; every aggregation run rebuilds it.
type ReviewRow struct {
	SourceFile    string
	BookName      *string
	AuthorName    *string
	PageNumber    *int
	TextLength    int
	TextPreview   string
	LifeStageFlag constants.LifeStage

	SidecarPath string
	Reference   string
	// Error is set on flagged rows whose sidecar could not be read.
	Error string
}

// Flagged reports whether the row stands for an unreadable sidecar.
func (r ReviewRow) Flagged() bool { return r.Error != "" }

// JudgmentResult is one independent accuracy score for a sampled record.
type JudgmentResult struct {
	SourceFile         string `json:"source_file"`
	Reference          string `json:"reference"`
	TextAccuracy       *int   `json:"text_accuracy"`
	PageNumberAccuracy *int   `json:"page_number_accuracy"`
	TitleAccuracy      *int   `json:"title_accuracy"`
	Rationale          string `json:"rationale"`
	Error              string `json:"error,omitempty"`
}

// StrPtr returns nil for s == "" so absent metadata stays null.
func StrPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns "" for nil.
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
