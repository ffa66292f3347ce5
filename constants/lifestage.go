package constants

import (
	"strings"
)

// LifeStage is the single bounded classification label carried by every page record.
type LifeStage string

const (
	LifeStageChildhood LifeStage = "childhood"
	LifeStageAdulthood LifeStage = "adulthood"
	LifeStageBoth      LifeStage = "both"
	LifeStageUnclear   LifeStage = "unclear"
)

var allLifeStages = []LifeStage{
	LifeStageChildhood,
	LifeStageAdulthood,
	LifeStageBoth,
	LifeStageUnclear,
}

// LifeStagesAsStrings returns the enum in schema order.
func LifeStagesAsStrings() []string {
	result := make([]string, len(allLifeStages))
	for i, ls := range allLifeStages {
		result[i] = string(ls)
	}
	return result
}

// ParseLifeStage accepts only exact enum members (case and surrounding space tolerated).
// There is no synonym mapping: an unknown label is a validation failure, not a guess.
func ParseLifeStage(input string) (LifeStage, bool) {
	normalized := LifeStage(strings.ToLower(strings.TrimSpace(input)))
	for _, ls := range allLifeStages {
		if normalized == ls {
			return ls, true
		}
	}
	return "", false
}

// Valid reports whether ls is an enum member.
func (ls LifeStage) Valid() bool {
	for _, m := range allLifeStages {
		if ls == m {
			return true
		}
	}
	return false
}
