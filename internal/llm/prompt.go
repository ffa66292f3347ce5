package llm

import (
	"strings"

	"github.com/joseph-ayodele/bookscan/constants"
)

// BuildPageInstructions is the prompt for full-page extraction. It never mentions
// book or author: those are not the model's to decide.
func BuildPageInstructions() string {
	parts := []string{
		"Extract the visible page text accurately.",
		"- page_number: ONLY if a page number is printed and legible on this page; otherwise null. Never infer it from neighbouring pages.",
		"- text: the exact page text, preserving paragraph breaks with \\n. Do not summarize or paraphrase. Use an empty string if the page has no text.",
		"- life_stage_flag: whether the page describes " + strings.Join(constants.LifeStagesAsStrings(), "/") + " (use unclear when unsure).",
		"Do not guess missing fields.",
	}
	return strings.Join(parts, "\n")
}

// BuildPageNumberInstructions is the prompt for the bottom-crop second pass.
func BuildPageNumberInstructions() string {
	return "Look ONLY at this cropped image (bottom of the page). " +
		"If you see a page number, return it as an integer. " +
		"If none is visible, return null. Do not guess."
}

// BuildJudgeInstructions asks for a score of an existing extraction, not a re-extraction.
func BuildJudgeInstructions() string {
	parts := []string{
		"You are judging the accuracy of text extracted from a photo of a book page.",
		"The prior extraction is given as JSON. Do not re-extract the page; score it.",
		"Rate each item on a scale of 1-3:",
		"1 = incorrect / major errors",
		"2 = mostly correct with minor errors",
		"3 = accurate and faithful",
		"text_accuracy scores the text field. page_number_accuracy scores page_number. " +
			"title_accuracy scores book_name and author_name against anything printed on the page.",
		"Use null if a field is not visible on the page.",
		"Give a short rationale. Be strict but fair.",
	}
	return strings.Join(parts, "\n")
}
