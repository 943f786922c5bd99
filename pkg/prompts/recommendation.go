// Package prompts builds the natural-language instructions sent to the
// recommendation provider.
package prompts

import (
	"fmt"
	"strings"

	"github.com/scentiq/scentiq-engine/pkg/models"
)

// SystemPersona frames the model as a master perfumer for every
// recommendation request.
const SystemPersona = "You are a master perfumer (a \"Nose\") at a luxury parfumerie. " +
	"You respond only with JSON matching the schema the user describes."

// BuildRecommendationPrompt creates the recommendation instruction. Every
// preference field is embedded verbatim; premium requests additionally carry
// mood targeting and ask for layering suggestions with a one-sentence
// rationale each. The JSON reply schema is spelled out explicitly because
// the provider reply is only trusted after validation against it.
func BuildRecommendationPrompt(prefs *models.UserPreferences, count int, isPremium bool) string {
	var prompt strings.Builder

	prompt.WriteString("As a master perfumer (a \"Nose\"), perform two tasks:\n")
	prompt.WriteString("1. Create a \"Fragrance Personality\" title and 2-sentence summary based on the user's choices.\n")
	prompt.WriteString(fmt.Sprintf("2. Recommend EXACTLY %d luxury fragrances based on:\n\n", count))

	prompt.WriteString(fmt.Sprintf("Scent Families: %s\n", strings.Join(prefs.ScentFamily, ", ")))
	prompt.WriteString(fmt.Sprintf("Occasions: %s\n", strings.Join(prefs.Occasions, ", ")))
	if isPremium {
		moods := strings.Join(prefs.Moods, ", ")
		if moods == "" {
			moods = "N/A"
		}
		prompt.WriteString(fmt.Sprintf("Target Moods: %s\n", moods))
	}
	prompt.WriteString(fmt.Sprintf("Projection Style: %s\n", prefs.ProjectionPreference))
	prompt.WriteString(fmt.Sprintf("Season/Climate: %s\n", strings.Join(prefs.SeasonClimate, ", ")))
	prompt.WriteString(fmt.Sprintf("Budget: %s\n", prefs.BudgetRange))
	prompt.WriteString(fmt.Sprintf("Preferred Notes: %s\n", strings.Join(prefs.LovedNotes, ", ")))
	prompt.WriteString(fmt.Sprintf("Hated Notes: %s\n\n", strings.Join(prefs.HatedNotes, ", ")))

	prompt.WriteString("Return a selection of high-end perfumes.\n")
	if isPremium {
		prompt.WriteString("CRITICAL: For each fragrance, include \"layeringSuggestions\" as an array of objects. ")
		prompt.WriteString("Each object must have a \"note\" (the scent to layer with) and a \"reason\" ")
		prompt.WriteString("(a short 1-sentence explanation of why it complements the perfume).\n")
	}
	prompt.WriteString("\nRules:\n")
	prompt.WriteString("1. Provide name, brand, family, notes, poetic description, match reason, longevity, projection, bestSeason, and bestOccasion.\n")
	prompt.WriteString("2. Respond with a single JSON object in this exact shape:\n\n")

	prompt.WriteString("{\n")
	prompt.WriteString("  \"personalitySummary\": {\"title\": string, \"description\": string},\n")
	prompt.WriteString("  \"recommendations\": [\n")
	prompt.WriteString("    {\n")
	prompt.WriteString("      \"id\": string (optional),\n")
	prompt.WriteString("      \"name\": string, \"brand\": string, \"family\": string,\n")
	prompt.WriteString("      \"notes\": {\"top\": [string], \"middle\": [string], \"base\": [string]},\n")
	prompt.WriteString("      \"description\": string, \"matchReason\": string,\n")
	prompt.WriteString("      \"priceEstimate\": string (optional),\n")
	prompt.WriteString("      \"longevity\": string, \"projection\": string,\n")
	prompt.WriteString("      \"bestSeason\": string, \"bestOccasion\": string")
	if isPremium {
		prompt.WriteString(",\n      \"layeringSuggestions\": [{\"note\": string, \"reason\": string}]")
	}
	prompt.WriteString("\n    }\n")
	prompt.WriteString("  ]\n")
	prompt.WriteString("}\n")

	return prompt.String()
}
