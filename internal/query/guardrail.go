// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package query

import (
	"regexp"
	"strings"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// Suggestion lists searches offered when a term is refused.
const Suggestion = "ashwagandha, omega-3, vitamin-d, magnesium, sleep, cognitive, muscle-gain"

// blockedTerms are words that mark a query as something other than a
// dietary supplement: recipes, prescription or illegal drugs, anabolic
// agents and abusive input. English and Spanish forms are both listed.
var blockedTerms = map[string]string{}

func init() {
	groups := map[string][]string{
		"recipes are not supported": {
			"recipe", "receta", "pizza", "pasta", "cake", "pastel", "bread", "pan",
			"cookie", "galleta", "dessert", "postre", "salad", "ensalada", "soup",
			"sopa", "stew", "guiso",
		},
		"prescription drugs are not supplements": {
			"antibiotic", "antibiotico", "penicillin", "penicilina", "amoxicillin",
			"amoxicilina", "ibuprofen", "ibuprofeno", "aspirin", "aspirina",
			"acetaminophen", "paracetamol", "opioid", "opioide", "morphine", "morfina",
			"oxycodone", "hydrocodone", "fentanyl", "adderall", "ritalin", "xanax",
			"valium", "prozac", "zoloft", "lexapro",
		},
		"illegal substances are not supported": {
			"cocaine", "cocaina", "heroin", "heroina", "methamphetamine",
			"metanfetamina", "meth", "marijuana", "marihuana", "cannabis", "weed",
			"lsd", "ecstasy", "mdma", "ketamine", "ketamina",
		},
		"anabolic agents are not supported": {
			"steroid", "esteroide", "anabolic", "anabolico", "testosterone-injection",
			"hgh", "growth-hormone", "trenbolone", "deca", "dianabol", "winstrol",
		},
		"query is not a supplement search": {
			"bomb", "bomba", "weapon", "arma", "poison", "veneno", "kill", "matar",
			"porn", "porno", "sex", "sexo", "hack", "hackear", "crack",
		},
	}
	for reason, words := range groups {
		for _, w := range words {
			blockedTerms[w] = reason
		}
	}
}

// suspiciousPatterns catch phrasings whose individual words are harmless.
var suspiciousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(how to|como) (make|hacer|create|crear) (bomb|bomba|weapon|arma)`),
	regexp.MustCompile(`(?i)\b(recipe|receta) (for|para|de)\b`),
	regexp.MustCompile(`(?i)\b(buy|comprar|purchase|adquirir) (drug|droga|illegal)`),
	regexp.MustCompile(`(?i)\b(prescription|receta medica|rx)\b`),
}

// Screen refuses terms that are clearly not dietary supplement searches.
// It is a blocklist: unknown terms pass. The error is a
// *types.ValidationError carrying Suggestion.
func Screen(field, term string) error {
	norm := Normalize(term)
	for _, word := range strings.Fields(norm) {
		if reason, ok := blockedTerms[word]; ok {
			return &types.ValidationError{Field: field, Reason: reason, Suggestion: Suggestion}
		}
	}
	for _, re := range suspiciousPatterns {
		if re.MatchString(norm) {
			return &types.ValidationError{Field: field, Reason: "query pattern not allowed", Suggestion: Suggestion}
		}
	}
	return nil
}
