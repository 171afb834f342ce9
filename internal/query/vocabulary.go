// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package query

// meshTerms maps normalized supplement names to their MeSH descriptor.
var meshTerms = map[string]string{
	"magnesium":        "Magnesium",
	"zinc":             "Zinc",
	"iron":             "Iron",
	"calcium":          "Calcium",
	"selenium":         "Selenium",
	"vitamin a":        "Vitamin A",
	"vitamin b12":      "Vitamin B 12",
	"vitamin b6":       "Vitamin B 6",
	"vitamin c":        "Ascorbic Acid",
	"vitamin d":        "Vitamin D",
	"vitamin e":        "Vitamin E",
	"vitamin k":        "Vitamin K",
	"folate":           "Folic Acid",
	"folic acid":       "Folic Acid",
	"fish oil":         "Fish Oils",
	"omega-3":          "Fatty Acids, Omega-3",
	"creatine":         "Creatine",
	"melatonin":        "Melatonin",
	"caffeine":         "Caffeine",
	"probiotics":       "Probiotics",
	"curcumin":         "Curcumin",
	"turmeric":         "Curcuma",
	"ashwagandha":      "Withania",
	"ginkgo":           "Ginkgo biloba",
	"ginkgo biloba":    "Ginkgo biloba",
	"ginseng":          "Panax",
	"echinacea":        "Echinacea",
	"st john's wort":   "Hypericum",
	"glucosamine":      "Glucosamine",
	"chondroitin":      "Chondroitin Sulfates",
	"coenzyme q10":     "Ubiquinone",
	"green tea":        "Tea",
	"garlic":           "Garlic",
	"valerian":         "Valerian",
	"beta-alanine":     "beta-Alanine",
	"whey protein":     "Whey Proteins",
	"l-carnitine":      "Carnitine",
	"carnitine":        "Carnitine",
	"n-acetylcysteine": "Acetylcysteine",
	"resveratrol":      "Resveratrol",
	"berberine":        "Berberine",
}

// benefitSynonyms maps normalized benefit terms to the scientific phrases
// searched in title and abstract.
var benefitSynonyms = map[string][]string{
	"sleep":          {"sleep", "insomnia", "sleep quality", "sleep latency"},
	"anxiety":        {"anxiety", "anxiety disorders", "stress"},
	"stress":         {"stress", "cortisol", "psychological stress"},
	"cognition":      {"cognition", "cognitive function", "memory"},
	"memory":         {"memory", "cognition", "cognitive function"},
	"depression":     {"depression", "depressive symptoms", "mood"},
	"mood":           {"mood", "affect", "depressive symptoms"},
	"muscle":         {"muscle strength", "muscle mass", "lean body mass"},
	"strength":       {"muscle strength", "strength", "power output"},
	"endurance":      {"endurance", "exercise performance", "VO2max"},
	"blood pressure": {"blood pressure", "hypertension"},
	"inflammation":   {"inflammation", "C-reactive protein", "inflammatory markers"},
	"immunity":       {"immune function", "immunity", "respiratory infection"},
	"heart health":   {"cardiovascular", "heart disease", "cardiac function"},
	"joint pain":     {"joint pain", "osteoarthritis", "arthralgia"},
	"energy":         {"fatigue", "energy", "vitality"},
	"fatigue":        {"fatigue", "tiredness", "energy"},
	"weight loss":    {"weight loss", "body weight", "obesity"},
	"bone health":    {"bone mineral density", "osteoporosis", "fracture"},
	"blood sugar":    {"blood glucose", "glycemic control", "insulin resistance"},
	"cholesterol":    {"cholesterol", "LDL", "lipid profile"},
	"migraine":       {"migraine", "headache"},
	"skin":           {"skin health", "skin aging", "dermatitis"},
}

// negativePhrases mark null or negative findings in a title or abstract.
var negativePhrases = []string{
	"no effect",
	"not effective",
	"no significant difference",
	"no significant effect",
	"ineffective",
	"no benefit",
	"did not improve",
}
