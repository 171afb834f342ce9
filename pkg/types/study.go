// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the evidence-engine pipeline:
// literature records, their quality scores and sentiment judgments, the ranked
// summary returned to callers, configuration, and the error taxonomy.
package types

import "time"

// StudyType tags the methodology of a literature record. A record may carry
// several tags; the scorer uses the highest-ranked one.
type StudyType string

const (
	StudyRCT              StudyType = "randomized_controlled_trial"
	StudyMetaAnalysis     StudyType = "meta_analysis"
	StudySystematicReview StudyType = "systematic_review"
	StudyCochraneReview   StudyType = "cochrane_review"
	StudyObservational    StudyType = "observational"
	StudyOther            StudyType = "other"
)

// AllStudyTypes returns every StudyType in descending evidence order.
func AllStudyTypes() []StudyType {
	return []StudyType{
		StudyCochraneReview, StudyMetaAnalysis, StudySystematicReview,
		StudyRCT, StudyObservational, StudyOther,
	}
}

// VenueTier is a coarse ranking of the publication venue.
type VenueTier string

const (
	VenueTop      VenueTier = "top"
	VenueHigh     VenueTier = "high"
	VenueStandard VenueTier = "standard"
	VenueUnranked VenueTier = "unranked"
)

// Study is a single literature record as returned by the literature client.
// ID is the dedup key: two records with the same ID are the same study.
type Study struct {
	// ID is the stable upstream identifier (PubMed PMID).
	ID string `json:"id" yaml:"id"`

	// Title is the article title.
	Title string `json:"title" yaml:"title"`

	// Abstract is the full abstract text, sections joined by blank lines.
	Abstract string `json:"abstract" yaml:"abstract"`

	// PublicationYear is the year of publication, 0 when unknown.
	PublicationYear int `json:"publication_year" yaml:"publication_year"`

	// StudyTypes lists the methodology tags found on the record.
	StudyTypes []StudyType `json:"study_types" yaml:"study_types"`

	// SampleSize is the participant count parsed from the abstract, nil when unknown.
	SampleSize *int `json:"sample_size,omitempty" yaml:"sample_size,omitempty"`

	// VenueTier ranks the journal. Empty is treated as unranked.
	VenueTier VenueTier `json:"venue_tier,omitempty" yaml:"venue_tier,omitempty"`

	// Journal is the journal title as recorded upstream.
	Journal string `json:"journal,omitempty" yaml:"journal,omitempty"`

	// DOI is the digital object identifier, if the record carries one.
	DOI string `json:"doi,omitempty" yaml:"doi,omitempty"`

	// Authors lists author display names in source order.
	Authors []string `json:"authors,omitempty" yaml:"authors,omitempty"`

	// FoundBy lists the search strategies that returned this study.
	FoundBy []string `json:"found_by,omitempty" yaml:"found_by,omitempty"`
}

// HasType reports whether the study carries the given tag.
func (s Study) HasType(t StudyType) bool {
	for _, st := range s.StudyTypes {
		if st == t {
			return true
		}
	}
	return false
}

// QualityTier buckets a quality score for display.
type QualityTier string

const (
	TierExceptional QualityTier = "exceptional"
	TierHigh        QualityTier = "high"
	TierGood        QualityTier = "good"
	TierModerate    QualityTier = "moderate"
	TierLow         QualityTier = "low"
)

// ScoredStudy is a Study with its quality score. It is produced once by the
// scorer and never recomputed.
type ScoredStudy struct {
	Study `yaml:",inline"`

	// QualityScore is in [0, 100].
	QualityScore int `json:"quality_score" yaml:"quality_score"`

	// QualityTier is derived from QualityScore.
	QualityTier QualityTier `json:"quality_tier" yaml:"quality_tier"`
}

// SentimentLabel is the direction of a study's findings toward the supplement.
type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "positive"
	SentimentNegative SentimentLabel = "negative"
	SentimentNeutral  SentimentLabel = "neutral"
)

// SentimentResult is the classifier's judgment for one study.
type SentimentResult struct {
	Label      SentimentLabel `json:"label" yaml:"label"`
	Confidence float64        `json:"confidence" yaml:"confidence"`
	Rationale  string         `json:"rationale" yaml:"rationale"`

	// Classified is false when the result is the neutral default assigned
	// after a failed or unfinished classification call.
	Classified bool `json:"classified" yaml:"classified"`
}

// Unclassified returns the neutral, zero-confidence result assigned when a
// study could not be classified.
func Unclassified(reason string) SentimentResult {
	return SentimentResult{
		Label:      SentimentNeutral,
		Confidence: 0,
		Rationale:  reason,
	}
}

// EvaluatedStudy pairs a scored study with its sentiment.
type EvaluatedStudy struct {
	ScoredStudy `yaml:",inline"`

	Sentiment SentimentResult `json:"sentiment" yaml:"sentiment"`

	// Backfilled marks a neutral study placed in the opposing list because
	// too few negative studies were available.
	Backfilled bool `json:"backfilled,omitempty" yaml:"backfilled,omitempty"`
}

// Consensus is a coarse directional summary of the evidence population.
type Consensus string

const (
	ConsensusStrongPositive   Consensus = "strong_positive"
	ConsensusModeratePositive Consensus = "moderate_positive"
	ConsensusMixed            Consensus = "mixed"
	ConsensusModerateNegative Consensus = "moderate_negative"
	ConsensusStrongNegative   Consensus = "strong_negative"
	ConsensusInsufficientData Consensus = "insufficient_data"
)

// RankedMetadata summarizes the full evaluated population.
type RankedMetadata struct {
	// TotalStudies counts every evaluated study.
	TotalStudies int `json:"total_studies" yaml:"total_studies"`

	// ConsideredStudies counts studies meeting the confidence threshold.
	ConsideredStudies int `json:"considered_studies" yaml:"considered_studies"`

	// Label counts over all evaluated studies, including low-confidence ones.
	PositiveCount int `json:"positive_count" yaml:"positive_count"`
	NegativeCount int `json:"negative_count" yaml:"negative_count"`
	NeutralCount  int `json:"neutral_count" yaml:"neutral_count"`

	// Average quality score of the selected supporting and opposing lists.
	AvgSupportingQuality float64 `json:"avg_supporting_quality" yaml:"avg_supporting_quality"`
	AvgOpposingQuality   float64 `json:"avg_opposing_quality" yaml:"avg_opposing_quality"`

	Consensus       Consensus `json:"consensus" yaml:"consensus"`
	ConfidenceScore int       `json:"confidence_score" yaml:"confidence_score"`
}

// RankedResult is the balanced summary produced for one query.
type RankedResult struct {
	Term        string `json:"term" yaml:"term"`
	BenefitTerm string `json:"benefit_term,omitempty" yaml:"benefit_term,omitempty"`

	Supporting []EvaluatedStudy `json:"supporting" yaml:"supporting"`
	Opposing   []EvaluatedStudy `json:"opposing" yaml:"opposing"`
	Metadata   RankedMetadata   `json:"metadata" yaml:"metadata"`

	// StrategyErrors lists strategies that failed and were left out of the merge.
	StrategyErrors []string `json:"strategy_errors,omitempty" yaml:"strategy_errors,omitempty"`

	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`
}

// OutcomeStatus distinguishes a ranked summary from a no-evidence result.
type OutcomeStatus string

const (
	StatusRanked               OutcomeStatus = "ranked"
	StatusInsufficientEvidence OutcomeStatus = "insufficient_evidence"
)

// InsufficientEvidence reports that no study was found for a query. It is an
// expected result, not a failure.
type InsufficientEvidence struct {
	Term           string   `json:"term" yaml:"term"`
	BenefitTerm    string   `json:"benefit_term,omitempty" yaml:"benefit_term,omitempty"`
	StrategiesRun  []string `json:"strategies_run" yaml:"strategies_run"`
	StrategyErrors []string `json:"strategy_errors,omitempty" yaml:"strategy_errors,omitempty"`
}

// Outcome is the answer to one rank request. Exactly one of Result and
// Insufficient is set, matching Status.
type Outcome struct {
	Status       OutcomeStatus         `json:"status" yaml:"status"`
	Result       *RankedResult         `json:"result,omitempty" yaml:"result,omitempty"`
	Insufficient *InsufficientEvidence `json:"insufficient,omitempty" yaml:"insufficient,omitempty"`

	// Cached is true when the result was served from the result cache.
	Cached bool `json:"cached" yaml:"cached"`
}

// Ranked wraps a RankedResult in an Outcome.
func Ranked(r *RankedResult) Outcome {
	return Outcome{Status: StatusRanked, Result: r}
}

// NoEvidence wraps an InsufficientEvidence report in an Outcome.
func NoEvidence(ie *InsufficientEvidence) Outcome {
	return Outcome{Status: StatusInsufficientEvidence, Insufficient: ie}
}
