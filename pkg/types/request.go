// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Filters narrows every search strategy. Zero values mean "no restriction".
type Filters struct {
	// YearFrom is the earliest publication year to include.
	YearFrom int `json:"year_from,omitempty" yaml:"year_from,omitempty" validate:"omitempty,gte=1800,lte=2200"`

	// YearTo is the latest publication year to include.
	YearTo int `json:"year_to,omitempty" yaml:"year_to,omitempty" validate:"omitempty,gte=1800,lte=2200,gtefield=YearFrom"`

	// HumanOnly restricts results to human studies.
	HumanOnly bool `json:"human_only,omitempty" yaml:"human_only,omitempty"`

	// StudyTypes restricts results to the listed methodologies.
	StudyTypes []StudyType `json:"study_types,omitempty" yaml:"study_types,omitempty" validate:"dive,oneof=randomized_controlled_trial meta_analysis systematic_review cochrane_review observational other"`
}

// RankRequest is the single inbound operation of the engine.
type RankRequest struct {
	// Term is the canonical supplement name.
	Term string `json:"term" yaml:"term" validate:"required,max=200"`

	// BenefitTerm is an optional benefit or condition.
	BenefitTerm string `json:"benefit_term,omitempty" yaml:"benefit_term,omitempty" validate:"max=200"`

	// MaxResults caps the merged study set. Zero uses the engine default.
	MaxResults int `json:"max_results,omitempty" yaml:"max_results,omitempty" validate:"gte=0,lte=1000"`

	Filters Filters `json:"filters" yaml:"filters"`

	// Timeout bounds the whole pipeline when the caller's context has no
	// deadline. Zero uses the engine default.
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty" validate:"gte=0"`

	// SkipCache bypasses the result cache for both lookup and population.
	SkipCache bool `json:"skip_cache,omitempty" yaml:"skip_cache,omitempty"`
}
