// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"io"
	"strings"
	"unicode"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// CSLItem is a bibliographic entry in CSL (Citation Style Language) form.
// Field names follow the CSL-YAML schema so the output can be consumed by
// Pandoc and reference managers.
type CSLItem struct {
	ID             string    `yaml:"id"`
	Type           string    `yaml:"type"`
	Title          string    `yaml:"title"`
	Author         []CSLName `yaml:"author,omitempty"`
	ContainerTitle string    `yaml:"container-title,omitempty"`
	Abstract       string    `yaml:"abstract,omitempty"`
	Issued         *CSLDate  `yaml:"issued,omitempty"`
	DOI            string    `yaml:"DOI,omitempty"`
	PMID           string    `yaml:"PMID,omitempty"`
	URL            string    `yaml:"URL,omitempty"`
	Note           string    `yaml:"note,omitempty"`
}

// CSLName is a person's name in CSL form.
type CSLName struct {
	Family  string `yaml:"family,omitempty"`
	Given   string `yaml:"given,omitempty"`
	Literal string `yaml:"literal,omitempty"`
}

// CSLDate is a date in CSL date-parts form.
type CSLDate struct {
	DateParts [][]int `yaml:"date-parts"`
}

const pubmedURL = "https://pubmed.ncbi.nlm.nih.gov/"

// FormatCSL writes the selected studies of an outcome as a CSL-YAML list.
// Supporting studies come first, then opposing ones. An insufficient
// evidence outcome writes an empty list.
func FormatCSL(o types.Outcome, w io.Writer) error {
	items := []CSLItem{}
	if o.Result != nil {
		for _, s := range o.Result.Supporting {
			items = append(items, toCSLItem(s.Study, "supporting"))
		}
		for _, s := range o.Result.Opposing {
			note := "opposing"
			if s.Backfilled {
				note = "neutral (back-filled)"
			}
			items = append(items, toCSLItem(s.Study, note))
		}
	}
	return encodeCSL(items, w)
}

// FormatStudiesCSL writes scored studies as a CSL-YAML list.
func FormatStudiesCSL(studies []types.ScoredStudy, w io.Writer) error {
	items := make([]CSLItem, len(studies))
	for i, s := range studies {
		items[i] = toCSLItem(s.Study, "")
	}
	return encodeCSL(items, w)
}

func encodeCSL(items []CSLItem, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(items)
}

func toCSLItem(s types.Study, note string) CSLItem {
	item := CSLItem{
		ID:             "pmid" + s.ID,
		Type:           "article-journal",
		Title:          s.Title,
		ContainerTitle: s.Journal,
		Abstract:       s.Abstract,
		DOI:            s.DOI,
		PMID:           s.ID,
		URL:            pubmedURL + s.ID + "/",
		Note:           note,
	}
	for _, a := range s.Authors {
		item.Author = append(item.Author, parseAuthorName(a))
	}
	if s.PublicationYear > 0 {
		item.Issued = &CSLDate{DateParts: [][]int{{s.PublicationYear}}}
	}
	return item
}

// parseAuthorName splits a display name into CSL family/given parts.
// PubMed names come as "ForeName LastName" or "LastName Initials"; a short
// all-caps last token is taken as initials. Single-token names use the
// literal field.
func parseAuthorName(name string) CSLName {
	name = strings.TrimSpace(name)
	if name == "" {
		return CSLName{}
	}
	idx := strings.LastIndex(name, " ")
	if idx < 0 {
		return CSLName{Literal: name}
	}
	first, last := name[:idx], name[idx+1:]
	if isInitials(last) {
		return CSLName{Family: first, Given: last}
	}
	return CSLName{Given: first, Family: last}
}

func isInitials(s string) bool {
	if s == "" || len(s) > 3 {
		return false
	}
	for _, r := range s {
		if !unicode.IsUpper(r) {
			return false
		}
	}
	return true
}
