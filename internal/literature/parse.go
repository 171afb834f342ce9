// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package literature

import (
	"encoding/xml"
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// efetch XML, reduced to the fields the pipeline reads.
type articleSet struct {
	XMLName  xml.Name        `xml:"PubmedArticleSet"`
	Articles []pubmedArticle `xml:"PubmedArticle"`
}

type pubmedArticle struct {
	Citation struct {
		PMID    string `xml:"PMID"`
		Article struct {
			Journal struct {
				Title   string `xml:"Title"`
				ISOAbbr string `xml:"ISOAbbreviation"`
				PubDate struct {
					Year        string `xml:"Year"`
					MedlineDate string `xml:"MedlineDate"`
				} `xml:"JournalIssue>PubDate"`
			} `xml:"Journal"`
			Title    markup   `xml:"ArticleTitle"`
			Abstract []markup `xml:"Abstract>AbstractText"`
			Authors  []struct {
				LastName       string `xml:"LastName"`
				ForeName       string `xml:"ForeName"`
				Initials       string `xml:"Initials"`
				CollectiveName string `xml:"CollectiveName"`
			} `xml:"AuthorList>Author"`
			PublicationTypes []string `xml:"PublicationTypeList>PublicationType"`
			ArticleDates     []struct {
				Year string `xml:"Year"`
			} `xml:"ArticleDate"`
		} `xml:"Article"`
	} `xml:"MedlineCitation"`
	ArticleIDs []struct {
		Type  string `xml:"IdType,attr"`
		Value string `xml:",chardata"`
	} `xml:"PubmedData>ArticleIdList>ArticleId"`
}

// markup captures an element whose text may contain inline tags such as
// <i> or <sup>.
type markup struct {
	Label string `xml:"Label,attr"`
	Inner string `xml:",innerxml"`
}

var tagPattern = regexp.MustCompile(`<[^>]+>`)

func (m markup) text() string {
	s := tagPattern.ReplaceAllString(m.Inner, "")
	return strings.Join(strings.Fields(html.UnescapeString(s)), " ")
}

// parseArticleSet maps an efetch response into studies. Records without a
// PMID are dropped.
func parseArticleSet(body []byte) ([]types.Study, error) {
	var set articleSet
	if err := xml.Unmarshal(body, &set); err != nil {
		return nil, fmt.Errorf("parsing efetch XML: %w", err)
	}

	studies := make([]types.Study, 0, len(set.Articles))
	for _, a := range set.Articles {
		if s, ok := toStudy(a); ok {
			studies = append(studies, s)
		}
	}
	return studies, nil
}

func toStudy(a pubmedArticle) (types.Study, bool) {
	art := a.Citation.Article
	id := strings.TrimSpace(a.Citation.PMID)
	if id == "" {
		return types.Study{}, false
	}

	var sections []string
	for _, at := range art.Abstract {
		t := at.text()
		if t == "" {
			continue
		}
		if at.Label != "" {
			t = at.Label + ": " + t
		}
		sections = append(sections, t)
	}

	s := types.Study{
		ID:       id,
		Title:    art.Title.text(),
		Abstract: strings.Join(sections, "\n\n"),
		Journal:  strings.TrimSpace(art.Journal.Title),
	}

	s.PublicationYear = parseYear(art.Journal.PubDate.Year)
	if s.PublicationYear == 0 {
		s.PublicationYear = parseYear(art.Journal.PubDate.MedlineDate)
	}
	if s.PublicationYear == 0 && len(art.ArticleDates) > 0 {
		s.PublicationYear = parseYear(art.ArticleDates[0].Year)
	}

	for _, au := range art.Authors {
		switch {
		case au.CollectiveName != "":
			s.Authors = append(s.Authors, au.CollectiveName)
		case au.LastName != "" && au.ForeName != "":
			s.Authors = append(s.Authors, au.ForeName+" "+au.LastName)
		case au.LastName != "":
			s.Authors = append(s.Authors, strings.TrimSpace(au.LastName+" "+au.Initials))
		}
	}

	for _, aid := range a.ArticleIDs {
		if aid.Type == "doi" {
			s.DOI = strings.TrimSpace(aid.Value)
			break
		}
	}

	s.VenueTier = venueTier(art.Journal.ISOAbbr, art.Journal.Title)
	s.StudyTypes = studyTypes(art.PublicationTypes, s.Title, art.Journal.ISOAbbr)
	s.SampleSize = sampleSize(s.Abstract)
	return s, true
}

var yearPattern = regexp.MustCompile(`\b(1[89]\d{2}|2\d{3})\b`)

// parseYear returns the first four-digit year in s, or 0.
func parseYear(s string) int {
	m := yearPattern.FindString(s)
	if m == "" {
		return 0
	}
	y, _ := strconv.Atoi(m)
	return y
}

// orderByIDs returns studies in the order of ids, dropping any study whose
// PMID was not requested.
func orderByIDs(studies []types.Study, ids []string) []types.Study {
	byID := make(map[string]types.Study, len(studies))
	for _, s := range studies {
		if _, dup := byID[s.ID]; !dup {
			byID[s.ID] = s
		}
	}
	out := make([]types.Study, 0, len(studies))
	for _, id := range ids {
		if s, ok := byID[id]; ok {
			out = append(out, s)
			delete(byID, id)
		}
	}
	return out
}

const cochraneISO = "cochrane database syst rev"

// studyTypes maps PubMed publication types to StudyType tags. Titles are
// checked as well because recent records are often not yet indexed.
func studyTypes(pubTypes []string, title, isoAbbr string) []types.StudyType {
	found := make(map[types.StudyType]bool)
	for _, pt := range pubTypes {
		switch strings.ToLower(strings.TrimSpace(pt)) {
		case "randomized controlled trial", "clinical trial, phase iii", "pragmatic clinical trial":
			found[types.StudyRCT] = true
		case "meta-analysis", "network meta-analysis":
			found[types.StudyMetaAnalysis] = true
		case "systematic review":
			found[types.StudySystematicReview] = true
		case "observational study", "comparative study", "multicenter study":
			found[types.StudyObservational] = true
		}
	}

	lt := strings.ToLower(title)
	if strings.Contains(lt, "meta-analysis") || strings.Contains(lt, "meta analysis") {
		found[types.StudyMetaAnalysis] = true
	}
	if strings.Contains(lt, "systematic review") {
		found[types.StudySystematicReview] = true
	}
	if (strings.Contains(lt, "randomized") || strings.Contains(lt, "randomised")) && strings.Contains(lt, "trial") {
		found[types.StudyRCT] = true
	}
	if strings.ToLower(strings.TrimSpace(isoAbbr)) == cochraneISO {
		found[types.StudyCochraneReview] = true
	}

	var out []types.StudyType
	for _, st := range types.AllStudyTypes() {
		if found[st] {
			out = append(out, st)
		}
	}
	if len(out) == 0 {
		out = []types.StudyType{types.StudyOther}
	}
	return out
}

var samplePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bn\s*=\s*(\d{1,3}(?:,\d{3})+|\d+)`),
	regexp.MustCompile(`(?i)\b(\d{1,3}(?:,\d{3})+|\d+)\s+(?:healthy\s+|adult\s+|older\s+)?(?:participants|patients|subjects|adults|women|men|children|volunteers|individuals|infants)\b`),
}

// sampleSize returns the largest participant count stated in the abstract,
// or nil when none is found.
func sampleSize(abstract string) *int {
	best := 0
	for _, re := range samplePatterns {
		for _, m := range re.FindAllStringSubmatch(abstract, -1) {
			n, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
			if err != nil || n <= 0 || n > 10_000_000 {
				continue
			}
			best = max(best, n)
		}
	}
	if best == 0 {
		return nil
	}
	return &best
}

// venueTiers ranks journals by ISO abbreviation, lowercased.
var venueTiers = map[string]types.VenueTier{
	"n engl j med":               types.VenueTop,
	"lancet":                     types.VenueTop,
	"jama":                       types.VenueTop,
	"bmj":                        types.VenueTop,
	"nature":                     types.VenueTop,
	"science":                    types.VenueTop,
	"nat med":                    types.VenueTop,
	"cell":                       types.VenueTop,
	"ann intern med":             types.VenueTop,
	cochraneISO:                  types.VenueTop,
	"am j clin nutr":             types.VenueHigh,
	"j nutr":                     types.VenueHigh,
	"br j nutr":                  types.VenueHigh,
	"eur j clin nutr":            types.VenueHigh,
	"clin nutr":                  types.VenueHigh,
	"jama intern med":            types.VenueHigh,
	"jama netw open":             types.VenueHigh,
	"plos med":                   types.VenueHigh,
	"circulation":                types.VenueHigh,
	"diabetes care":              types.VenueHigh,
	"sleep":                      types.VenueHigh,
	"j clin endocrinol metab":    types.VenueHigh,
	"gastroenterology":           types.VenueHigh,
	"am j psychiatry":            types.VenueHigh,
	"neurology":                  types.VenueHigh,
	"eur heart j":                types.VenueHigh,
	"j am coll cardiol":          types.VenueHigh,
	"br j sports med":            types.VenueHigh,
	"med sci sports exerc":       types.VenueHigh,
	"j int soc sports nutr":      types.VenueHigh,
	"lancet diabetes endocrinol": types.VenueHigh,
}

// venueTier ranks a journal. Listed journals get their tier, any other
// named journal is standard, and a record without a journal is unranked.
func venueTier(isoAbbr, title string) types.VenueTier {
	for _, name := range []string{isoAbbr, title} {
		key := strings.ToLower(strings.TrimSpace(strings.TrimSuffix(name, ".")))
		if tier, ok := venueTiers[key]; ok {
			return tier
		}
	}
	if strings.TrimSpace(isoAbbr) != "" || strings.TrimSpace(title) != "" {
		return types.VenueStandard
	}
	return types.VenueUnranked
}
