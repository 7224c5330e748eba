package extract

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ppiankov/thermobook/internal/model"
)

// Link texts of the "Other data available" list
const (
	linkGasPhase       = "Gas phase thermo"
	linkCondensedPhase = "Condensed phase thermo"
	linkPhaseChange    = "Phase change"
)

// Links holds the absolute URLs of the phase pages a page links to.
// Empty strings mark absent sections.
type Links struct {
	GasPhase       string
	CondensedPhase string
	PhaseChange    string
}

// ParseIdentity reads the substance identity from a root page.
// Returns nil without error when the page has no substance name, which is how
// the site reports a substance without data.
func ParseIdentity(p *Page) (*model.Identity, error) {
	name := strings.TrimSpace(ownText(p.doc.Find("h1#Top").First()))
	if name == "" {
		return nil, nil
	}

	identity := &model.Identity{Name: name}

	casItem := p.listItem("CAS")
	if casItem == nil {
		return nil, &ParseError{Input: name, Reason: "no CAS registry number"}
	}
	casText := strings.ReplaceAll(ownText(casItem), "-", "")
	cas, err := strconv.ParseInt(casText, 10, 64)
	if err != nil {
		return nil, &ParseError{Input: ownText(casItem), Reason: "bad CAS registry number"}
	}
	identity.CAS = cas

	if item := p.listItem("Formula"); item != nil {
		identity.Formula = labelledValue(item)
	}

	if item := p.listItem("Molecular"); item != nil {
		mw, err := ParseScalar(labelledValue(item))
		if err != nil {
			return nil, err
		}
		identity.MolecularWeight = mw
	}

	inchi := p.doc.Find("main span.inchi-text")
	if inchi.Length() > 0 {
		identity.InChI = cellText(inchi.Eq(0))
	}
	if inchi.Length() > 1 {
		identity.InChIKey = cellText(inchi.Eq(1))
	}

	if item := p.listItem("Chemical structure"); item != nil {
		if src, ok := item.Find("img").First().Attr("src"); ok {
			identity.Image = p.resolve(src)
		}
	}

	return identity, nil
}

// ParseLinks finds the phase page links of a page
func ParseLinks(p *Page) Links {
	return Links{
		GasPhase:       p.sectionLink(linkGasPhase),
		CondensedPhase: p.sectionLink(linkCondensedPhase),
		PhaseChange:    p.sectionLink(linkPhaseChange),
	}
}

// listItem returns the first list item whose <strong> label contains label
func (p *Page) listItem(label string) *goquery.Selection {
	item := p.doc.Find("main li").FilterFunction(func(_ int, li *goquery.Selection) bool {
		return strings.Contains(li.ChildrenFiltered("strong").Text(), label)
	}).First()
	if item.Length() == 0 {
		return nil
	}
	return item
}

// sectionLink returns the href of the first list item link whose text contains text
func (p *Page) sectionLink(text string) string {
	link := p.doc.Find("main li > a").FilterFunction(func(_ int, a *goquery.Selection) bool {
		return strings.Contains(a.Text(), text)
	}).First()
	href, ok := link.Attr("href")
	if !ok {
		return ""
	}
	return p.resolve(href)
}

// labelledValue returns "CH4" for "<strong>Formula</strong>: CH<sub>4</sub>"
func labelledValue(item *goquery.Selection) string {
	full := cellText(item)
	label := cellText(item.ChildrenFiltered("strong").First())
	value := strings.TrimPrefix(full, label)
	value = strings.TrimSpace(value)
	value = strings.TrimPrefix(value, ":")
	return strings.TrimSpace(value)
}
