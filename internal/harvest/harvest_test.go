package harvest

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/thermobook/internal/model"
	"github.com/ppiankov/thermobook/internal/pipeline"
)

const wikiList = `<html><body><div id="content">
<div class="mw-heading mw-heading2"><h2 id="A">A</h2></div>
<ul>
<li><a href="/wiki/Acetone" title="Acetone">Acetone</a></li>
<li><a href="/wiki/Argon" title="Argon">Argon</a></li>
<li><a href="/w/index.php?title=Unobtainium&amp;action=edit" title="Unobtainium (page does not exist)">Unobtainium</a></li>
</ul>
<h3>Metals</h3>
<ul>
<li><a href="/wiki/Iron" title="Iron">Iron</a></li>
<li><a href="/wiki/Copper" title="Copper">Copper</a></li>
</ul>
<h2>See also</h2>
<ul><li><a href="/wiki/List_of_elements" title="List of elements">Elements</a></li></ul>
</div></body></html>`

func article(cas string) string {
	if cas == "" {
		return `<html><body><table class="infobox"><tr><td>No identifiers</td></tr></table></body></html>`
	}
	return `<html><body><table class="infobox"><tr><th>CAS Number</th><td>
<span title="commonchemistry.cas.org"><a href="https://commonchemistry.cas.org/detail?cas_rn=` + cas + `">` + cas + `</a></span>
</td></tr></table></body></html>`
}

func newWiki(t *testing.T) *httptest.Server {
	t.Helper()
	pages := map[string]string{
		"/wiki/List_of_compounds": wikiList,
		"/wiki/Acetone":           article("67-64-1"),
		"/wiki/Argon":             article("7440-37-1"),
		"/wiki/Iron":              article(""),
		"/wiki/List_of_elements":  article("0-00-0"),
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(page))
	}))
	t.Cleanup(server.Close)
	return server
}

func testHarvester() *Harvester {
	f := pipeline.NewFetcher(model.HTTPConfig{Timeout: 5 * time.Second, UserAgent: "test-agent"})
	return NewHarvester(f.Fetch, "https://webbook.nist.gov", 2, nil)
}

func TestWikipedia(t *testing.T) {
	server := newWiki(t)

	links, err := testHarvester().Wikipedia(context.Background(), server.URL+"/wiki/List_of_compounds")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"https://webbook.nist.gov/cgi/cbook.cgi?ID=C67641&Units=SI",
		"https://webbook.nist.gov/cgi/cbook.cgi?ID=C7440371&Units=SI",
	}, links)
}

func TestListArticles_SectionRules(t *testing.T) {
	server := newWiki(t)
	h := testHarvester()

	doc, base, err := h.document(context.Background(), server.URL+"/wiki/List_of_compounds")
	require.NoError(t, err)

	articles := listArticles(doc, base)
	assert.Equal(t, []string{
		server.URL + "/wiki/Acetone",
		server.URL + "/wiki/Argon",
		server.URL + "/wiki/Iron",
	}, articles, "h3 contributes its first item only; See also and missing pages are skipped")
}

func TestNameTable(t *testing.T) {
	page := `<html><body><table><tbody>
<tr><th>S.No</th><th>Chemical Compound</th><th>Formula</th></tr>
<tr><td>1</td><td><h5>Acetic acid</h5></td><td>CH3COOH</td></tr>
<tr><td>2</td><td><h5> Sodium  chloride </h5></td><td>NaCl</td></tr>
<tr><td>3</td><td>no heading</td><td>X</td></tr>
<tr><td>4</td><td><h5>Acetic acid</h5></td><td>CH3COOH</td></tr>
</tbody></table></body></html>`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(page))
	}))
	defer server.Close()

	links, err := testHarvester().NameTable(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://webbook.nist.gov/cgi/cbook.cgi?Name=Acetic+acid&Units=SI",
		"https://webbook.nist.gov/cgi/cbook.cgi?Name=Sodium+chloride&Units=SI",
	}, links)
}

func TestWikipedia_ListFetchFails(t *testing.T) {
	server := newWiki(t)
	_, err := testHarvester().Wikipedia(context.Background(), server.URL+"/wiki/Missing")
	assert.Error(t, err)
}

func TestWrite(t *testing.T) {
	links := []string{"https://webbook.nist.gov/cgi/cbook.cgi?ID=C67641&Units=SI"}

	var text bytes.Buffer
	require.NoError(t, Write(&text, links, FormatText))
	assert.Equal(t, links[0]+"\n", text.String())

	var js bytes.Buffer
	require.NoError(t, Write(&js, links, FormatJSON))
	assert.JSONEq(t, `[{"link":"https://webbook.nist.gov/cgi/cbook.cgi?ID=C67641&Units=SI"}]`, js.String())

	assert.Error(t, Write(&js, links, "xml"))
}

func TestDedup(t *testing.T) {
	assert.Equal(t, []string{"b", "a"}, Dedup([]string{"b", "a", "b"}))
	assert.Empty(t, Dedup(nil))
}
