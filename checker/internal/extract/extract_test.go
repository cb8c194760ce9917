package extract

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/hazyhaar/steamcheck/checker/internal/selectors"
)

func parse(t *testing.T, src string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc
}

const bundlePage = `<html><body>
<ul class="games">
  <li class="game"><span class="name">Half-Life 2</span></li>
  <li class="game"><span class="name">  Portal!  </span></li>
  <li class="game"><span class="other">No title here</span></li>
  <li class="game"><span class="name">   </span></li>
</ul>
<div class="choices">
  <div class="choice"><img alt="DOOM Eternal" src="x.png"></div>
  <div class="choice"><img src="y.png"></div>
</div>
</body></html>`

func TestExtract_TextAndAttribute(t *testing.T) {
	doc := parse(t, bundlePage)
	profiles := []selectors.Profile{
		{Wrapper: "li.game", Title: ".name", ClassType: "Game"},
		{Wrapper: ".choice", Title: "img", TitleAttribute: "alt", ClassType: "Choice"},
	}

	cands := Extract(doc, profiles, nil)
	got := Names(cands)
	want := []string{"halflife 2", "portal", "doom eternal"}
	if len(got) != len(want) {
		t.Fatalf("names: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("name[%d]: got %q, want %q", i, got[i], want[i])
		}
	}

	if cands[0].Raw != "Half-Life 2" {
		t.Errorf("raw: got %q", cands[0].Raw)
	}
	if cands[2].Profile != &profiles[1] {
		t.Error("candidate not tied to its owning profile")
	}
	if cands[0].Wrapper.Length() != 1 || !cands[0].Wrapper.HasClass("game") {
		t.Error("wrapper handle does not point at the wrapper element")
	}
}

func TestExtract_NoWrappers(t *testing.T) {
	doc := parse(t, bundlePage)
	cands := Extract(doc, []selectors.Profile{{Wrapper: "tr", Title: "td"}}, nil)
	if len(cands) != 0 {
		t.Errorf("got %d candidates, want 0", len(cands))
	}
}

func TestExtract_ReplacesEachCall(t *testing.T) {
	doc := parse(t, bundlePage)
	profiles := []selectors.Profile{{Wrapper: "li.game", Title: ".name"}}

	first := Extract(doc, profiles, nil)
	doc.Find("ul.games").AppendHtml(`<li class="game"><span class="name">Portal 2</span></li>`)
	second := Extract(doc, profiles, nil)

	if len(first) != 2 || len(second) != 3 {
		t.Fatalf("lengths: first=%d second=%d", len(first), len(second))
	}
}

func TestXPath(t *testing.T) {
	doc := parse(t, bundlePage)
	third := doc.Find("li.game").Eq(2).Get(0)
	if got, want := XPath(third), "/html[1]/body[1]/ul[1]/li[3]"; got != want {
		t.Errorf("XPath: got %q, want %q", got, want)
	}
	if XPath(nil) != "" {
		t.Error("XPath(nil) should be empty")
	}
}
