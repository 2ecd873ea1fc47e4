package chromedpcapture

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// initialStateMarker precedes the JSON blob some builds of the portal embed
// directly in a script tag instead of a window global.
const initialStateMarker = "window.__INITIAL_STATE__"

// ExtractEmbeddedState pulls JSON state out of script tags in rendered HTML.
// Next.js builds embed it under a __NEXT_DATA__ script; older builds assign
// window.__INITIAL_STATE__ inline. Returns nil when the page embeds nothing
// recognizable.
func ExtractEmbeddedState(htmlContent string) map[string]json.RawMessage {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil
	}

	state := make(map[string]json.RawMessage)

	doc.Find("script").Each(func(i int, s *goquery.Selection) {
		text := s.Text()

		if id, _ := s.Attr("id"); id == "__NEXT_DATA__" {
			raw := strings.TrimSpace(text)
			if json.Valid([]byte(raw)) {
				state["next_data"] = json.RawMessage(raw)
			}
			return
		}

		idx := strings.Index(text, initialStateMarker)
		if idx < 0 {
			return
		}
		rest := text[idx+len(initialStateMarker):]
		eq := strings.Index(rest, "=")
		if eq < 0 {
			return
		}
		raw := strings.TrimSpace(rest[eq+1:])
		raw = strings.TrimSuffix(raw, ";")
		if json.Valid([]byte(raw)) {
			state["initial_state"] = json.RawMessage(raw)
		}
	})

	if len(state) == 0 {
		return nil
	}
	return state
}
