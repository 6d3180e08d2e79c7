package catalog

import (
	"context"
	"strings"

	"github.com/hugr-lab/sdmx-go/client"
)

// Search returns a view of the dataflows whose id or name contains every
// whitespace separated token of text, ignoring case.
//
// Only the listed ids and names are scanned; no structure is fetched. The
// view resolves entries through c, so a dataset fetched through either
// catalog is shared by both.
func (c *DataflowCatalog) Search(text string) *DataflowCatalog {
	tokens := strings.Fields(strings.ToLower(text))

	var matched []client.Dataflow
	for _, f := range c.flows {
		if matchAll(tokens, strings.ToLower(f.ID), strings.ToLower(f.Name)) {
			matched = append(matched, f)
		}
	}

	view := newDataflowCatalog(c.session, matched, c.opts)
	view.logger = c.logger.With("search", text)
	view.entries = NewLazyCache(func(ctx context.Context, id string) (*DatasetEntry, error) {
		return c.entries.Get(ctx, id)
	})
	view.register(c)

	view.logger.Debug("Dataflows searched", "matched", len(matched))
	return view
}

func matchAll(tokens []string, fields ...string) bool {
	for _, tok := range tokens {
		found := false
		for _, f := range fields {
			if strings.Contains(f, tok) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
