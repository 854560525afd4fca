package notion

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
)

// FindPageByTitle looks up a page in the database whose title property
// equals title. Returns nil if no page matches.
func FindPageByTitle(ctx context.Context, c Client, dbID, titleProp, title string) (*notionapi.Page, error) {
	req := &notionapi.DatabaseQueryRequest{
		Filter: notionapi.PropertyFilter{
			Property: titleProp,
			Title: &notionapi.TextFilterCondition{
				Equals: title,
			},
		},
		PageSize: 1,
	}

	resp, err := c.QueryDatabase(ctx, dbID, req)
	if err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("notion: find page %q", title))
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}
	return &resp.Results[0], nil
}
