package notion

import (
	"context"
	"strings"
	"time"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
)

// Review board status values.
const (
	ReviewStatusOpen     = "Needs Review"
	ReviewStatusResolved = "Resolved"
)

// ReviewPage is a part awaiting manual review on the Notion board.
type ReviewPage struct {
	MPN           string
	RunID         string
	Reason        string
	Disagreements []string
	Agreement     float64
}

// CreateReviewPage adds a review card to the board database and returns the
// new page ID.
func CreateReviewPage(ctx context.Context, c Client, dbID string, p ReviewPage) (string, error) {
	if p.MPN == "" {
		return "", eris.New("notion: review page mpn is required")
	}

	now := notionapi.Date(time.Now())
	req := &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(dbID),
		},
		Properties: notionapi.Properties{
			"MPN": notionapi.TitleProperty{
				Type:  notionapi.PropertyTypeTitle,
				Title: richText(p.MPN),
			},
			"Run ID": notionapi.RichTextProperty{
				Type:     notionapi.PropertyTypeRichText,
				RichText: richText(p.RunID),
			},
			"Reason": notionapi.RichTextProperty{
				Type:     notionapi.PropertyTypeRichText,
				RichText: richText(p.Reason),
			},
			"Disagreements": notionapi.RichTextProperty{
				Type:     notionapi.PropertyTypeRichText,
				RichText: richText(strings.Join(p.Disagreements, ", ")),
			},
			"Agreement": notionapi.NumberProperty{
				Type:   notionapi.PropertyTypeNumber,
				Number: p.Agreement,
			},
			"Status": notionapi.StatusProperty{
				Type:   notionapi.PropertyTypeStatus,
				Status: notionapi.Status{Name: ReviewStatusOpen},
			},
			"Queued": notionapi.DateProperty{
				Type: notionapi.PropertyTypeDate,
				Date: &notionapi.DateObject{Start: &now},
			},
		},
	}

	page, err := c.CreatePage(ctx, req)
	if err != nil {
		return "", eris.Wrapf(err, "notion: create review page for %s", p.MPN)
	}
	return string(page.ID), nil
}

// ResolveReviewPage marks a review card resolved.
func ResolveReviewPage(ctx context.Context, c Client, pageID string) error {
	_, err := c.UpdatePage(ctx, pageID, &notionapi.PageUpdateRequest{
		Properties: notionapi.Properties{
			"Status": notionapi.StatusProperty{
				Status: notionapi.Status{Name: ReviewStatusResolved},
			},
		},
	})
	if err != nil {
		return eris.Wrapf(err, "notion: resolve review page %s", pageID)
	}
	return nil
}
