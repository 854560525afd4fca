package crm

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/logiclamp/leadscout/internal/model"
	"github.com/logiclamp/leadscout/pkg/notion"
)

// notionTitleProp is the title property name in the lead database.
const notionTitleProp = "Name"

// NotionPusher creates one page per lead in a tracking database.
type NotionPusher struct {
	client notion.Client
	dbID   string
}

// NewNotion builds a pusher for the given database.
func NewNotion(client notion.Client, dbID string) *NotionPusher {
	return &NotionPusher{client: client, dbID: dbID}
}

func (p *NotionPusher) Name() string { return "notion" }

// Push creates a page per lead, refreshing the score and status when a
// page with the same name already exists. Per-lead failures are counted
// and skipped; only cancellation stops the batch.
func (p *NotionPusher) Push(ctx context.Context, leads []model.Lead) (PushResult, error) {
	var res PushResult
	for i := range leads {
		if err := ctx.Err(); err != nil {
			res.Skipped += len(leads) - i
			return res, eris.Wrap(err, "crm: notion push cancelled")
		}
		lead := &leads[i]

		existing, err := notion.FindPageByTitle(ctx, p.client, p.dbID, notionTitleProp, lead.Name)
		if err != nil {
			res.Failed++
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", lead.Name, err))
			continue
		}

		if existing != nil {
			req := &notionapi.PageUpdateRequest{
				Properties: notionapi.Properties{
					"Score":  notionapi.NumberProperty{Number: float64(lead.EffectiveScore())},
					"Status": notionapi.SelectProperty{Select: notionapi.Option{Name: "Updated"}},
				},
			}
			if _, err := p.client.UpdatePage(ctx, existing.ID.String(), req); err != nil {
				res.Failed++
				res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", lead.Name, err))
				continue
			}
			res.Updated++
			continue
		}

		req := &notionapi.PageCreateRequest{
			Parent: notionapi.Parent{
				Type:       notionapi.ParentTypeDatabaseID,
				DatabaseID: notionapi.DatabaseID(p.dbID),
			},
			Properties: leadProperties(lead),
		}
		if _, err := p.client.CreatePage(ctx, req); err != nil {
			res.Failed++
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", lead.Name, err))
			continue
		}
		res.Created++
	}

	zap.L().Info("crm: notion push complete",
		zap.Int("created", res.Created),
		zap.Int("updated", res.Updated),
		zap.Int("failed", res.Failed),
	)
	return res, nil
}

// leadProperties builds the typed page properties for a new lead page.
// Optional fields are left off entirely rather than set empty, since
// Notion rejects empty select and URL values.
func leadProperties(lead *model.Lead) notionapi.Properties {
	props := notionapi.Properties{
		notionTitleProp: notionapi.TitleProperty{
			Type: notionapi.PropertyTypeTitle,
			Title: []notionapi.RichText{
				{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: lead.Name}},
			},
		},
		"Score":  notionapi.NumberProperty{Number: float64(lead.EffectiveScore())},
		"Status": notionapi.SelectProperty{Select: notionapi.Option{Name: "New"}},
	}

	if lead.City != "" || lead.State != "" {
		location := lead.City
		if lead.City != "" && lead.State != "" {
			location = lead.City + ", " + lead.State
		} else if lead.State != "" {
			location = lead.State
		}
		props["Location"] = notionapi.RichTextProperty{
			Type: notionapi.PropertyTypeRichText,
			RichText: []notionapi.RichText{
				{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: location}},
			},
		}
	}
	if lead.Category != "" {
		props["Category"] = notionapi.SelectProperty{Select: notionapi.Option{Name: lead.Category}}
	}
	if lead.Website != "" {
		props["Website"] = notionapi.URLProperty{
			Type: notionapi.PropertyTypeURL,
			URL:  lead.Website,
		}
	}
	if lead.Phone != "" {
		props["Phone"] = notionapi.PhoneNumberProperty{
			Type:        notionapi.PropertyTypePhoneNumber,
			PhoneNumber: lead.Phone,
		}
	}
	if lead.Email != "" {
		props["Email"] = notionapi.EmailProperty{
			Type:  notionapi.PropertyTypeEmail,
			Email: lead.Email,
		}
	}
	return props
}
