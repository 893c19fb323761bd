// Package registry loads the catalog field schema from Notion, a YAML file,
// or the built-in appliance-part defaults.
package registry

import (
	"context"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/parts-cli/internal/model"
	"github.com/sells-group/parts-cli/pkg/notion"
)

// LoadFieldRegistry queries a Notion field database for all Active field
// mappings. Pages without a Key are skipped with a warning.
func LoadFieldRegistry(ctx context.Context, client notion.Client, dbID string) (*model.FieldRegistry, error) {
	pages, err := notion.QueryByStatus(ctx, client, dbID, "Active")
	if err != nil {
		return nil, eris.Wrap(err, "registry: load field registry")
	}

	var fields []model.FieldMapping
	for _, p := range pages {
		f, err := parseFieldPage(p)
		if err != nil {
			zap.L().Warn("registry: skipping malformed field page",
				zap.String("page_id", string(p.ID)),
				zap.Error(err),
			)
			continue
		}
		fields = append(fields, f)
	}

	if err := validateFields(fields); err != nil {
		return nil, eris.Wrap(err, "registry: notion field registry")
	}
	return model.NewFieldRegistry(fields), nil
}

func parseFieldPage(p notionapi.Page) (model.FieldMapping, error) {
	var f model.FieldMapping

	if tp, ok := p.Properties["Key"].(*notionapi.TitleProperty); ok {
		f.Key = notion.PlainText(tp.Title)
	}
	if rtp, ok := p.Properties["Label"].(*notionapi.RichTextProperty); ok {
		f.Label = notion.PlainText(rtp.RichText)
	}
	if rtp, ok := p.Properties["SFField"].(*notionapi.RichTextProperty); ok {
		f.SFField = notion.PlainText(rtp.RichText)
	}
	if sp, ok := p.Properties["DataType"].(*notionapi.SelectProperty); ok {
		f.DataType = sp.Select.Name
	}
	if rtp, ok := p.Properties["Description"].(*notionapi.RichTextProperty); ok {
		f.Description = notion.PlainText(rtp.RichText)
	}

	if f.Key == "" {
		return f, eris.New("missing Key property")
	}
	return f, nil
}
