package salesforce

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/parts-cli/internal/model"
)

// PublishResult reports what PublishCatalog did.
type PublishResult struct {
	PartID  string
	Created bool
	Fields  int
}

// CatalogFields maps catalog attributes onto Part__c fields through the
// registry. Attributes without an sf_field and agreed nulls are skipped, so
// publishing never blanks a field.
func CatalogFields(reg *model.FieldRegistry, cat *model.Catalog) map[string]any {
	fields := make(map[string]any)
	for key, attr := range cat.PrimaryAttributes {
		m := reg.ByKey(key)
		if m == nil || m.SFField == "" || attr.Value == nil {
			continue
		}
		fields[m.SFField] = sfValue(m.DataType, attr.Value)
	}
	return fields
}

// PublishCatalog writes a validated catalog to the Part__c record with the
// same part number, creating one when none exists.
func PublishCatalog(ctx context.Context, c Client, reg *model.FieldRegistry, cat *model.Catalog) (*PublishResult, error) {
	if cat == nil || cat.MPN == "" {
		return nil, eris.New("sf: catalog with mpn is required")
	}

	fields := CatalogFields(reg, cat)
	if len(fields) == 0 {
		return nil, eris.Errorf("sf: catalog %s has no publishable fields", cat.CatalogID)
	}

	existing, err := FindPartByNumber(ctx, c, cat.MPN)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		delete(fields, "Part_Number__c")
		n := len(fields)
		if err := c.UpdateOne(ctx, PartObject, existing.ID, fields); err != nil {
			return nil, eris.Wrapf(err, "sf: publish catalog %s", cat.CatalogID)
		}
		zap.L().Info("sf: updated part from catalog",
			zap.String("part_id", existing.ID),
			zap.String("catalog_id", cat.CatalogID),
			zap.Int("fields", n),
		)
		return &PublishResult{PartID: existing.ID, Fields: n}, nil
	}

	fields["Part_Number__c"] = cat.MPN
	if _, ok := fields["Name"]; !ok {
		fields["Name"] = cat.MPN
	}
	id, err := c.InsertOne(ctx, PartObject, fields)
	if err != nil {
		return nil, eris.Wrapf(err, "sf: publish catalog %s", cat.CatalogID)
	}
	zap.L().Info("sf: created part from catalog",
		zap.String("part_id", id),
		zap.String("catalog_id", cat.CatalogID),
	)
	return &PublishResult{PartID: id, Created: true, Fields: len(fields)}, nil
}

// CheckFieldMap verifies that every sf_field in the registry exists on
// Part__c and is writable.
func CheckFieldMap(ctx context.Context, c Client, reg *model.FieldRegistry) error {
	desc, err := c.DescribeSObject(ctx, PartObject)
	if err != nil {
		return err
	}

	writable := make(map[string]bool, len(desc.Fields))
	for _, f := range desc.Fields {
		writable[f.Name] = f.Updateable
	}

	var problems []string
	for _, f := range reg.Fields {
		if f.SFField == "" {
			continue
		}
		ok, found := writable[f.SFField]
		switch {
		case !found:
			problems = append(problems, fmt.Sprintf("%s (missing)", f.SFField))
		case !ok:
			problems = append(problems, fmt.Sprintf("%s (read-only)", f.SFField))
		}
	}
	if len(problems) > 0 {
		slices.Sort(problems)
		return eris.Errorf("sf: field map does not match %s: %s", PartObject, strings.Join(problems, ", "))
	}
	return nil
}

// sfValue converts an extracted value to what Salesforce expects for the
// field's data type. Lists become semicolon-separated text.
func sfValue(dataType string, v any) any {
	switch val := v.(type) {
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, fmt.Sprint(item))
		}
		return strings.Join(parts, "; ")
	case json.Number:
		if dataType == "currency" || dataType == "number" {
			if f, err := val.Float64(); err == nil {
				return f
			}
		}
		return val.String()
	case string:
		if dataType == "currency" || dataType == "number" {
			cleaned := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(val), "$"))
			if f, err := strconv.ParseFloat(cleaned, 64); err == nil {
				return f
			}
		}
		return val
	case map[string]any:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	default:
		return val
	}
}
