package registry

import (
	"context"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/parts-cli/internal/model"
	"github.com/sells-group/parts-cli/pkg/notion"
)

type fieldsFile struct {
	Fields []model.FieldMapping `yaml:"fields"`
}

// LoadFieldsFromFile reads a YAML document with a top-level "fields" list
// and returns an indexed FieldRegistry.
func LoadFieldsFromFile(path string) (*model.FieldRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "registry: read fields file")
	}

	var doc fieldsFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrap(err, "registry: parse fields file")
	}

	for i := range doc.Fields {
		doc.Fields[i].Key = strings.TrimSpace(doc.Fields[i].Key)
	}
	if err := validateFields(doc.Fields); err != nil {
		return nil, eris.Wrapf(err, "registry: fields file %s", path)
	}

	return model.NewFieldRegistry(doc.Fields), nil
}

// Source selects where the field schema comes from.
type Source struct {
	NotionClient notion.Client
	NotionDB     string
	File         string
}

// Load resolves the field registry: Notion when a database is configured,
// then the YAML file, then the built-in defaults.
func Load(ctx context.Context, src Source) (*model.FieldRegistry, error) {
	switch {
	case src.NotionDB != "" && src.NotionClient != nil:
		reg, err := LoadFieldRegistry(ctx, src.NotionClient, src.NotionDB)
		if err != nil {
			return nil, err
		}
		zap.L().Info("registry: loaded fields from notion", zap.Int("fields", reg.Len()))
		return reg, nil
	case src.File != "":
		reg, err := LoadFieldsFromFile(src.File)
		if err != nil {
			return nil, err
		}
		zap.L().Info("registry: loaded fields from file",
			zap.String("path", src.File),
			zap.Int("fields", reg.Len()),
		)
		return reg, nil
	default:
		return model.NewFieldRegistry(model.DefaultFields()), nil
	}
}

func validateFields(fields []model.FieldMapping) error {
	if len(fields) == 0 {
		return eris.New("no fields defined")
	}
	seen := make(map[string]bool, len(fields))
	for i, f := range fields {
		if f.Key == "" {
			return eris.Errorf("field %d has an empty key", i)
		}
		if seen[f.Key] {
			return eris.Errorf("duplicate field key %q", f.Key)
		}
		seen[f.Key] = true
	}
	return nil
}
