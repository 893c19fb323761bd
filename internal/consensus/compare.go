package consensus

import "github.com/sells-group/parts-cli/internal/model"

// Compare decides agreement for one field. A nil extraction means the
// provider did not report the field; a field missing on either side never
// agrees. Sources are compared exactly since they come from a closed set.
func Compare(field string, primary, secondary *model.FieldExtraction) model.FieldVerdict {
	v := model.FieldVerdict{FieldName: field}

	if primary != nil {
		v.PrimaryPresent = true
		v.PrimaryValue = primary.Value
		v.PrimarySource = primary.Source
	}
	if secondary != nil {
		v.SecondaryPresent = true
		v.SecondaryValue = secondary.Value
		v.SecondarySource = secondary.Source
	}

	if primary == nil || secondary == nil {
		return v
	}

	if Normalize(primary.Value) == Normalize(secondary.Value) && primary.Source == secondary.Source {
		v.Agreement = true
		v.FinalValue = primary.Value
		v.FinalSource = primary.Source
	}
	return v
}
