package model

// FieldMapping describes one catalog field: the key the extraction prompt
// asks for and, optionally, the Salesforce Part__c field it publishes to.
type FieldMapping struct {
	Key         string `json:"key" yaml:"key"`
	Label       string `json:"label,omitempty" yaml:"label,omitempty"`
	SFField     string `json:"sf_field,omitempty" yaml:"sf_field,omitempty"`
	DataType    string `json:"data_type,omitempty" yaml:"data_type,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// FieldRegistry is an indexed, ordered collection of field mappings.
type FieldRegistry struct {
	Fields   []FieldMapping
	byKey    map[string]*FieldMapping
	bySFName map[string]*FieldMapping
}

// NewFieldRegistry creates a FieldRegistry with indexed lookups. Field order
// is preserved; it is the order fields are listed in the extraction prompt.
func NewFieldRegistry(fields []FieldMapping) *FieldRegistry {
	r := &FieldRegistry{
		Fields:   fields,
		byKey:    make(map[string]*FieldMapping, len(fields)),
		bySFName: make(map[string]*FieldMapping, len(fields)),
	}
	for i := range r.Fields {
		f := &r.Fields[i]
		r.byKey[f.Key] = f
		if f.SFField != "" {
			r.bySFName[f.SFField] = f
		}
	}
	return r
}

// ByKey returns the field mapping for the given key, or nil if not found.
func (r *FieldRegistry) ByKey(key string) *FieldMapping {
	return r.byKey[key]
}

// BySFName returns the field mapping for the given Salesforce field name, or nil if not found.
func (r *FieldRegistry) BySFName(name string) *FieldMapping {
	return r.bySFName[name]
}

// Keys returns the field keys in registry order.
func (r *FieldRegistry) Keys() []string {
	keys := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		keys[i] = f.Key
	}
	return keys
}

// Len returns the number of registered fields.
func (r *FieldRegistry) Len() int {
	return len(r.Fields)
}

// DefaultFields is the appliance-part schema used when no fields file is
// configured.
func DefaultFields() []FieldMapping {
	return []FieldMapping{
		{Key: "mpn", Label: "Manufacturer part number", SFField: "Part_Number__c", DataType: "string"},
		{Key: "manufacturer", Label: "Manufacturer", SFField: "Manufacturer__c", DataType: "string"},
		{Key: "part_title", Label: "Title", SFField: "Name", DataType: "string"},
		{Key: "long_description", Label: "Long description", SFField: "Description__c", DataType: "text"},
		{Key: "part_type", Label: "Part type", SFField: "Part_Type__c", DataType: "string"},
		{Key: "primary_department", Label: "Department", SFField: "Department__c", DataType: "string"},
		{Key: "primary_category", Label: "Category", SFField: "Category__c", DataType: "string"},
		{Key: "primary_image_url", Label: "Primary image", SFField: "Image_URL__c", DataType: "url"},
		{Key: "msrp", Label: "List price", SFField: "MSRP__c", DataType: "currency"},
		{Key: "current_selling_price", Label: "Selling price", SFField: "Price__c", DataType: "currency"},
		{Key: "weight_lbs", Label: "Weight (lbs)", SFField: "Weight_Lbs__c", DataType: "number"},
		{Key: "upc_ean_gtin", Label: "UPC/EAN/GTIN", SFField: "UPC__c", DataType: "string"},
		{Key: "compatible_models", Label: "Compatible models", SFField: "Model_Numbers__c", DataType: "list"},
		{Key: "cross_reference_parts", Label: "Cross-reference parts", SFField: "Cross_Reference_Parts__c", DataType: "list"},
		{Key: "related_symptoms", Label: "Related symptoms", SFField: "Related_Symptoms__c", DataType: "list"},
	}
}
