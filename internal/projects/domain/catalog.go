package domain

import "errors"

// StepKey identifies a logical progress step kind.
type StepKey string

const (
	// StepAttendance is the on-site attendance appointment.
	StepAttendance StepKey = "attendance"
	// StepSurvey is the on-site survey visit.
	StepSurvey StepKey = "survey"
	// StepEstimate is the estimate issuance step.
	StepEstimate StepKey = "estimate"
	// StepConstructionStart is the construction start date.
	StepConstructionStart StepKey = "construction_start"
	// StepCompletion is the construction completion date.
	StepCompletion StepKey = "completion"
	// StepContract is the contract signing step.
	StepContract StepKey = "contract"
	// StepInvoice is the invoice issuance step.
	StepInvoice StepKey = "invoice"
	// StepPermitApplication is the permit application step.
	StepPermitApplication StepKey = "permit_application"
	// StepMaterialOrder is the material ordering step.
	StepMaterialOrder StepKey = "material_order"
	// StepInspection is the final inspection step.
	StepInspection StepKey = "inspection"
)

// ErrUnknownStepKey indicates a step key that is not in the catalog.
var ErrUnknownStepKey = errors.New("unknown step key")

// FieldType describes the value shape a step template expects.
type FieldType string

const (
	// FieldTypeDate steps carry scheduled/actual dates.
	FieldTypeDate FieldType = "date"
	// FieldTypeCheckbox steps carry only a completion flag.
	FieldTypeCheckbox FieldType = "checkbox"
	// FieldTypeSelect steps carry a choice from field options.
	FieldTypeSelect FieldType = "select"
	// FieldTypeText steps carry free text.
	FieldTypeText FieldType = "text"
)

// TemplateSpec is one catalog entry: the static definition a step template
// is seeded from.
type TemplateSpec struct {
	Key       StepKey
	Name      string
	Icon      string
	Order     int
	IsDefault bool
	FieldType FieldType
}

// catalog is the fixed set of known step kinds. Display names are unique;
// the registry upserts templates keyed by name.
var catalog = []TemplateSpec{
	{Key: StepAttendance, Name: "Attendance", Icon: "fas fa-user-check", Order: 1, IsDefault: false, FieldType: FieldTypeDate},
	{Key: StepSurvey, Name: "Site survey", Icon: "fas fa-clipboard-list", Order: 2, IsDefault: false, FieldType: FieldTypeDate},
	{Key: StepEstimate, Name: "Estimate issued", Icon: "fas fa-file-invoice", Order: 3, IsDefault: true, FieldType: FieldTypeDate},
	{Key: StepConstructionStart, Name: "Construction start", Icon: "fas fa-hard-hat", Order: 4, IsDefault: true, FieldType: FieldTypeDate},
	{Key: StepCompletion, Name: "Completion", Icon: "fas fa-check-circle", Order: 5, IsDefault: true, FieldType: FieldTypeDate},
	{Key: StepContract, Name: "Contract", Icon: "fas fa-handshake", Order: 6, IsDefault: false, FieldType: FieldTypeDate},
	{Key: StepInvoice, Name: "Invoice issued", Icon: "fas fa-file-invoice-dollar", Order: 7, IsDefault: false, FieldType: FieldTypeDate},
	{Key: StepPermitApplication, Name: "Permit application", Icon: "fas fa-file-signature", Order: 8, IsDefault: false, FieldType: FieldTypeDate},
	{Key: StepMaterialOrder, Name: "Material order", Icon: "fas fa-boxes", Order: 9, IsDefault: false, FieldType: FieldTypeDate},
	{Key: StepInspection, Name: "Inspection", Icon: "fas fa-clipboard-check", Order: 10, IsDefault: false, FieldType: FieldTypeDate},
}

// Catalog returns the fixed step template catalog in display order.
func Catalog() []TemplateSpec {
	specs := make([]TemplateSpec, len(catalog))
	copy(specs, catalog)
	return specs
}

// SpecForKey returns the catalog entry for a logical step key.
func SpecForKey(key StepKey) (TemplateSpec, bool) {
	for _, spec := range catalog {
		if spec.Key == key {
			return spec, true
		}
	}
	return TemplateSpec{}, false
}

// KeyForName maps a template display name back to its logical step key.
func KeyForName(name string) (StepKey, bool) {
	for _, spec := range catalog {
		if spec.Name == name {
			return spec.Key, true
		}
	}
	return "", false
}

// DefaultBaseline returns the step keys assumed active for a project that
// has never configured an explicit step list.
func DefaultBaseline() []StepKey {
	return []StepKey{StepAttendance, StepSurvey, StepEstimate, StepConstructionStart, StepCompletion}
}
