package models

// Form field names, shared by the HTML form, the JSON API and the backend request.
const (
	FieldPlantName         = "plant_name"
	FieldPlantType         = "plant_type"
	FieldClimate           = "climate"
	FieldSunlightHours     = "sunlight_hours"
	FieldSoilType          = "soil_type"
	FieldWateringFrequency = "watering_frequency"
	FieldExperienceLevel   = "experience_level"
)

// FormFields lists the form fields in display order.
var FormFields = []string{
	FieldPlantName,
	FieldPlantType,
	FieldClimate,
	FieldSunlightHours,
	FieldSoilType,
	FieldWateringFrequency,
	FieldExperienceLevel,
}

var (
	PlantTypes          = []string{"Vegetable", "Flower", "Indoor", "Medicinal"}
	Climates            = []string{"Tropical", "Temperate", "Arid", "Humid"}
	SoilTypes           = []string{"Loamy", "Sandy", "Clay", "Peaty", "Chalky", "Silty"}
	WateringFrequencies = []string{"Daily", "Every 2-3 days", "Weekly", "Bi-weekly", "Monthly"}
	ExperienceLevels    = []string{"Beginner", "Intermediate", "Advanced"}
)

const (
	MinSunlightHours     = 0
	MaxSunlightHours     = 12
	DefaultSunlightHours = "6"
)

// FormInput is the plant description a user submits to generate a guide.
// Values are kept as entered; SunlightHours is coerced only when the
// backend request is built.
type FormInput struct {
	PlantName         string `json:"plant_name"`
	PlantType         string `json:"plant_type"`
	Climate           string `json:"climate"`
	SunlightHours     string `json:"sunlight_hours"`
	SoilType          string `json:"soil_type"`
	WateringFrequency string `json:"watering_frequency"`
	ExperienceLevel   string `json:"experience_level"`
}

// NewFormInput returns the form as it looks when first shown.
func NewFormInput() FormInput {
	return FormInput{SunlightHours: DefaultSunlightHours}
}

// Get returns the value of a field by name.
func (f FormInput) Get(field string) string {
	switch field {
	case FieldPlantName:
		return f.PlantName
	case FieldPlantType:
		return f.PlantType
	case FieldClimate:
		return f.Climate
	case FieldSunlightHours:
		return f.SunlightHours
	case FieldSoilType:
		return f.SoilType
	case FieldWateringFrequency:
		return f.WateringFrequency
	case FieldExperienceLevel:
		return f.ExperienceLevel
	}
	return ""
}

// Set updates a single field. Unknown fields are ignored and reported false.
func (f *FormInput) Set(field, value string) bool {
	switch field {
	case FieldPlantName:
		f.PlantName = value
	case FieldPlantType:
		f.PlantType = value
	case FieldClimate:
		f.Climate = value
	case FieldSunlightHours:
		f.SunlightHours = value
	case FieldSoilType:
		f.SoilType = value
	case FieldWateringFrequency:
		f.WateringFrequency = value
	case FieldExperienceLevel:
		f.ExperienceLevel = value
	default:
		return false
	}
	return true
}

// MissingFields lists every field whose value is the empty string.
func (f FormInput) MissingFields() []string {
	var missing []string
	for _, field := range FormFields {
		if f.Get(field) == "" {
			missing = append(missing, field)
		}
	}
	return missing
}

// CanSubmit reports whether all seven fields are present.
func (f FormInput) CanSubmit() bool {
	return len(f.MissingFields()) == 0
}

// Options returns the selectable values for an enum field, or nil for free-form fields.
func Options(field string) []string {
	switch field {
	case FieldPlantType:
		return PlantTypes
	case FieldClimate:
		return Climates
	case FieldSoilType:
		return SoilTypes
	case FieldWateringFrequency:
		return WateringFrequencies
	case FieldExperienceLevel:
		return ExperienceLevels
	}
	return nil
}
