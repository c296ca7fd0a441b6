package render

import (
	"html/template"

	"github.com/HammerMeetNail/plantcare/internal/flow"
	"github.com/HammerMeetNail/plantcare/internal/models"
)

// GuideView holds the sections of one guide. A nil pointer or empty slice
// means the section is not rendered.
type GuideView struct {
	Overview    *OverviewView
	Stages      []StageView
	DailyCare   *DailyCareView
	Problems    []ProblemView
	Tips        []string
	VisualGuide *VisualGuideView
}

func Guide(g *models.Guide) (GuideView, bool) {
	if g == nil {
		return GuideView{}, false
	}

	var v GuideView
	if o, ok := Overview(g.Overview); ok {
		v.Overview = &o
	}
	if s, ok := GrowthStages(g.GrowthStages); ok {
		v.Stages = s
	}
	if d, ok := DailyCare(g.DailyCare); ok {
		v.DailyCare = &d
	}
	if p, ok := Problems(g.CommonProblems); ok {
		v.Problems = p
	}
	if t, ok := Tips(g.ExtraTips); ok {
		v.Tips = t
	}
	if vg, ok := VisualGuide(g.VisualGuide); ok {
		v.VisualGuide = &vg
	}
	return v, true
}

type LoadingStep struct {
	Icon      string
	Label     string
	Threshold int
	Active    bool
}

var loadingSteps = []LoadingStep{
	{Icon: "🌱", Label: "Analyzing plant", Threshold: 25},
	{Icon: "☀️", Label: "Checking conditions", Threshold: 50},
	{Icon: "💧", Label: "Creating schedule", Threshold: 75},
	{Icon: "📋", Label: "Finalizing guide", Threshold: 100},
}

// LoadingSteps marks each step active once progress reaches its threshold.
func LoadingSteps(progress int) []LoadingStep {
	steps := make([]LoadingStep, len(loadingSteps))
	for i, s := range loadingSteps {
		s.Active = progress >= s.Threshold
		steps[i] = s
	}
	return steps
}

type FormView struct {
	Values    models.FormInput
	Missing   map[string]bool
	CanSubmit bool

	PlantTypes          []string
	Climates            []string
	SoilTypes           []string
	WateringFrequencies []string
	ExperienceLevels    []string
	MinSunlight         int
	MaxSunlight         int
}

// Form renders the form for input. Missing fields are flagged only when
// flagMissing is set, so a fresh form is not covered in warnings.
func Form(input models.FormInput, flagMissing bool) FormView {
	v := FormView{
		Values:              input,
		Missing:             make(map[string]bool),
		CanSubmit:           input.CanSubmit(),
		PlantTypes:          models.PlantTypes,
		Climates:            models.Climates,
		SoilTypes:           models.SoilTypes,
		WateringFrequencies: models.WateringFrequencies,
		ExperienceLevels:    models.ExperienceLevels,
		MinSunlight:         models.MinSunlightHours,
		MaxSunlight:         models.MaxSunlightHours,
	}
	if flagMissing {
		for _, f := range input.MissingFields() {
			v.Missing[f] = true
		}
	}
	return v
}

// SelectField is the data for one <select> in the form template.
type SelectField struct {
	Name        string
	Placeholder string
	Value       string
	Options     []string
	Missing     bool
}

func selectField(name, placeholder, value string, options []string, missing map[string]bool) SelectField {
	return SelectField{
		Name:        name,
		Placeholder: placeholder,
		Value:       value,
		Options:     options,
		Missing:     missing[name],
	}
}

// FuncMap holds the helpers the page templates call.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"selectField": selectField,
	}
}

type Assets struct {
	CSS        string
	BackdropJS string
	GuideJS    string
}

type PageView struct {
	Title     string
	Phase     flow.Phase
	ShowForm  bool
	Loading   bool
	Progress  int
	Steps     []LoadingStep
	Error     string
	Form      FormView
	Guide     *GuideView
	Backdrop  Backdrop
	Hero      Backdrop
	Assets    Assets
	CSRFToken string
}

const Title = "PlantCare AI Guide"

// Page assembles the whole page for a session snapshot. The form is shown
// when idle and next to the error after a failure; the guide only on success.
func Page(snap flow.Snapshot, form FormView) PageView {
	v := PageView{
		Title:    Title,
		Phase:    snap.State.Phase,
		Progress: snap.Progress,
		Form:     form,
		Backdrop: DefaultBackdrop,
		Hero:     HeroBackdrop,
	}

	switch snap.State.Phase {
	case flow.PhaseSubmitting:
		v.Loading = true
		v.Steps = LoadingSteps(snap.Progress)
	case flow.PhaseSuccess:
		if g, ok := Guide(snap.State.Guide); ok {
			v.Guide = &g
		}
	case flow.PhaseFailure:
		v.ShowForm = true
		v.Error = snap.State.Message
	default:
		v.ShowForm = true
	}
	return v
}
