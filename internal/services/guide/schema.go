package guide

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/HammerMeetNail/plantcare/internal/models"
)

// generateRequest is the body of POST /generate-plant-guide.
type generateRequest struct {
	PlantName         string `json:"plant_name"`
	PlantType         string `json:"plant_type"`
	Climate           string `json:"climate"`
	SunlightHours     int    `json:"sunlight_hours"`
	SoilType          string `json:"soil_type"`
	WateringFrequency string `json:"watering_frequency"`
	ExperienceLevel   string `json:"experience_level"`
}

func buildRequest(input models.FormInput) (generateRequest, error) {
	if missing := input.MissingFields(); len(missing) > 0 {
		return generateRequest{}, fmt.Errorf("%w: missing %s", ErrInvalidInput, strings.Join(missing, ", "))
	}
	hours, err := CoerceSunlightHours(input.SunlightHours)
	if err != nil {
		return generateRequest{}, err
	}
	return generateRequest{
		PlantName:         input.PlantName,
		PlantType:         input.PlantType,
		Climate:           input.Climate,
		SunlightHours:     hours,
		SoilType:          input.SoilType,
		WateringFrequency: input.WateringFrequency,
		ExperienceLevel:   input.ExperienceLevel,
	}, nil
}

// CoerceSunlightHours reads the leading integer of s, truncating any
// fraction: "6.7" is 6, " 12h" is 12. A value with no leading digits is
// ErrInvalidInput.
func CoerceSunlightHours(s string) (int, error) {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digitsStart := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digitsStart {
		return 0, fmt.Errorf("%w: sunlight_hours %q is not a number", ErrInvalidInput, s)
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, fmt.Errorf("%w: sunlight_hours %q: %v", ErrInvalidInput, s, err)
	}
	return n, nil
}

// Backend response shape. Pointers mark sections whose absence is reported
// as a ShapeError; slices default to empty.

type backendResponse struct {
	PlantCareGuidance *backendGuidance    `json:"plant_care_guidance"`
	VisualGuide       *backendVisualGuide `json:"visual_guide"`
}

type backendGuidance struct {
	PlantOverview  *backendOverview  `json:"plant_overview"`
	GrowthStages   []backendStage    `json:"growth_stages"`
	DailyCare      *backendDailyCare `json:"daily_care"`
	CommonProblems []backendProblem  `json:"common_problems"`
	AdditionalTips []string          `json:"additional_tips"`
}

type backendOverview struct {
	Description     string                     `json:"description"`
	IdealConditions map[string]json.RawMessage `json:"ideal_conditions"`
	Benefits        []string                   `json:"benefits"`
	DifficultyLevel string                     `json:"difficulty_level"`
}

type backendStage struct {
	StageName        string   `json:"stage_name"`
	Duration         string   `json:"duration"`
	CareInstructions string   `json:"care_instructions"`
	KeyIndicators    []string `json:"key_indicators"`
}

type backendDailyCare struct {
	MorningRoutine   []string `json:"morning_routine"`
	AfternoonRoutine []string `json:"afternoon_routine"`
	EveningRoutine   []string `json:"evening_routine"`
	WeeklyTasks      []string `json:"weekly_tasks"`
}

type backendProblem struct {
	Problem    string          `json:"problem"`
	Symptoms   json.RawMessage `json:"symptoms"`
	Solution   string          `json:"solution"`
	Prevention string          `json:"prevention"`
}

type backendVisualGuide struct {
	Status   string `json:"status"`
	FileURL  string `json:"file_url"`
	FileType string `json:"file_type"`
	Message  string `json:"message"`
}

// decodeGuide parses and validates a 2xx body and flattens it into the
// display model. The overview name is the submitted plant name.
func decodeGuide(body []byte, plantName string) (*models.Guide, error) {
	var resp backendResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, &ShapeError{Path: typeErr.Field, Err: err}
		}
		return nil, &ShapeError{Err: err}
	}

	g := resp.PlantCareGuidance
	switch {
	case g == nil:
		return nil, &ShapeError{Path: "plant_care_guidance"}
	case g.PlantOverview == nil:
		return nil, &ShapeError{Path: "plant_care_guidance.plant_overview"}
	case g.DailyCare == nil:
		return nil, &ShapeError{Path: "plant_care_guidance.daily_care"}
	}

	guide := &models.Guide{
		Overview: &models.Overview{
			Name:            plantName,
			Description:     g.PlantOverview.Description,
			Difficulty:      g.PlantOverview.DifficultyLevel,
			IdealConditions: idealConditions(g.PlantOverview.IdealConditions),
			Benefits:        nonNil(g.PlantOverview.Benefits),
		},
		GrowthStages: make([]models.GrowthStage, 0, len(g.GrowthStages)),
		DailyCare: &models.DailyCare{
			Morning:     strings.Join(g.DailyCare.MorningRoutine, "\n"),
			Afternoon:   strings.Join(g.DailyCare.AfternoonRoutine, "\n"),
			Evening:     strings.Join(g.DailyCare.EveningRoutine, "\n"),
			WeeklyTasks: nonNil(g.DailyCare.WeeklyTasks),
		},
		CommonProblems: make([]models.Problem, 0, len(g.CommonProblems)),
		ExtraTips:      nonNil(g.AdditionalTips),
	}

	for _, s := range g.GrowthStages {
		guide.GrowthStages = append(guide.GrowthStages, models.GrowthStage{
			Name:             s.StageName,
			Duration:         s.Duration,
			CareInstructions: s.CareInstructions,
			KeyIndicators:    nonNil(s.KeyIndicators),
		})
	}

	for i, p := range g.CommonProblems {
		symptoms, err := symptomsText(p.Symptoms)
		if err != nil {
			return nil, &ShapeError{Path: fmt.Sprintf("plant_care_guidance.common_problems[%d].symptoms", i), Err: err}
		}
		guide.CommonProblems = append(guide.CommonProblems, models.Problem{
			Problem:    p.Problem,
			Symptoms:   symptoms,
			Solution:   p.Solution,
			Prevention: p.Prevention,
		})
	}

	if resp.VisualGuide != nil {
		guide.VisualGuide = strings.TrimSpace(resp.VisualGuide.FileURL)
	}

	return guide, nil
}

// symptomsText accepts either a string or a list of strings.
func symptomsText(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text, nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return "", errors.New("expected a string or a list of strings")
	}
	return strings.Join(list, "\n"), nil
}

var conditionKeys = struct {
	temperature, humidity, light, soilPH []string
}{
	temperature: []string{"temperature", "Temperature"},
	humidity:    []string{"humidity", "Humidity"},
	light:       []string{"light", "sunlight", "Light"},
	soilPH:      []string{"soil_ph", "soil_pH"},
}

func idealConditions(raw map[string]json.RawMessage) models.IdealConditions {
	return models.IdealConditions{
		Temperature: firstCondition(raw, conditionKeys.temperature),
		Humidity:    firstCondition(raw, conditionKeys.humidity),
		Light:       firstCondition(raw, conditionKeys.light),
		SoilPH:      firstCondition(raw, conditionKeys.soilPH),
	}
}

// firstCondition returns the first non-empty value under keys. Numbers are
// kept in their JSON spelling; other kinds are ignored.
func firstCondition(raw map[string]json.RawMessage, keys []string) string {
	for _, key := range keys {
		v, ok := raw[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
			continue
		}
		var n json.Number
		if err := json.Unmarshal(v, &n); err == nil {
			return n.String()
		}
	}
	return ""
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
