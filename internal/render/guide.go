// Package render turns display models into template-ready views. Every
// section function is pure and reports whether the section should be shown
// at all; templates never decide emptiness themselves.
package render

import (
	"strings"

	"github.com/HammerMeetNail/plantcare/internal/models"
)

type Condition struct {
	Icon  string
	Label string
	Value string
}

type OverviewView struct {
	Name            string
	Description     string
	Difficulty      string
	DifficultyClass string
	Conditions      []Condition
	Benefits        []string
}

type StageView struct {
	Number           int
	Name             string
	Duration         string
	CareInstructions string
	KeyIndicators    []string
	Last             bool
}

type RoutineView struct {
	Key   string
	Label string
	Icon  string
	Lines []string
}

type DailyCareView struct {
	Routines    []RoutineView
	WeeklyTasks []string
}

type ProblemView struct {
	Icon       string
	Problem    string
	Symptoms   []string
	Solution   string
	Prevention string
}

type VisualGuideView struct {
	URL     string
	IsImage bool
}

// ProblemIcons are assigned to problems in order, wrapping around.
var ProblemIcons = []string{"🐛", "🍂", "💧", "⚠️", "🔬", "🌡️"}

var imageSuffixes = []string{".png", ".jpg", ".jpeg"}

// SplitLines splits text on newlines and drops whitespace-only lines.
// Kept lines are returned as written.
func SplitLines(s string) []string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// DifficultyClass maps a free-text difficulty to a badge class.
func DifficultyClass(difficulty string) string {
	lower := strings.ToLower(difficulty)
	switch {
	case strings.Contains(lower, "easy"), strings.Contains(lower, "beginner"):
		return "easy"
	case strings.Contains(lower, "hard"), strings.Contains(lower, "advanced"):
		return "hard"
	default:
		return "moderate"
	}
}

func Overview(o *models.Overview) (OverviewView, bool) {
	if o == nil {
		return OverviewView{}, false
	}

	v := OverviewView{
		Name:            o.Name,
		Description:     o.Description,
		Difficulty:      o.Difficulty,
		DifficultyClass: DifficultyClass(o.Difficulty),
		Benefits:        nonBlank(o.Benefits),
	}

	ic := o.IdealConditions
	for _, c := range []Condition{
		{Icon: "🌡️", Label: "Temperature", Value: ic.Temperature},
		{Icon: "💧", Label: "Humidity", Value: ic.Humidity},
		{Icon: "☀️", Label: "Light", Value: ic.Light},
		{Icon: "🌱", Label: "Soil pH", Value: ic.SoilPH},
	} {
		if c.Value != "" {
			v.Conditions = append(v.Conditions, c)
		}
	}
	return v, true
}

// GrowthStages numbers stages from 1 in the order given.
func GrowthStages(stages []models.GrowthStage) ([]StageView, bool) {
	if len(stages) == 0 {
		return nil, false
	}

	views := make([]StageView, len(stages))
	for i, s := range stages {
		views[i] = StageView{
			Number:           i + 1,
			Name:             s.Name,
			Duration:         s.Duration,
			CareInstructions: s.CareInstructions,
			KeyIndicators:    nonBlank(s.KeyIndicators),
			Last:             i == len(stages)-1,
		}
	}
	return views, true
}

func DailyCare(care *models.DailyCare) (DailyCareView, bool) {
	if care == nil {
		return DailyCareView{}, false
	}

	var v DailyCareView
	for _, slot := range []struct {
		key, label, icon, text string
	}{
		{"morning", "Morning", "🌅", care.Morning},
		{"afternoon", "Afternoon", "☀️", care.Afternoon},
		{"evening", "Evening", "🌙", care.Evening},
	} {
		if lines := SplitLines(slot.text); len(lines) > 0 {
			v.Routines = append(v.Routines, RoutineView{
				Key:   slot.key,
				Label: slot.label,
				Icon:  slot.icon,
				Lines: lines,
			})
		}
	}
	v.WeeklyTasks = nonBlank(care.WeeklyTasks)
	return v, true
}

func Problems(problems []models.Problem) ([]ProblemView, bool) {
	if len(problems) == 0 {
		return nil, false
	}

	views := make([]ProblemView, len(problems))
	for i, p := range problems {
		views[i] = ProblemView{
			Icon:       ProblemIcons[i%len(ProblemIcons)],
			Problem:    p.Problem,
			Symptoms:   SplitLines(p.Symptoms),
			Solution:   p.Solution,
			Prevention: p.Prevention,
		}
	}
	return views, true
}

func Tips(tips []string) ([]string, bool) {
	kept := nonBlank(tips)
	return kept, len(kept) > 0
}

// VisualGuide shows image URLs inline and anything else as a download link.
func VisualGuide(url string) (VisualGuideView, bool) {
	if url == "" {
		return VisualGuideView{}, false
	}
	v := VisualGuideView{URL: url}
	for _, suffix := range imageSuffixes {
		if strings.HasSuffix(url, suffix) {
			v.IsImage = true
			break
		}
	}
	return v, true
}

func nonBlank(items []string) []string {
	var kept []string
	for _, item := range items {
		if strings.TrimSpace(item) != "" {
			kept = append(kept, item)
		}
	}
	return kept
}
