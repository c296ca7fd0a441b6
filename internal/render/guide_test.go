package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HammerMeetNail/plantcare/internal/models"
)

func TestSplitLines(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"\n\n  \n", nil},
		{"Water", []string{"Water"}},
		{"Water\nCheck soil", []string{"Water", "Check soil"}},
		{"  Water  \n\n\tMist leaves\n", []string{"  Water  ", "\tMist leaves"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SplitLines(tt.in), "input %q", tt.in)
	}
}

func TestSplitLines_RoundTrip(t *testing.T) {
	cases := [][]string{
		{"Water the soil", "Check for pests"},
		{"Open blinds", "", "Rotate pot", "   "},
		{"only"},
		{"  Water deeply", "Check soil ", "\t"},
		{},
	}
	for _, xs := range cases {
		var want []string
		for _, x := range xs {
			if strings.TrimSpace(x) != "" {
				want = append(want, x)
			}
		}
		assert.Equal(t, want, SplitLines(strings.Join(xs, "\n")))
	}
}

func TestDifficultyClass(t *testing.T) {
	tests := map[string]string{
		"Easy":                 "easy",
		"Beginner friendly":    "easy",
		"Hard":                 "hard",
		"For ADVANCED growers": "hard",
		"Moderate":             "moderate",
		"Intermediate":         "moderate",
		"":                     "moderate",
		"unknown":              "moderate",
	}
	for in, want := range tests {
		assert.Equal(t, want, DifficultyClass(in), "difficulty %q", in)
	}
}

func TestOverview(t *testing.T) {
	_, ok := Overview(nil)
	assert.False(t, ok)

	v, ok := Overview(&models.Overview{
		Name:            "Basil",
		Description:     "Aromatic herb",
		Difficulty:      "Easy",
		IdealConditions: models.IdealConditions{Temperature: "20-30C", SoilPH: "6.0-7.5"},
		Benefits:        []string{"Culinary", " "},
	})
	require.True(t, ok)
	assert.Equal(t, "easy", v.DifficultyClass)
	require.Len(t, v.Conditions, 2)
	assert.Equal(t, "Temperature", v.Conditions[0].Label)
	assert.Equal(t, "Soil pH", v.Conditions[1].Label)
	assert.Equal(t, []string{"Culinary"}, v.Benefits)
}

func TestGrowthStages_PreservesOrder(t *testing.T) {
	_, ok := GrowthStages(nil)
	assert.False(t, ok)
	_, ok = GrowthStages([]models.GrowthStage{})
	assert.False(t, ok)

	stages := []models.GrowthStage{
		{Name: "Germination"},
		{Name: "Seedling"},
		{Name: "Vegetative"},
		{Name: "Flowering"},
	}
	views, ok := GrowthStages(stages)
	require.True(t, ok)
	require.Len(t, views, len(stages))
	for i, v := range views {
		assert.Equal(t, i+1, v.Number)
		assert.Equal(t, stages[i].Name, v.Name)
		assert.Equal(t, i == len(stages)-1, v.Last)
	}
}

func TestDailyCare(t *testing.T) {
	_, ok := DailyCare(nil)
	assert.False(t, ok)

	v, ok := DailyCare(&models.DailyCare{
		Morning: "Water\nOpen blinds",
		Evening: "Close blinds",
	})
	require.True(t, ok)
	require.Len(t, v.Routines, 2, "empty afternoon is skipped")
	assert.Equal(t, "morning", v.Routines[0].Key)
	assert.Equal(t, []string{"Water", "Open blinds"}, v.Routines[0].Lines)
	assert.Equal(t, "evening", v.Routines[1].Key)
	assert.Empty(t, v.WeeklyTasks, "no weekly tasks means no weekly section")

	v, _ = DailyCare(&models.DailyCare{WeeklyTasks: []string{"Fertilize"}})
	assert.Empty(t, v.Routines)
	assert.Equal(t, []string{"Fertilize"}, v.WeeklyTasks)
}

func TestProblems(t *testing.T) {
	_, ok := Problems([]models.Problem{})
	assert.False(t, ok)

	problems := make([]models.Problem, 8)
	for i := range problems {
		problems[i] = models.Problem{Problem: "p", Symptoms: "Yellow leaves\nWilting"}
	}
	views, ok := Problems(problems)
	require.True(t, ok)
	require.Len(t, views, 8)
	assert.Equal(t, "🐛", views[0].Icon)
	assert.Equal(t, "🌡️", views[5].Icon)
	assert.Equal(t, "🐛", views[6].Icon, "icons wrap around")
	assert.Equal(t, "🍂", views[7].Icon)
	assert.Equal(t, []string{"Yellow leaves", "Wilting"}, views[0].Symptoms)
}

func TestTips(t *testing.T) {
	_, ok := Tips(nil)
	assert.False(t, ok)
	_, ok = Tips([]string{"", "  "})
	assert.False(t, ok, "only blank tips renders nothing")

	tips, ok := Tips([]string{"Mulch", "", "Prune"})
	require.True(t, ok)
	assert.Equal(t, []string{"Mulch", "Prune"}, tips)
}

func TestVisualGuide(t *testing.T) {
	_, ok := VisualGuide("")
	assert.False(t, ok)

	tests := []struct {
		url   string
		image bool
	}{
		{"https://cdn.example.com/guide.png", true},
		{"/files/guide.jpg", true},
		{"/files/guide.jpeg", true},
		{"/files/guide.pptx", false},
		{"/files/guide.pdf", false},
		{"/files/guide.png.zip", false},
	}
	for _, tt := range tests {
		v, ok := VisualGuide(tt.url)
		require.True(t, ok)
		assert.Equal(t, tt.image, v.IsImage, "url %s", tt.url)
		assert.Equal(t, tt.url, v.URL)
	}
}
