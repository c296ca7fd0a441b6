package models

// Guide is the display model: the flattened, renderer-ready form of one
// backend response. It is never persisted beyond the session's view state.
type Guide struct {
	Overview       *Overview     `json:"overview,omitempty"`
	GrowthStages   []GrowthStage `json:"growth_stages"`
	DailyCare      *DailyCare    `json:"daily_care,omitempty"`
	CommonProblems []Problem     `json:"common_problems"`
	ExtraTips      []string      `json:"extra_tips"`
	VisualGuide    string        `json:"visual_guide,omitempty"`
}

type Overview struct {
	Name            string          `json:"plant_name"`
	Description     string          `json:"description"`
	Difficulty      string          `json:"difficulty_level"`
	IdealConditions IdealConditions `json:"ideal_conditions"`
	Benefits        []string        `json:"benefits"`
}

type IdealConditions struct {
	Temperature string `json:"temperature,omitempty"`
	Humidity    string `json:"humidity,omitempty"`
	Light       string `json:"light,omitempty"`
	SoilPH      string `json:"soil_ph,omitempty"`
}

// Empty reports whether no condition is known.
func (c IdealConditions) Empty() bool {
	return c.Temperature == "" && c.Humidity == "" && c.Light == "" && c.SoilPH == ""
}

type GrowthStage struct {
	Name             string   `json:"stage_name"`
	Duration         string   `json:"duration"`
	CareInstructions string   `json:"care_instructions"`
	KeyIndicators    []string `json:"key_indicators"`
}

// DailyCare holds routines as newline-joined text; renderers split them back.
type DailyCare struct {
	Morning     string   `json:"morning"`
	Afternoon   string   `json:"afternoon"`
	Evening     string   `json:"evening"`
	WeeklyTasks []string `json:"weekly_tasks"`
}

type Problem struct {
	Problem    string `json:"problem"`
	Symptoms   string `json:"symptoms"`
	Solution   string `json:"solution"`
	Prevention string `json:"prevention"`
}
