package appliance

import (
	"testing"

	"recipe-importer/internal/core/recipe"
)

func TestFormatSummary(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]interface{}
		want   string
	}{
		{"empty", map[string]interface{}{}, ""},
		{"unknown keys", map[string]interface{}{"color": "red"}, ""},
		{"cooking time seconds", map[string]interface{}{"cooking_time": 2700.0}, "45 min"},
		{"time minutes", map[string]interface{}{"time": "45"}, "45 min"},
		{"short time", map[string]interface{}{"cooking_time": 30}, "30 sec"},
		{"temperature", map[string]interface{}{"target_cavity_temp": 165.0}, "165°F"},
		{"probe with remove", map[string]interface{}{"target_probe_temp": 160, "remove_probe_temp": 155}, "Probe: 160°F (remove at 155°F)"},
		{"probe only", map[string]interface{}{"target_probe_temp": 160}, "Probe: 160°F"},
		{"pressure", map[string]interface{}{"pres_level": "high"}, "High Pressure"},
		{"heat", map[string]interface{}{"tempLevel": "MEDIUM"}, "Medium Heat"},
		{"natural release bool", map[string]interface{}{"naturalRelease": true}, "Natural Release"},
		{"quick release bool", map[string]interface{}{"naturalRelease": false}, "Quick Release"},
		{"release text", map[string]interface{}{"releaseMethod": "Quick Release"}, "Quick Release"},
		{"zero time", map[string]interface{}{"time": 0}, ""},
		{"zero time falls through", map[string]interface{}{"time": 0, "cooking_time": 30}, "30 sec"},
		{"non-text pressure falls through", map[string]interface{}{"pressure": true, "pres_level": "high"}, "High Pressure"},
		{"non-text heat", map[string]interface{}{"tempLevel": true}, ""},
		{"non-text release", map[string]interface{}{"releaseMethod": true}, ""},
		{
			"full pressure cook",
			map[string]interface{}{"pres_release": "quick", "pres_level": "high", "cooking_time": 2700},
			"45 min • High Pressure • Quick Release",
		},
		{
			"category order",
			map[string]interface{}{"temp_level": "low", "temperature": 350, "duration": 20},
			"20 min • 350°F • Low Heat",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatSummary(recipe.CookingAction{Parameters: tt.params})
			if got != tt.want {
				t.Errorf("FormatSummary(%v) = %q, want %q", tt.params, got, tt.want)
			}
		})
	}
}

func TestFormatSummaryFirstSynonymWins(t *testing.T) {
	params := map[string]interface{}{
		"time":         10,
		"cooking_time": 3600,
		"duration":     99,
		"temperature":  "",
		"internalTemp": 145,
		"pressure":     "low",
		"pres_level":   "high",
	}
	got := FormatSummary(recipe.CookingAction{Parameters: params})
	if want := "10 min • 145°F • Low Pressure"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFormatSummaryNilParameters(t *testing.T) {
	if got := FormatSummary(recipe.CookingAction{}); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}

func TestResolveOnce(t *testing.T) {
	r := Resolve(map[string]interface{}{"cooking_time": "600", "pres_release": "natural"})
	if r.TimeSeconds == nil || *r.TimeSeconds != 600 {
		t.Errorf("time = %v", r.TimeSeconds)
	}
	if r.Release != "natural" {
		t.Errorf("release = %q", r.Release)
	}
}
