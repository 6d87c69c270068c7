package appliance

import (
	"strings"
	"testing"

	"recipe-importer/internal/core/recipe"
)

func TestValidateProbeRange(t *testing.T) {
	tests := []struct {
		name string
		raw  interface{}
		want string
	}{
		{"too hot", 310.0, "must not exceed 300°F"},
		{"too cold", "90", "must be at least 100°F"},
		{"in range", 165, ""},
		{"blank string", "", ""},
		{"whitespace", "   ", ""},
		{"nil", nil, ""},
		{"not a number", "hot", "must be a number"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Validate(FamilyOven, "roast", KeyTargetProbeTemp, tt.raw, nil)
			if got != tt.want {
				t.Errorf("Validate(%v) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestValidateCookingTimeRange(t *testing.T) {
	if got := Validate(FamilyMulticooker, "pressure_cook", KeyCookingTime, 30, nil); got != "must be at least 1 min" {
		t.Errorf("short time = %q", got)
	}
	if got := Validate(FamilyMulticooker, "pressure_cook", KeyCookingTime, 20000, nil); got != "must not exceed 4 hr" {
		t.Errorf("long time = %q", got)
	}
	if got := Validate(FamilyMulticooker, "pressure_cook", KeyCookingTime, "600", nil); got != "" {
		t.Errorf("valid time = %q", got)
	}
}

func TestValidateUnsupportedKeyIsNoop(t *testing.T) {
	// 壓力鍋的加壓烹調沒有探針
	if got := Validate(FamilyMulticooker, "pressure_cook", KeyTargetProbeTemp, 999, nil); got != "" {
		t.Errorf("unsupported key validated: %q", got)
	}
	if got := Validate(FamilyOven, "does_not_exist", KeyCookingTime, -1, nil); got != "" {
		t.Errorf("unknown method validated: %q", got)
	}
}

func TestValidateEnumerated(t *testing.T) {
	if got := Validate(FamilyMulticooker, "pressure_cook", KeyPresLevel, "HIGH", nil); got != "" {
		t.Errorf("HIGH rejected: %q", got)
	}
	if got := Validate(FamilyMulticooker, "pressure_cook", KeyPresRelease, "Natural Release", nil); got != "" {
		t.Errorf("Natural Release rejected: %q", got)
	}
	got := Validate(FamilyMulticooker, "slow_cook", KeyTempLevel, "scorching", nil)
	if got != "must be one of: low, medium, high" {
		t.Errorf("invalid level = %q", got)
	}
}

func TestValidateCrossFieldAttributesEditedField(t *testing.T) {
	current := map[string]interface{}{KeyTargetProbeTemp: 150.0, KeyRemoveProbeTemp: ""}
	got := Validate(FamilyOven, "roast", KeyRemoveProbeTemp, 160, current)
	if !strings.Contains(got, "150°F") {
		t.Errorf("remove error = %q, want reference to 150°F", got)
	}

	current = map[string]interface{}{KeyTargetProbeTemp: "", KeyRemoveProbeTemp: 160.0}
	got = Validate(FamilyOven, "roast", KeyTargetProbeTemp, 150, current)
	if !strings.Contains(got, "160°F") {
		t.Errorf("target error = %q, want reference to 160°F", got)
	}

	// 另一欄位為空白時不做跨欄位比較
	current = map[string]interface{}{KeyTargetProbeTemp: ""}
	if got := Validate(FamilyOven, "roast", KeyRemoveProbeTemp, 160, current); got != "" {
		t.Errorf("remove with blank target = %q", got)
	}
}

func TestValidateProbeTemps(t *testing.T) {
	errs := ValidateProbeTemps(150, 160)
	if !strings.Contains(errs.RemoveError, "150°F") {
		t.Errorf("remove error = %q", errs.RemoveError)
	}
	if errs.TargetError == "" {
		t.Errorf("expected target error when validated jointly")
	}

	if errs := ValidateProbeTemps(160, 155); !errs.Empty() {
		t.Errorf("valid pair flagged: %+v", errs)
	}
	if errs := ValidateProbeTemps("", 155); !errs.Empty() {
		t.Errorf("blank target flagged: %+v", errs)
	}
	if errs := ValidateProbeTemps(310, 155); errs.TargetError != "must not exceed 300°F" || errs.RemoveError != "" {
		t.Errorf("out of range target = %+v", errs)
	}
}

func TestValidateAction(t *testing.T) {
	errs := ValidateAction(FamilyOven, recipe.CookingAction{
		MethodID: "roast",
		Parameters: map[string]interface{}{
			KeyCookingTime:      3600.0,
			KeyTargetCavityTemp: 500.0,
			KeyTargetProbeTemp:  150.0,
			KeyRemoveProbeTemp:  160.0,
			"color":             "golden",
		},
	})
	if errs[KeyTargetCavityTemp] != "must not exceed 450°F" {
		t.Errorf("cavity error = %q", errs[KeyTargetCavityTemp])
	}
	if errs[KeyTargetProbeTemp] == "" || errs[KeyRemoveProbeTemp] == "" {
		t.Errorf("probe errors missing: %v", errs)
	}
	if _, ok := errs[KeyCookingTime]; ok {
		t.Errorf("valid cooking time flagged")
	}
	if _, ok := errs["color"]; ok {
		t.Errorf("unknown key validated")
	}

	if errs := ValidateAction(FamilyOven, recipe.CookingAction{MethodID: "pressure_cook"}); errs["methodId"] == "" {
		t.Errorf("expected unknown method error, got %v", errs)
	}
	if errs := ValidateAction("toaster", recipe.CookingAction{MethodID: "bake"}); errs["family"] == "" {
		t.Errorf("expected unknown family error, got %v", errs)
	}
}

func TestFamiliesExposeProbeRanges(t *testing.T) {
	for _, f := range Families() {
		for _, m := range f.Methods {
			for _, p := range m.Params {
				if p.Key == KeyTargetProbeTemp || p.Key == KeyRemoveProbeTemp {
					if p.Min != 100 || p.Max != 300 {
						t.Errorf("%s/%s %s range = [%v, %v]", f.ID, m.ID, p.Key, p.Min, p.Max)
					}
				}
			}
		}
	}
}
