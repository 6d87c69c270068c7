// Package appliance 定義兩種智慧家電的烹調方法與參數範圍，
// 並提供參數驗證、摘要格式化與步驟建議。
package appliance

import "strings"

// 家電系列
const (
	FamilyMulticooker = "multicooker"
	FamilyOven        = "oven"
)

// 參數鍵（目前版本的正式鍵名）
const (
	KeyCookingTime      = "cooking_time"
	KeyTargetCavityTemp = "target_cavity_temp"
	KeyTargetProbeTemp  = "target_probe_temp"
	KeyRemoveProbeTemp  = "remove_probe_temp"
	KeyPresLevel        = "pres_level"
	KeyPresRelease      = "pres_release"
	KeyTempLevel        = "temp_level"
)

// 參數單位
const (
	UnitSeconds    = "seconds"
	UnitFahrenheit = "°F"
)

// 探針溫度範圍（°F）
const (
	MinProbeTemp = 100
	MaxProbeTemp = 300
)

// ParamSpec 單一參數的合法範圍或列舉值
type ParamSpec struct {
	Key    string   `json:"key"`
	Label  string   `json:"label"`
	Min    float64  `json:"min,omitempty"`
	Max    float64  `json:"max,omitempty"`
	Unit   string   `json:"unit,omitempty"`
	Values []string `json:"values,omitempty"`
}

// Enumerated 是否為列舉參數
func (p ParamSpec) Enumerated() bool {
	return len(p.Values) > 0
}

// MethodSpec 烹調方法
type MethodSpec struct {
	ID     string      `json:"id"`
	Name   string      `json:"name"`
	Params []ParamSpec `json:"params"`
}

// Param 取得方法支援的參數
func (m MethodSpec) Param(key string) (ParamSpec, bool) {
	for _, p := range m.Params {
		if p.Key == key {
			return p, true
		}
	}
	return ParamSpec{}, false
}

// Family 家電系列
type Family struct {
	ID      string       `json:"id"`
	Name    string       `json:"name"`
	Methods []MethodSpec `json:"methods"`
}

// Method 取得系列中的方法
func (f Family) Method(id string) (MethodSpec, bool) {
	for _, m := range f.Methods {
		if m.ID == id {
			return m, true
		}
	}
	return MethodSpec{}, false
}

func duration(min, max float64) ParamSpec {
	return ParamSpec{Key: KeyCookingTime, Label: "Cooking time", Min: min, Max: max, Unit: UnitSeconds}
}

func cavityTemp(min, max float64) ParamSpec {
	return ParamSpec{Key: KeyTargetCavityTemp, Label: "Temperature", Min: min, Max: max, Unit: UnitFahrenheit}
}

var (
	probeTarget = ParamSpec{Key: KeyTargetProbeTemp, Label: "Probe target", Min: MinProbeTemp, Max: MaxProbeTemp, Unit: UnitFahrenheit}
	probeRemove = ParamSpec{Key: KeyRemoveProbeTemp, Label: "Probe remove", Min: MinProbeTemp, Max: MaxProbeTemp, Unit: UnitFahrenheit}

	presLevel   = ParamSpec{Key: KeyPresLevel, Label: "Pressure", Values: []string{"low", "high"}}
	presRelease = ParamSpec{Key: KeyPresRelease, Label: "Release", Values: []string{"quick", "natural", "pulse"}}
	tempLevel   = ParamSpec{Key: KeyTempLevel, Label: "Heat", Values: []string{"low", "medium", "high"}}
)

var families = []Family{
	{
		ID:   FamilyMulticooker,
		Name: "Multicooker",
		Methods: []MethodSpec{
			{ID: "pressure_cook", Name: "Pressure Cook", Params: []ParamSpec{duration(60, 14400), presLevel, presRelease}},
			{ID: "rice", Name: "Rice", Params: []ParamSpec{duration(600, 3600), presLevel, presRelease}},
			{ID: "steam", Name: "Steam", Params: []ParamSpec{duration(60, 7200), presLevel, presRelease}},
			{ID: "slow_cook", Name: "Slow Cook", Params: []ParamSpec{duration(1800, 86400), tempLevel}},
			{ID: "saute", Name: "Sauté", Params: []ParamSpec{duration(60, 3600), tempLevel}},
			{ID: "sous_vide", Name: "Sous Vide", Params: []ParamSpec{duration(1800, 259200), cavityTemp(104, 195)}},
			{ID: "keep_warm", Name: "Keep Warm", Params: []ParamSpec{duration(60, 36000)}},
		},
	},
	{
		ID:   FamilyOven,
		Name: "Countertop Oven",
		Methods: []MethodSpec{
			{ID: "air_fry", Name: "Air Fry", Params: []ParamSpec{duration(60, 7200), cavityTemp(250, 450), probeTarget, probeRemove}},
			{ID: "bake", Name: "Bake", Params: []ParamSpec{duration(60, 14400), cavityTemp(170, 450), probeTarget, probeRemove}},
			{ID: "roast", Name: "Roast", Params: []ParamSpec{duration(60, 14400), cavityTemp(200, 450), probeTarget, probeRemove}},
			{ID: "broil", Name: "Broil", Params: []ParamSpec{duration(60, 1800), tempLevel}},
			{ID: "dehydrate", Name: "Dehydrate", Params: []ParamSpec{duration(3600, 86400), cavityTemp(90, 170)}},
			{ID: "reheat", Name: "Reheat", Params: []ParamSpec{duration(60, 3600), cavityTemp(200, 400)}},
		},
	},
}

// Families 所有家電系列與方法（回傳副本）
func Families() []Family {
	out := make([]Family, len(families))
	for i, f := range families {
		out[i] = f
		out[i].Methods = append([]MethodSpec(nil), f.Methods...)
	}
	return out
}

// LookupFamily 依 ID 取得家電系列（不分大小寫）
func LookupFamily(id string) (Family, bool) {
	id = strings.ToLower(strings.TrimSpace(id))
	for _, f := range families {
		if f.ID == id {
			return f, true
		}
	}
	return Family{}, false
}

// LookupMethod 取得系列中的方法
func LookupMethod(family, methodID string) (MethodSpec, bool) {
	f, ok := LookupFamily(family)
	if !ok {
		return MethodSpec{}, false
	}
	return f.Method(strings.TrimSpace(methodID))
}
