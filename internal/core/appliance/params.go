package appliance

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Category 參數的語意類別
type Category int

const (
	CategoryTime Category = iota
	CategoryTemperature
	CategoryPressure
	CategoryHeat
	CategoryRelease
)

func (c Category) String() string {
	switch c {
	case CategoryTime:
		return "time"
	case CategoryTemperature:
		return "temperature"
	case CategoryPressure:
		return "pressure"
	case CategoryHeat:
		return "heat"
	case CategoryRelease:
		return "release"
	default:
		return "unknown"
	}
}

// Param 正規化後的參數
type Param int

const (
	ParamTimeMinutes Param = iota
	ParamTimeSeconds
	ParamTemperature
	ParamProbeTemperature
	ParamPressureLevel
	ParamHeatLevel
	ParamReleaseMethod
	ParamNaturalRelease
)

// Synonym 歷史鍵名與其對應的正規參數
type Synonym struct {
	Key   string
	Param Param
}

// Synonyms 每個類別依優先順序排列的鍵名；同類別第一個有值的鍵勝出
var Synonyms = map[Category][]Synonym{
	CategoryTime: {
		{Key: "time", Param: ParamTimeMinutes},
		{Key: KeyCookingTime, Param: ParamTimeSeconds},
		{Key: "duration", Param: ParamTimeMinutes},
	},
	CategoryTemperature: {
		{Key: "temperature", Param: ParamTemperature},
		{Key: KeyTargetCavityTemp, Param: ParamTemperature},
		{Key: KeyTargetProbeTemp, Param: ParamProbeTemperature},
		{Key: "internalTemp", Param: ParamTemperature},
		{Key: "targetTemperature", Param: ParamTemperature},
	},
	CategoryPressure: {
		{Key: "pressure", Param: ParamPressureLevel},
		{Key: KeyPresLevel, Param: ParamPressureLevel},
		{Key: "pressureLevel", Param: ParamPressureLevel},
	},
	CategoryHeat: {
		{Key: KeyTempLevel, Param: ParamHeatLevel},
		{Key: "tempLevel", Param: ParamHeatLevel},
	},
	CategoryRelease: {
		{Key: KeyPresRelease, Param: ParamReleaseMethod},
		{Key: "naturalRelease", Param: ParamNaturalRelease},
		{Key: "pressureRelease", Param: ParamReleaseMethod},
		{Key: "releaseMethod", Param: ParamReleaseMethod},
	},
}

// categoryOrder 摘要輸出順序
var categoryOrder = []Category{
	CategoryTime,
	CategoryTemperature,
	CategoryPressure,
	CategoryHeat,
	CategoryRelease,
}

// Resolved 一次解析後的動作參數
type Resolved struct {
	TimeSeconds   *float64
	Temperature   *float64
	ProbeTarget   *float64
	ProbeRemove   *float64
	PressureLevel string
	HeatLevel     string
	Release       string // quick | natural | 其他原始值
}

// Resolve 依同義鍵表解析參數，每個類別只取第一個有值的鍵
func Resolve(params map[string]interface{}) Resolved {
	var r Resolved
	for _, cat := range categoryOrder {
		for _, syn := range Synonyms[cat] {
			if r.apply(syn, params) {
				break
			}
		}
	}
	return r
}

// apply 套用單一同義鍵，回傳是否有值
func (r *Resolved) apply(syn Synonym, params map[string]interface{}) bool {
	raw, ok := params[syn.Key]
	if !ok || IsBlank(raw) {
		return false
	}

	switch syn.Param {
	case ParamTimeMinutes, ParamTimeSeconds:
		// 0 視為未設定
		n, ok := Number(raw)
		if !ok || n <= 0 {
			return false
		}
		if syn.Param == ParamTimeMinutes {
			n *= 60
		}
		r.TimeSeconds = &n
	case ParamTemperature:
		n, ok := Number(raw)
		if !ok {
			return false
		}
		r.Temperature = &n
	case ParamProbeTemperature:
		n, ok := Number(raw)
		if !ok {
			return false
		}
		r.ProbeTarget = &n
		if remove, ok := Number(params[KeyRemoveProbeTemp]); ok {
			r.ProbeRemove = &remove
		}
	case ParamPressureLevel:
		r.PressureLevel = levelText(raw)
		if r.PressureLevel == "" {
			return false
		}
	case ParamHeatLevel:
		r.HeatLevel = levelText(raw)
		if r.HeatLevel == "" {
			return false
		}
	case ParamNaturalRelease:
		b, ok := boolValue(raw)
		if !ok {
			return false
		}
		if b {
			r.Release = "natural"
		} else {
			r.Release = "quick"
		}
	case ParamReleaseMethod:
		r.Release = releaseText(raw)
		if r.Release == "" {
			return false
		}
	}
	return true
}

// IsBlank 空值、nil 或只含空白的字串
func IsBlank(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	default:
		return false
	}
}

// Number 將數字或數字字串轉為 float64
func Number(v interface{}) (float64, bool) {
	var f float64
	switch val := v.(type) {
	case float64:
		f = val
	case float32:
		f = float64(val)
	case int:
		f = float64(val)
	case int64:
		f = float64(val)
	case json.Number:
		n, err := val.Float64()
		if err != nil {
			return 0, false
		}
		f = n
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, false
		}
		f = n
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func boolValue(v interface{}) (bool, bool) {
	switch val := v.(type) {
	case bool:
		return val, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(val))
		return b, err == nil
	default:
		return false, false
	}
}

func levelText(v interface{}) string {
	if s, ok := v.(string); ok {
		return strings.ToLower(strings.TrimSpace(s))
	}
	if n, ok := Number(v); ok {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	return ""
}

func releaseText(v interface{}) string {
	s := levelText(v)
	s = strings.TrimSpace(strings.TrimSuffix(s, "release"))
	s = strings.TrimSpace(strings.TrimSuffix(s, "-"))
	return s
}
