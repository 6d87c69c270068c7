package appliance

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"recipe-importer/internal/core/recipe"
)

// ValidationErrors 參數鍵對應的錯誤訊息；為資料而非錯誤值
type ValidationErrors map[string]string

// Empty 是否沒有任何錯誤
func (v ValidationErrors) Empty() bool {
	return len(v) == 0
}

// ProbeTempErrors 探針溫度聯合驗證結果
type ProbeTempErrors struct {
	TargetError string `json:"targetError,omitempty"`
	RemoveError string `json:"removeError,omitempty"`
}

// Empty 是否沒有任何錯誤
func (p ProbeTempErrors) Empty() bool {
	return p.TargetError == "" && p.RemoveError == ""
}

// Validate 驗證單一參數；回傳錯誤訊息，空字串代表無誤。
// 空白值一律通過，方法不支援的參數不驗證。
// 探針溫度會與 current 中的另一個探針值比對，錯誤歸屬於正在編輯的欄位。
func Validate(family, methodID, key string, raw interface{}, current map[string]interface{}) string {
	if IsBlank(raw) {
		return ""
	}

	method, ok := LookupMethod(family, methodID)
	if !ok {
		return ""
	}
	spec, ok := method.Param(key)
	if !ok {
		return ""
	}

	if msg := checkSpec(spec, raw); msg != "" {
		return msg
	}

	value, _ := Number(raw)
	switch key {
	case KeyRemoveProbeTemp:
		if target, ok := otherProbe(method, KeyTargetProbeTemp, current); ok && value > target {
			return removeAboveTarget(target)
		}
	case KeyTargetProbeTemp:
		if remove, ok := otherProbe(method, KeyRemoveProbeTemp, current); ok && remove > value {
			return targetBelowRemove(remove)
		}
	}
	return ""
}

// ValidateProbeTemps 同時驗證目標與取出溫度；違反 remove ≤ target 時兩個欄位都有錯誤
func ValidateProbeTemps(target, remove interface{}) ProbeTempErrors {
	var out ProbeTempErrors
	out.TargetError = checkSpec(probeTarget, target)
	out.RemoveError = checkSpec(probeRemove, remove)

	if out.TargetError != "" || out.RemoveError != "" || IsBlank(target) || IsBlank(remove) {
		return out
	}

	t, _ := Number(target)
	r, _ := Number(remove)
	if r > t {
		out.RemoveError = removeAboveTarget(t)
		out.TargetError = targetBelowRemove(r)
	}
	return out
}

// ValidateAction 驗證整個動作的所有參數
func ValidateAction(family string, action recipe.CookingAction) ValidationErrors {
	errs := ValidationErrors{}

	if _, ok := LookupFamily(family); !ok {
		errs["family"] = fmt.Sprintf("unknown appliance family %q", family)
		return errs
	}
	method, ok := LookupMethod(family, action.MethodID)
	if !ok {
		errs["methodId"] = fmt.Sprintf("unknown method %q for %s", action.MethodID, family)
		return errs
	}

	keys := make([]string, 0, len(action.Parameters))
	for k := range action.Parameters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if msg := Validate(family, method.ID, key, action.Parameters[key], action.Parameters); msg != "" {
			errs[key] = msg
		}
	}

	// 兩個探針值都有時以聯合規則補上雙欄位錯誤
	if _, ok := method.Param(KeyTargetProbeTemp); ok {
		probe := ValidateProbeTemps(action.Parameters[KeyTargetProbeTemp], action.Parameters[KeyRemoveProbeTemp])
		if probe.TargetError != "" {
			errs[KeyTargetProbeTemp] = probe.TargetError
		}
		if probe.RemoveError != "" {
			errs[KeyRemoveProbeTemp] = probe.RemoveError
		}
	}

	return errs
}

// checkSpec 檢查列舉或數值範圍，空白值通過
func checkSpec(spec ParamSpec, raw interface{}) string {
	if IsBlank(raw) {
		return ""
	}

	if spec.Enumerated() {
		value := levelText(raw)
		if spec.Key == KeyPresRelease {
			value = releaseText(raw)
		}
		for _, legal := range spec.Values {
			if value == legal {
				return ""
			}
		}
		return "must be one of: " + strings.Join(spec.Values, ", ")
	}

	value, ok := Number(raw)
	if !ok {
		return "must be a number"
	}
	if value < spec.Min {
		return "must be at least " + formatLimit(spec.Min, spec.Unit)
	}
	if value > spec.Max {
		return "must not exceed " + formatLimit(spec.Max, spec.Unit)
	}
	return ""
}

// otherProbe 取得另一個探針值；僅在方法支援、非空白且在範圍內時回傳
func otherProbe(method MethodSpec, key string, current map[string]interface{}) (float64, bool) {
	spec, ok := method.Param(key)
	if !ok {
		return 0, false
	}
	raw := current[key]
	if IsBlank(raw) || checkSpec(spec, raw) != "" {
		return 0, false
	}
	return Number(raw)
}

func removeAboveTarget(target float64) string {
	return fmt.Sprintf("must not exceed target temperature (%s)", formatLimit(target, UnitFahrenheit))
}

func targetBelowRemove(remove float64) string {
	return fmt.Sprintf("must be at least remove temperature (%s)", formatLimit(remove, UnitFahrenheit))
}

func formatLimit(v float64, unit string) string {
	switch unit {
	case UnitFahrenheit:
		return strconv.FormatFloat(v, 'f', -1, 64) + UnitFahrenheit
	case UnitSeconds:
		secs := int(math.Round(v))
		switch {
		case secs >= 3600 && secs%3600 == 0:
			return fmt.Sprintf("%d hr", secs/3600)
		case secs >= 60 && secs%60 == 0:
			return fmt.Sprintf("%d min", secs/60)
		default:
			return fmt.Sprintf("%d sec", secs)
		}
	default:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
}
