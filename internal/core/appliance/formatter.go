package appliance

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"recipe-importer/internal/core/recipe"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// SummarySeparator 摘要片語分隔符
const SummarySeparator = " • "

// FormatSummary 產生動作參數的一行摘要，例如 "45 min • High Pressure • Quick Release"。
// 沒有可辨識參數時回傳空字串。
func FormatSummary(action recipe.CookingAction) string {
	return Resolve(action.Parameters).Summary()
}

// Summary 依固定類別順序組合片語
func (r Resolved) Summary() string {
	phrases := make([]string, 0, len(categoryOrder))

	if r.TimeSeconds != nil {
		phrases = append(phrases, formatDuration(*r.TimeSeconds))
	}

	switch {
	case r.ProbeTarget != nil && r.ProbeRemove != nil:
		phrases = append(phrases, fmt.Sprintf("Probe: %s (remove at %s)", formatTemp(*r.ProbeTarget), formatTemp(*r.ProbeRemove)))
	case r.ProbeTarget != nil:
		phrases = append(phrases, "Probe: "+formatTemp(*r.ProbeTarget))
	case r.Temperature != nil:
		phrases = append(phrases, formatTemp(*r.Temperature))
	}

	if r.PressureLevel != "" {
		phrases = append(phrases, withSuffix(r.PressureLevel, "Pressure"))
	}
	if r.HeatLevel != "" {
		phrases = append(phrases, withSuffix(r.HeatLevel, "Heat"))
	}
	if r.Release != "" {
		phrases = append(phrases, withSuffix(r.Release, "Release"))
	}

	return strings.Join(phrases, SummarySeparator)
}

// formatDuration 秒數轉為 "45 min"，不足一分鐘顯示秒
func formatDuration(seconds float64) string {
	if seconds < 60 {
		return fmt.Sprintf("%d sec", int(math.Round(seconds)))
	}
	return fmt.Sprintf("%d min", int(math.Round(seconds/60)))
}

func formatTemp(f float64) string {
	return strconv.FormatFloat(math.Round(f*10)/10, 'f', -1, 64) + UnitFahrenheit
}

// withSuffix "high" -> "High Pressure"；已含後綴時不重複
func withSuffix(value, suffix string) string {
	text := cases.Title(language.English).String(strings.Join(strings.Fields(value), " "))
	if strings.HasSuffix(strings.ToLower(text), strings.ToLower(suffix)) {
		return text
	}
	if _, err := strconv.ParseFloat(text, 64); err == nil {
		return suffix + " " + text
	}
	return text + " " + suffix
}
