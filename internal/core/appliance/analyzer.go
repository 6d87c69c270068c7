package appliance

import (
	"context"
	"fmt"
	"strings"

	"recipe-importer/internal/core/ai/extraction"
	"recipe-importer/internal/core/recipe"
	"recipe-importer/internal/pkg/common"

	"go.uber.org/zap"
)

// analyzerMaxTries 首次請求加上一次附修正說明的重試
const analyzerMaxTries = 2

// Generator 送出提示詞取得原始文字回應
type Generator interface {
	Generate(ctx context.Context, prompt string, opts extraction.SamplingConfig) (string, error)
}

// Analyzer 以擷取服務為食譜步驟建議家電動作
type Analyzer struct {
	generator Generator
	family    Family
	sampling  extraction.SamplingConfig
}

// NewAnalyzer 創建家電建議分析器
func NewAnalyzer(generator Generator, family string, sampling extraction.SamplingConfig) (*Analyzer, error) {
	f, ok := LookupFamily(family)
	if !ok {
		return nil, fmt.Errorf("unknown appliance family %q", family)
	}
	return &Analyzer{
		generator: generator,
		family:    f,
		sampling:  sampling.WithDefaults(extraction.DefaultSampling),
	}, nil
}

// Family 分析器使用的家電系列
func (a *Analyzer) Family() string {
	return a.family.ID
}

type suggestionResponse struct {
	Steps []suggestionStep `json:"steps"`
}

type suggestionStep struct {
	StepIndex  *int                   `json:"step_index"`
	MethodID   string                 `json:"method_id"`
	Parameters map[string]interface{} `json:"parameters"`
}

// Suggest 為食譜步驟產生家電動作建議；方法不屬於此系列的建議會被捨棄
func (a *Analyzer) Suggest(ctx context.Context, r recipe.CandidateRecipe) ([]recipe.Suggestion, error) {
	if len(r.Steps) == 0 {
		return []recipe.Suggestion{}, nil
	}

	reason := ""
	var lastErr error
	for attempt := 1; attempt <= analyzerMaxTries; attempt++ {
		prompt := buildSuggestionPrompt(r, a.family, reason)

		// 服務本身失敗不重試，只有回應無法解析才附修正說明重來
		txt, err := a.generator.Generate(ctx, prompt, a.sampling)
		if err != nil {
			return nil, fmt.Errorf("appliance suggestions: %w", err)
		}

		var resp suggestionResponse
		if err := jsonInto(txt, &resp); err != nil {
			lastErr = err
			reason = fmt.Sprintf("previous response could not be parsed (%v)", err)
			common.LogWarn("家電建議回應無法解析", zap.Int("attempt", attempt), zap.Error(err))
			continue
		}

		return a.collect(r, resp), nil
	}

	return nil, fmt.Errorf("appliance suggestions: %w", lastErr)
}

// collect 過濾無效步驟索引與未知方法
func (a *Analyzer) collect(r recipe.CandidateRecipe, resp suggestionResponse) []recipe.Suggestion {
	out := make([]recipe.Suggestion, 0, len(resp.Steps))
	seen := map[int]bool{}

	for _, st := range resp.Steps {
		if st.StepIndex == nil || *st.StepIndex < 0 || *st.StepIndex >= len(r.Steps) || seen[*st.StepIndex] {
			continue
		}
		method, ok := a.family.Method(strings.TrimSpace(st.MethodID))
		if !ok {
			common.LogDebug("家電建議方法不屬於此系列，已捨棄",
				zap.String("family", a.family.ID),
				zap.String("method_id", st.MethodID),
			)
			continue
		}

		params := make(map[string]interface{}, len(st.Parameters))
		for k, v := range st.Parameters {
			if IsBlank(v) {
				continue
			}
			params[k] = recipe.ParameterValue(v)
		}

		seen[*st.StepIndex] = true
		out = append(out, recipe.Suggestion{
			StepIndex: *st.StepIndex,
			Action:    recipe.CookingAction{MethodID: method.ID, Parameters: params},
		})
	}
	return out
}

// jsonInto 去掉包裹後將 JSON 解到 out
func jsonInto(txt string, out interface{}) error {
	txt = recipe.StripFences(txt)
	if start, end := strings.Index(txt, "{"), strings.LastIndex(txt, "}"); start != -1 && end != -1 && end > start {
		txt = txt[start : end+1]
	}
	if txt == "" {
		return fmt.Errorf("empty suggestion response")
	}
	return common.ParseJSON(txt, out)
}

func buildSuggestionPrompt(r recipe.CandidateRecipe, family Family, correction string) string {
	var methods strings.Builder
	for _, m := range family.Methods {
		params := make([]string, 0, len(m.Params))
		for _, p := range m.Params {
			if p.Enumerated() {
				params = append(params, fmt.Sprintf("%s (one of %s)", p.Key, strings.Join(p.Values, "/")))
			} else {
				params = append(params, fmt.Sprintf("%s (%g-%g %s)", p.Key, p.Min, p.Max, p.Unit))
			}
		}
		methods.WriteString(fmt.Sprintf("- %s: %s\n", m.ID, strings.Join(params, ", ")))
	}

	var steps strings.Builder
	for i, st := range r.Steps {
		steps.WriteString(fmt.Sprintf("%d. %s\n", i, strings.TrimSpace(st.Text)))
	}

	correctionLine := ""
	if correction != "" {
		correctionLine = fmt.Sprintf("Fix the following problem and answer again: %s\n", correction)
	}

	prompt := fmt.Sprintf(`
You map recipe steps to actions on a %s. Only output JSON, no prose and no code fences.
%s
Recipe: %s
Description: %s
Total cook time: %d minutes

Available methods and parameters:
%s
Output format:
{
  "steps": [
    {"step_index": <0-based step index>, "method_id": "<one of the methods above>", "parameters": {"<key>": <value>}}
  ]
}
Only include steps that the appliance actually performs. cooking_time is in seconds, temperatures in °F.
Steps:
%s`, family.Name, correctionLine, r.Title, r.Description, r.CookTime, methods.String(), strings.TrimSpace(steps.String()))

	return strings.TrimSpace(prompt)
}
