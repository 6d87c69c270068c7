package recipe

import (
	"encoding/json"
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"

	"recipe-importer/internal/pkg/common"

	"go.uber.org/zap"
)

var (
	fenceOpenPattern  = regexp.MustCompile("^```[A-Za-z0-9_+-]*[ \t]*\r?\n?")
	fenceClosePattern = regexp.MustCompile("\r?\n?[ \t]*```$")

	// 小數超過兩位的數量，例如 0.3333
	longDecimalPattern = regexp.MustCompile(`\d+\.\d{3,}`)

	// 字串開頭的整數，例如 "45 minutes" 的 45
	leadingIntPattern = regexp.MustCompile(`^[+-]?\d+`)
)

// Outcome 單一擷取回應的整理結果
type Outcome struct {
	Recipes  []CandidateRecipe
	Rejected []*NormalizationError
}

// Normalize 將擷取服務的原始回應整理為候選食譜。
// 回應無法解析時回傳 *NormalizationError；個別空白候選只記錄並排除。
func Normalize(raw string) (*Outcome, error) {
	v, err := parseResponse(raw)
	if err != nil {
		common.LogWarn("擷取回應解析失敗",
			zap.Int("response_length", len(raw)),
			zap.Error(err),
		)
		return nil, &NormalizationError{Reason: ReasonParse, Err: err}
	}

	objects := candidateObjects(v)
	out := &Outcome{
		Recipes:  make([]CandidateRecipe, 0, len(objects)),
		Rejected: []*NormalizationError{},
	}

	for i, obj := range objects {
		m, ok := obj.(map[string]interface{})
		if !ok {
			out.reject(&NormalizationError{Reason: ReasonNotObject, Index: i})
			continue
		}

		candidate, err := NormalizeObject(m)
		if err != nil {
			var nerr *NormalizationError
			if !errors.As(err, &nerr) {
				nerr = &NormalizationError{Reason: ReasonParse, Err: err}
			}
			nerr.Index = i
			out.reject(nerr)
			continue
		}
		out.Recipes = append(out.Recipes, *candidate)
	}

	return out, nil
}

func (o *Outcome) reject(err *NormalizationError) {
	common.LogWarn("候選食譜已排除",
		zap.String("reason", err.Reason),
		zap.String("title", err.Title),
		zap.Int("index", err.Index),
	)
	o.Rejected = append(o.Rejected, err)
}

// StripFences 去掉 ```json ... ``` 或 ``` ... ``` 包裹
func StripFences(raw string) string {
	s := strings.TrimSpace(raw)
	s = fenceOpenPattern.ReplaceAllString(s, "")
	s = fenceClosePattern.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// parseResponse 依序嘗試：去包裹後直接解析、擷取 JSON 區段、移除尾逗號、補上鍵的引號
func parseResponse(raw string) (interface{}, error) {
	text := StripFences(raw)

	var v interface{}
	firstErr := common.ParseJSON(text, &v)
	if firstErr == nil {
		return v, nil
	}

	block, ok := extractJSONBlock(text)
	if !ok {
		return nil, firstErr
	}
	if err := common.ParseJSON(block, &v); err == nil {
		return v, nil
	}
	repaired := common.StripTrailingCommas(block)
	if err := common.ParseJSON(repaired, &v); err == nil {
		return v, nil
	}
	if err := common.ParseJSON(common.QuoteJSONKeys(repaired), &v); err == nil {
		return v, nil
	}
	return nil, firstErr
}

// extractJSONBlock 擷取第一個 { 或 [ 到對應的最後一個 } 或 ]
func extractJSONBlock(text string) (string, bool) {
	obj := strings.Index(text, "{")
	arr := strings.Index(text, "[")

	start, closer := obj, "}"
	if arr != -1 && (obj == -1 || arr < obj) {
		start, closer = arr, "]"
	}
	if start == -1 {
		return "", false
	}

	end := strings.LastIndex(text, closer)
	if end <= start {
		return "", false
	}
	return text[start : end+1], true
}

// candidateObjects 單一物件、陣列、{"recipes":[...]} 都攤平成同一個列表
func candidateObjects(v interface{}) []interface{} {
	switch val := v.(type) {
	case nil:
		return nil
	case []interface{}:
		return val
	case map[string]interface{}:
		if list, ok := val["recipes"].([]interface{}); ok && !looksLikeRecipe(val) {
			return list
		}
		return []interface{}{val}
	default:
		return []interface{}{val}
	}
}

func looksLikeRecipe(m map[string]interface{}) bool {
	for _, key := range []string{"title", "ingredients", "steps", "instructions"} {
		if _, ok := m[key]; ok {
			return true
		}
	}
	return false
}

// NormalizeObject 將單一 JSON 物件轉為候選食譜並補齊預設值
func NormalizeObject(m map[string]interface{}) (*CandidateRecipe, error) {
	c := &CandidateRecipe{
		Title:       stringField(m, "title", "name"),
		Description: stringField(m, "description", "summary"),
		Ingredients: normalizeIngredients(firstPresent(m, "ingredients")),
		Steps:       normalizeSteps(firstPresent(m, "steps", "instructions")),
		CookTime:    intValue(firstPresent(m, "cookTime", "cook_time"), DefaultCookTime),
		PrepTime:    intValue(firstPresent(m, "prepTime", "prep_time"), DefaultPrepTime),
		Servings:    intValue(firstPresent(m, "servings", "serves"), DefaultServings),
		Category:    stringField(m, "category"),
		Tags:        normalizeTags(firstPresent(m, "tags")),
		Image:       stringField(m, "image", "imageUrl"),
	}

	if c.Title == "" {
		c.Title = DefaultTitle
	}

	if len(c.Ingredients) == 0 && len(c.Steps) == 0 {
		return nil, &NormalizationError{Reason: ReasonEmptyCandidate, Title: c.Title}
	}

	return c, nil
}

func firstPresent(m map[string]interface{}, keys ...string) interface{} {
	for _, key := range keys {
		if v, ok := m[key]; ok && v != nil {
			return v
		}
	}
	return nil
}

func stringField(m map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if s, ok := stringValue(m[key]); ok && s != "" {
			return s
		}
	}
	return ""
}

func stringValue(v interface{}) (string, bool) {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val), true
	case json.Number:
		return val.String(), true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case int:
		return strconv.Itoa(val), true
	default:
		return "", false
	}
}

// intValue 類似 parseInt：接受數字或以整數開頭的字串，失敗或為負時回傳預設值
func intValue(v interface{}, def int) int {
	var n int
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			n = int(i)
		} else if f, err := val.Float64(); err == nil && !math.IsInf(f, 0) {
			n = int(f)
		} else {
			return def
		}
	case float64:
		n = int(val)
	case int:
		n = val
	case string:
		digits := leadingIntPattern.FindString(strings.TrimSpace(val))
		if digits == "" {
			return def
		}
		i, err := strconv.Atoi(digits)
		if err != nil {
			return def
		}
		n = i
	default:
		return def
	}

	if n < 0 {
		return def
	}
	return n
}

// RoundQuantities 將超過兩位小數的數量四捨五入到兩位，只替換數量子字串
func RoundQuantities(s string) string {
	return longDecimalPattern.ReplaceAllStringFunc(s, func(q string) string {
		f, err := strconv.ParseFloat(q, 64)
		if err != nil {
			return q
		}
		return strconv.FormatFloat(math.Round(f*100)/100, 'f', 2, 64)
	})
}

func normalizeIngredients(v interface{}) []string {
	items, ok := v.([]interface{})
	out := make([]string, 0, len(items))
	if !ok {
		return out
	}

	for _, item := range items {
		var line string
		switch val := item.(type) {
		case map[string]interface{}:
			line = ingredientFromObject(val)
		default:
			line, _ = stringValue(val)
		}
		line = strings.TrimSpace(RoundQuantities(line))
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// ingredientFromObject {quantity|amount, unit, name, preparation} 組成單行
func ingredientFromObject(m map[string]interface{}) string {
	parts := make([]string, 0, 3)
	for _, s := range []string{
		stringField(m, "quantity", "amount", "qty"),
		stringField(m, "unit"),
		stringField(m, "name", "item", "ingredient", "text"),
	} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	line := strings.Join(parts, " ")
	if prep := stringField(m, "preparation", "notes", "note"); prep != "" && line != "" {
		line += ", " + prep
	}
	return line
}

func normalizeSteps(v interface{}) []Step {
	items, ok := v.([]interface{})
	out := make([]Step, 0, len(items))
	if !ok {
		return out
	}

	for _, item := range items {
		var step Step
		switch val := item.(type) {
		case map[string]interface{}:
			step = Step{
				Text:          stringField(val, "text", "instruction", "description", "step"),
				Image:         stringField(val, "image", "imageUrl"),
				CookingAction: parseAction(firstPresent(val, "cookingAction", "cooking_action", "action")),
			}
		default:
			text, _ := stringValue(val)
			step = Step{Text: text}
		}

		// 空白步驟直接丟棄
		if strings.TrimSpace(step.Text) == "" {
			continue
		}
		out = append(out, step)
	}
	return out
}

func normalizeTags(v interface{}) []string {
	out := []string{}
	switch val := v.(type) {
	case []interface{}:
		for _, item := range val {
			if s, ok := stringValue(item); ok && s != "" {
				out = append(out, s)
			}
		}
	case string:
		for _, s := range strings.Split(val, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// parseAction 解析步驟附帶的烹調動作，缺少方法與參數時回傳 nil
func parseAction(v interface{}) *CookingAction {
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil
	}

	method := stringField(m, "methodId", "method_id", "methodID", "method")
	params := map[string]interface{}{}
	if raw, ok := firstPresent(m, "parameters", "params").(map[string]interface{}); ok {
		for k, pv := range raw {
			params[k] = ParameterValue(pv)
		}
	}

	if method == "" && len(params) == 0 {
		return nil
	}
	return &CookingAction{MethodID: method, Parameters: params}
}

// ParameterValue 將 json.Number 轉為 float64，其餘原樣保留
func ParameterValue(v interface{}) interface{} {
	if n, ok := v.(json.Number); ok {
		if f, err := n.Float64(); err == nil {
			return f
		}
		return n.String()
	}
	return v
}
