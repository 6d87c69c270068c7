package recipe

// 未知欄位的預設值
const (
	DefaultTitle    = "Untitled Recipe"
	DefaultCookTime = 30
	DefaultPrepTime = 15
	DefaultServings = 4
)

// CandidateRecipe 從單一擷取回應解出的食譜，尚未跨切塊去重
type CandidateRecipe struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Ingredients []string `json:"ingredients"`
	Steps       []Step   `json:"steps"`
	CookTime    int      `json:"cookTime"` // 分鐘
	PrepTime    int      `json:"prepTime"` // 分鐘
	Servings    int      `json:"servings"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`
	Image       string   `json:"image,omitempty"`
}

// Step 食譜步驟
type Step struct {
	Text          string         `json:"text"`
	Image         string         `json:"image,omitempty"`
	CookingAction *CookingAction `json:"cookingAction,omitempty"`
}

// CookingAction 家電烹調動作；參數值為數字、字串或布林
type CookingAction struct {
	MethodID   string                 `json:"methodId"`
	Parameters map[string]interface{} `json:"parameters"`
}

// Suggestion 家電建議：指定步驟索引的烹調動作
type Suggestion struct {
	StepIndex int           `json:"stepIndex"`
	Action    CookingAction `json:"cookingAction"`
}

// Clone 深拷貝，避免呼叫端共用切片與參數表
func (r CandidateRecipe) Clone() CandidateRecipe {
	cp := r
	cp.Ingredients = append([]string(nil), r.Ingredients...)
	cp.Tags = append([]string(nil), r.Tags...)
	cp.Steps = make([]Step, len(r.Steps))
	for i, st := range r.Steps {
		cp.Steps[i] = st
		if st.CookingAction != nil {
			action := st.CookingAction.Clone()
			cp.Steps[i].CookingAction = &action
		}
	}
	return cp
}

// Clone 複製動作參數
func (a CookingAction) Clone() CookingAction {
	params := make(map[string]interface{}, len(a.Parameters))
	for k, v := range a.Parameters {
		params[k] = v
	}
	return CookingAction{MethodID: a.MethodID, Parameters: params}
}
