package recipe

import (
	"recipe-importer/internal/pkg/common"

	"go.uber.org/zap"
)

// DecorateSteps 將家電建議套到對應步驟，回傳新的食譜；索引超出範圍的建議忽略
func DecorateSteps(r CandidateRecipe, suggestions []Suggestion) CandidateRecipe {
	out := r.Clone()
	for _, s := range suggestions {
		if s.StepIndex < 0 || s.StepIndex >= len(out.Steps) {
			common.LogDebug("家電建議步驟索引超出範圍",
				zap.String("title", r.Title),
				zap.Int("step_index", s.StepIndex),
				zap.Int("steps", len(out.Steps)),
			)
			continue
		}
		action := s.Action.Clone()
		out.Steps[s.StepIndex].CookingAction = &action
	}
	return out
}
