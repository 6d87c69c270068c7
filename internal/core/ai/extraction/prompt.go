package extraction

import (
	"fmt"
	"strings"
)

// recipePrompt 固定的擷取指示，%s 為切塊文字
const recipePrompt = `You are a recipe extraction system. Read the text between the markers and extract every complete or partial recipe it contains.

RULES:
1. Extract ONLY recipes present in the text; never invent ingredients or steps.
2. Keep ingredient lines as written, including quantity and unit (e.g. "1 1/2 cups flour").
3. One entry per instruction step, in order.
4. cookTime, prepTime and servings are integers (minutes, minutes, people); use null when unknown.
5. If the text is cut off mid-recipe, still return what is there.
6. Return ONLY JSON. A single recipe may be an object; several recipes must be an array. No prose.

JSON SHAPE:
[
  {
    "title": "Recipe title",
    "description": "Short description",
    "ingredients": ["1 cup flour", "2 eggs"],
    "steps": ["Preheat oven to 350°F.", "Mix the flour and eggs."],
    "cookTime": 30,
    "prepTime": 15,
    "servings": 4,
    "category": "Dessert",
    "tags": ["baking"]
  }
]

TEXT:
---
%s
---`

// BuildPrompt 將切塊文字套入固定擷取指示
func BuildPrompt(chunkText string) string {
	return fmt.Sprintf(recipePrompt, strings.TrimSpace(chunkText))
}
