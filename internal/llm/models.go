package llm

// KnownModels lists text models reachable with a Generative Language API key.
var KnownModels = []ModelInfo{
	{ID: "gemma-3-1b-it", Name: "Gemma 3 1B", Description: "Smallest instruction-tuned Gemma"},
	{ID: "gemma-3-4b-it", Name: "Gemma 3 4B"},
	{ID: "gemma-3-12b-it", Name: "Gemma 3 12B"},
	{ID: "gemma-3-27b-it", Name: "Gemma 3 27B", Description: "Largest Gemma 3"},
	{ID: "gemini-2.0-flash", Name: "Gemini 2.0 Flash"},
	{ID: "gemini-2.5-flash", Name: "Gemini 2.5 Flash"},
}

type ModelInfo struct {
	ID          string
	Name        string
	Description string
}

// GetModelByID returns nil for unknown ids.
func GetModelByID(modelID string) *ModelInfo {
	for i := range KnownModels {
		if KnownModels[i].ID == modelID {
			return &KnownModels[i]
		}
	}
	return nil
}

func IsKnownModel(modelID string) bool {
	return GetModelByID(modelID) != nil
}
