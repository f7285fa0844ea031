package preset

// Preset is a named system prompt offered to clients at initialization.
type Preset struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	SystemPrompt string `json:"systemPrompt"`
}

// Seed provides the default presets.
func Seed() []Preset {
	return []Preset{
		{
			ID:           "assistant",
			Name:         "Helpful assistant",
			Description:  "General purpose assistant with short, direct answers.",
			SystemPrompt: "You are a helpful assistant. Answer concisely and say so when you are unsure.",
		},
		{
			ID:           "translator",
			Name:         "Translator",
			Description:  "Translates every message between Ukrainian and English.",
			SystemPrompt: "You are a translator. Translate each user message to English if it is Ukrainian, otherwise to Ukrainian. Reply with the translation only.",
		},
		{
			ID:           "storyteller",
			Name:         "Storyteller",
			Description:  "Continues the user's story in a few vivid sentences.",
			SystemPrompt: "You are a storyteller. Continue the user's story in three to five vivid sentences and end on a hook.",
		},
	}
}
