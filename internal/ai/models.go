package ai

// ModelInfo describes a chat model's context window. The catalog only needs
// to cover the models people commonly point the client at; unknown names are
// fine and simply skip window-aware clamping.
type ModelInfo struct {
	Name          string
	ContextTokens int
}

var models = map[string]ModelInfo{
	"gpt-4o": {
		Name:          "gpt-4o",
		ContextTokens: 128000,
	},
	"gpt-4o-mini": {
		Name:          "gpt-4o-mini",
		ContextTokens: 128000,
	},
	"gpt-4.1": {
		Name:          "gpt-4.1",
		ContextTokens: 1000000,
	},
	"gpt-4.1-mini": {
		Name:          "gpt-4.1-mini",
		ContextTokens: 1000000,
	},
	"gpt-3.5-turbo": {
		Name:          "gpt-3.5-turbo",
		ContextTokens: 16385,
	},
	// Common local gateway tags, for OpenAI-compatible servers.
	"llama3.1:8b-instruct": {
		Name:          "llama3.1:8b-instruct",
		ContextTokens: 8192,
	},
	"mistral:7b-instruct": {
		Name:          "mistral:7b-instruct",
		ContextTokens: 8192,
	},
	"phi3:mini-4k-instruct": {
		Name:          "phi3:mini-4k-instruct",
		ContextTokens: 4096,
	},
}

// LookupModel returns ModelInfo and ok flag.
func LookupModel(name string) (ModelInfo, bool) {
	mi, ok := models[name]
	return mi, ok
}

// ClampHistoryBudget caps a configured history budget at half the model's
// context window so the prompt leaves room for tool traffic and the reply.
// Unknown models and non-positive budgets pass through unchanged.
func ClampHistoryBudget(model string, budget int) int {
	mi, ok := LookupModel(model)
	if !ok || budget <= 0 {
		return budget
	}
	if limit := mi.ContextTokens / 2; budget > limit {
		return limit
	}
	return budget
}
