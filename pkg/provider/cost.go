package provider

// modelPricing holds per-million-token pricing for known models.
type modelPricing struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

// pricing maps model identifiers to their token costs in USD.
var pricing = map[string]modelPricing{
	// GPT-4o family
	"gpt-4o":      {InputPerMillion: 2.50, OutputPerMillion: 10.0},
	"gpt-4o-mini": {InputPerMillion: 0.15, OutputPerMillion: 0.60},

	// GPT-4 family
	"gpt-4": {InputPerMillion: 30.0, OutputPerMillion: 60.0},
}

// EstimateCost returns the estimated USD cost of a call to model.
// Returns 0 if the model is not in the pricing table.
func EstimateCost(model string, inputTokens, outputTokens int) float64 {
	p, ok := pricing[model]
	if !ok {
		return 0
	}
	inputCost := float64(inputTokens) / 1_000_000 * p.InputPerMillion
	outputCost := float64(outputTokens) / 1_000_000 * p.OutputPerMillion
	return inputCost + outputCost
}

// Pricing returns the per-million-token input and output prices for model
// and whether the model is priced.
func Pricing(model string) (input, output float64, ok bool) {
	p, ok := pricing[model]
	return p.InputPerMillion, p.OutputPerMillion, ok
}
