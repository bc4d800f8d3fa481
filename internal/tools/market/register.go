package market

import (
	"hermes/internal/tools"
	"hermes/internal/tools/shared"
)

// RegisterAll registers every market tool in the registry. Registration
// order is the order the tools are offered to the model.
func RegisterAll(registry *tools.Registry, deps shared.Deps) {
	log := deps.Log.With("component", "tool_registration")

	registry.Register(NewTopGainersTool(deps))
	registry.Register(NewTopLosersTool(deps))
	registry.Register(NewStockAnalysisTool(deps))
	registry.Register(NewScanOversoldTool(deps))
	registry.Register(NewScanOverboughtTool(deps))
	registry.Register(NewCurrentPricesTool(deps))

	log.Infof("Tool registration complete: %d tools available", len(registry.List()))
}
