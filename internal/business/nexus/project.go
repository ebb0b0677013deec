package nexus

import "github.com/trustmark-cpa/nexus-monitor/pkg/model"

// Presentation is the rendering contract for a status tier: a color token the
// UI theme resolves and a human label.
type Presentation struct {
	ColorToken string `json:"colorToken"`
	Label      string `json:"label"`
}

var presentations = map[model.StatusTier]Presentation{
	model.StatusCritical:  {ColorToken: "red", Label: "Critical"},
	model.StatusWarning:   {ColorToken: "orange", Label: "Warning"},
	model.StatusPending:   {ColorToken: "blue", Label: "Pending"},
	model.StatusTransit:   {ColorToken: "cyan", Label: "Transit"},
	model.StatusCompliant: {ColorToken: "green", Label: "Compliant"},
}

// Project maps a status tier to its presentation. Unknown tiers resolve to the
// compliant/green presentation so a rendering pass never fails; data-quality
// problems are reported at ingest, not here.
func Project(status model.StatusTier) Presentation {
	if p, ok := presentations[status]; ok {
		return p
	}
	return presentations[model.StatusCompliant]
}
