package nexus

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trustmark-cpa/nexus-monitor/pkg/model"
)

func TestProject(t *testing.T) {
	assert.Equal(t, Presentation{ColorToken: "red", Label: "Critical"}, Project(model.StatusCritical))
	assert.Equal(t, Presentation{ColorToken: "orange", Label: "Warning"}, Project(model.StatusWarning))
	assert.Equal(t, Presentation{ColorToken: "blue", Label: "Pending"}, Project(model.StatusPending))
	assert.Equal(t, Presentation{ColorToken: "cyan", Label: "Transit"}, Project(model.StatusTransit))
	assert.Equal(t, Presentation{ColorToken: "green", Label: "Compliant"}, Project(model.StatusCompliant))
}

func TestProjectUnknownFallsBackToGreen(t *testing.T) {
	assert.Equal(t, Presentation{ColorToken: "green", Label: "Compliant"}, Project(model.StatusTier("bogus")))
	assert.Equal(t, Presentation{ColorToken: "green", Label: "Compliant"}, Project(model.StatusTier("")))
}
