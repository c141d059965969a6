package selector

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/OCAP2/combatbot/internal/selector"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
