package bot

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/OCAP2/combatbot/internal/bot"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
