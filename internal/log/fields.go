package log

// FieldComponent tags every log line with the emitting component.
const FieldComponent = "component"

// Standard component names.
const (
	ComponentApp        = "app"
	ComponentHTTP       = "http"
	ComponentProjection = "projection"
	ComponentUpstream   = "upstream"
	ComponentStorage    = "storage"
	ComponentAMQP       = "amqp"
	ComponentWorker     = "worker"
	ComponentLedger     = "ledger"
)
