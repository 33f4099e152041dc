package telemetry

// Event is an immutable record of one observed request. Events carry no
// identity of their own; ordering is defined by submission order.
type Event struct {
	// StartTime is the moment the request was observed, in unix milliseconds.
	StartTime int64
	// Path identifies the observed resource.
	Path string
	// Duration is the elapsed handling time in milliseconds. Must be >= 0.
	Duration float64
	// Method is the request verb.
	Method string
}
