package hub

// Named limits, keeping magic numbers in one place.
const (
	// MaxUsers is the default cap on concurrent participants.
	MaxUsers = 10

	// controlReadBufferBytes sizes the per-session line reader.
	controlReadBufferBytes = 64 * 1024

	// timestampLayout renders the HH:MM:SS field in chat notices.
	timestampLayout = "15:04:05"
)
