package envelope

const (
	// MinPriority is the lowest message priority
	MinPriority = 0
	// MaxPriority is the highest message priority
	MaxPriority = 9
	// DefaultPriority is the JMS default priority
	DefaultPriority = 4

	// MaxTimeToLive is the largest time-to-live or delivery delay, in
	// milliseconds, accepted at the envelope boundary. Values above it would
	// overflow when added to a current timestamp downstream.
	MaxTimeToLive int64 = 0x7f8fe33b8ac46bff
)

func validPriority(p int) bool {
	return p >= MinPriority && p <= MaxPriority
}

func validDuration(ms int64) bool {
	return ms >= 0 && ms <= MaxTimeToLive
}
