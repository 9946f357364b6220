package runtime

// TagIOReady is the single reserved tag value used to distinguish
// runtime-synthesized I/O readiness messages from ordinary user messages.
// User code should not use this tag value for its own messages.
const TagIOReady uint32 = 0xFFFFFFFF

// Internal tags used for supervisor lifecycle messages. These occupy the
// rest of the high end of the tag space; a supervisor actor's mailbox is
// never addressed by arbitrary user code in practice, but user code that
// does route messages to a supervisor directly should avoid this range.
const (
	tagChildTerminated uint32 = 0xFFFFFFFE
	tagBackoffElapsed  uint32 = 0xFFFFFFFD
)

// tagStopRequest marks an ingress entry as a cross-thread stop/fail request
// rather than an ordinary message: localDeliver special-cases it instead of
// pushing it onto the target's mailbox. Message.Data carries which terminal
// status to apply (a single byte, see encodeStopRequest); see StopAsync and
// FailAsync.
const tagStopRequest uint32 = 0xFFFFFFFC

// Message is the unit of communication between actors. Data is an opaque
// byte region; ownership is the caller's by convention (see package doc) —
// the runtime never copies or frees it.
type Message struct {
	Data   []byte
	Tag    uint32
	Sender ID
}
