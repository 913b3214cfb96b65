package bridge

// Commands understood by the display engine.
const (
	CmdEcho               = "echo"
	CmdQueryPassedSeconds = "query passed seconds"
	CmdChangeColumns      = "change columns"
	CmdAppendCueSequence  = "append cue sequence"
	CmdConsumeCue         = "consume cue"
)

// Reply statuses.
const (
	StatusSuccess = "Success"
	StatusFail    = "Fail"
)

// Message is the JSON frame exchanged between the gateway and the display
// engine. A request carries Cmd plus its arguments; the reply echoes the
// request fields and adds status, result and timing information. SentAt and
// ReceivedAt are stamped by the calling side around the round-trip.
type Message struct {
	Cmd     string `json:"cmd"`
	Body    string `json:"body,omitempty"`
	Text    string `json:"text,omitempty"`
	Columns int    `json:"columns,omitempty"`

	Status   string   `json:"status,omitempty"`
	Error    string   `json:"error,omitempty"`
	Passed   float64  `json:"passed"`
	Sequence []string `json:"sequence,omitempty"`

	// Timestamp is the display-side wall clock (Unix seconds) at reply time.
	// The timing fields stay on the wire even when zero; a display queried
	// at its epoch still reports passed and timestamp keys.
	Timestamp float64 `json:"timestamp"`

	SentAt     float64 `json:"_send"`
	ReceivedAt float64 `json:"_received"`
}

// Ok reports whether the reply carries a success status.
func (m Message) Ok() bool {
	return m.Status == StatusSuccess
}
