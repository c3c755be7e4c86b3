package driver

// Severity is the severity of a diagnostic message. Values are bit flags so
// a messenger can subscribe to several at once.
type Severity uint32

// Diagnostic severities, lowest first.
const (
	SeverityVerbose Severity = 1 << iota
	SeverityInfo
	SeverityWarning
	SeverityError
)

// String returns the severity name.
func (s Severity) String() string {
	switch s {
	case SeverityVerbose:
		return "verbose"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "mixed"
	}
}

// MessageType classifies a diagnostic message. Values are bit flags.
type MessageType uint32

// Diagnostic message types.
const (
	MessageTypeGeneral MessageType = 1 << iota
	MessageTypeValidation
	MessageTypePerformance
)

// Message is a diagnostic event raised by the backend.
type Message struct {
	Severity Severity
	Type     MessageType
	IDName   string
	IDNumber int32
	Text     string
}

// MessengerFunc receives diagnostic messages.
type MessengerFunc func(Message)

// MessengerDescriptor configures a diagnostic messenger.
type MessengerDescriptor struct {
	Severities Severity
	Types      MessageType
	Callback   MessengerFunc
}

// Accepts reports whether the descriptor subscribes to msg.
func (d *MessengerDescriptor) Accepts(msg Message) bool {
	return d.Severities&msg.Severity != 0 && d.Types&msg.Type != 0
}

// Messenger is an installed diagnostic callback handle.
type Messenger any
