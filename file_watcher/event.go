package file_watcher

// EventKind is the normalized kind of a filesystem change.
type EventKind int

const (
	EventAdd EventKind = iota
	EventChange
	EventUnlink
)

func (k EventKind) String() string {
	switch k {
	case EventAdd:
		return "add"
	case EventChange:
		return "change"
	case EventUnlink:
		return "unlink"
	default:
		return "unknown"
	}
}

// Event is a change reported for an absolute path.
type Event struct {
	Kind EventKind
	Path string
}

// EventSource delivers raw filesystem events.
type EventSource interface {
	Events() <-chan Event
	Errors() <-chan error
	Close() error
}
