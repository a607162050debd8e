package chatctx

// Status says why a section has the text it has.
type Status int

const (
	// StatusEmpty means the lookup succeeded but found nothing, or was not attempted.
	StatusEmpty Status = iota
	// StatusAvailable means Text holds rendered content.
	StatusAvailable
	// StatusUnavailable means the store failed and the section degraded to "".
	StatusUnavailable
)

func (s Status) String() string {
	switch s {
	case StatusAvailable:
		return "available"
	case StatusUnavailable:
		return "unavailable"
	default:
		return "empty"
	}
}

// Section is one rendered block of prompt context. Text is "" unless Status
// is StatusAvailable.
type Section struct {
	Text   string
	Status Status
}

func (s Section) Available() bool { return s.Status == StatusAvailable }

// Degraded reports whether the section is empty because of a store failure.
func (s Section) Degraded() bool { return s.Status == StatusUnavailable }
