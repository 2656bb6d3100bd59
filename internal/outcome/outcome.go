// Package outcome classifies completed voice-AI calls into a fixed set of
// outcome categories. Classification is a pure function of the provider's
// ended reason, the transcript, the summary, and the call duration; it makes
// no external calls and holds no state.
package outcome

// Outcome is the classified result of a completed call.
type Outcome string

const (
	Booked        Outcome = "booked"
	Interested    Outcome = "interested"
	NotInterested Outcome = "not_interested"
	NoAnswer      Outcome = "no_answer"
	Voicemail     Outcome = "voicemail"
	NeedsReview   Outcome = "needs_review"
)

// String returns the outcome as its wire value.
func (o Outcome) String() string { return string(o) }

// Label returns a human-readable form for notifications.
func (o Outcome) Label() string {
	switch o {
	case Booked:
		return "Booked"
	case Interested:
		return "Interested"
	case NotInterested:
		return "Not Interested"
	case NoAnswer:
		return "No Answer"
	case Voicemail:
		return "Voicemail"
	case NeedsReview:
		return "Needs Review"
	default:
		return string(o)
	}
}
