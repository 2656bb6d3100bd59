package outcome

import "strings"

// The classifier is an ordered rule cascade; the first matching rule wins.
// Hard provider signals come first, then explicit customer language, then a
// duration fallback for calls that carried no textual signal. Decline
// detection deliberately precedes booking detection so an explicit "not
// interested" cannot be overridden by incidental booking keywords.

// noAnswerReasons are provider ended-reason codes meaning the customer was
// never reached.
var noAnswerReasons = []string{
	"customer-did-not-answer",
	"customer-busy",
	"no-answer",
	"twilio-failed-to-connect-call",
	"dial-busy",
	"dial-no-answer",
	"dial-failed",
}

// declinePhrases are explicit negative signals from the customer.
var declinePhrases = []string{
	"not interested",
	"no thank",
	"don't call",
	"do not call",
	"stop calling",
	"remove me",
	"take me off",
	"hang up",
	"bad time",
	"wrong number",
}

// bookingKeywords alone are too weak to conclude a booking; the agent may
// merely offer to book. A second, independent confirmation signal is required.
var bookingKeywords = []string{
	"book",
	"appointment",
	"schedule",
	"confirmed",
}

// timeTokens confirm a concrete time was agreed.
var timeTokens = []string{
	"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
	"tomorrow",
	"pm",
	"o'clock",
	"at 1", "at 2", "at 3", "at 4", "at 5", "at 6",
	"at 7", "at 8", "at 9", "at 10", "at 11", "at 12",
}

// summaryBookedTokens indicate the provider's summary independently states a booking.
var summaryBookedTokens = []string{"booked", "confirmed", "scheduled"}

// confirmationWords are generic positive confirmations paired with "appointment"
// in the summary.
var confirmationWords = []string{"yes", "sure", "okay", "perfect", "great"}

// interestPhrases are soft positive signals.
var interestPhrases = []string{
	"interested",
	"tell me more",
	"more information",
	"how much",
	"pricing",
	"price",
	"send me info",
	"call me back",
	"call back",
	"think about it",
}

// Duration fallback boundaries, in seconds.
const (
	engagedDuration = 120
	shortDuration   = 30
)

// Classify maps a completed call to exactly one Outcome. It is total and
// deterministic: identical inputs always produce the identical outcome.
func Classify(endedReason, transcript, summary string, durationSeconds int) Outcome {
	reason := strings.ToLower(strings.TrimSpace(endedReason))
	text := strings.ToLower(transcript + " " + summary)
	loweredSummary := strings.ToLower(summary)

	// 1. Provider no-answer codes.
	for _, code := range noAnswerReasons {
		if reason == code {
			return NoAnswer
		}
	}

	// 2. Voicemail, from either the ended reason or the call text.
	if reason == "voicemail" || strings.Contains(text, "voicemail") {
		return Voicemail
	}

	// 3. Explicit decline. Checked before booking so a decline that happens
	// to mention an appointment still classifies as not interested.
	for _, phrase := range declinePhrases {
		if strings.Contains(text, phrase) {
			return NotInterested
		}
	}

	// 4. Booking: keyword plus an independent confirmation signal.
	if containsAny(text, bookingKeywords) {
		if containsAny(text, timeTokens) ||
			containsAny(loweredSummary, summaryBookedTokens) ||
			(strings.Contains(loweredSummary, "appointment") && containsAny(loweredSummary, confirmationWords)) {
			return Booked
		}
	}

	// 5. Soft interest, unless the text also carries the literal decline.
	if containsAny(text, interestPhrases) && !strings.Contains(text, "not interested") {
		return Interested
	}

	// 6. Duration fallback: no textual signal at all.
	switch {
	case durationSeconds > engagedDuration:
		return Interested
	case durationSeconds > shortDuration:
		return NeedsReview
	default:
		return NotInterested
	}
}

func containsAny(haystack string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(haystack, needle) {
			return true
		}
	}
	return false
}
