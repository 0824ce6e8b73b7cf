package clientsync

import (
	"errors"
	"time"

	"github.com/tahcohcat/gamify-web/internal/progression"
)

// Notice is a short message shown after a failed request.
type Notice struct {
	Kind  progression.Kind
	Text  string
	Until time.Time
}

// NoticeText picks the message for err. Already-completed keeps the
// server's wording since it says which period was claimed.
func NoticeText(err error) string {
	var perr *progression.Error
	hasMessage := errors.As(err, &perr) && perr.Message != ""

	switch progression.KindOf(err) {
	case progression.KindUnauthenticated:
		return "Please log in to keep your progress"
	case progression.KindInvalidAmount:
		return "That action could not be recorded"
	case progression.KindInvalidQuestType:
		if hasMessage {
			return perr.Message
		}
		return "Unknown quest"
	case progression.KindAlreadyCompleted:
		if hasMessage {
			return perr.Message
		}
		return "Quest already claimed"
	case progression.KindTransientFailure:
		return "Connection problem, please try again"
	case progression.KindInvariantViolation:
		return "Something is wrong with your progress. Please contact support"
	default:
		return "Something went wrong, please retry"
	}
}
