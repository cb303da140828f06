// internal/relay/reply.go
package relay

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Replies shorter than this may answer a visit confirmation request.
const maxConfirmationLen = 50

var (
	negativeWords = []string{"não", "nao", "cancela", "cancelar"}
	positiveWords = []string{"sim", "confirmo", "confirmar", "vou", "irei"}

	selectionWords   = []string{"esse", "este", "aquele", "ali", "aí"}
	interestWords    = []string{"quero", "gostei", "interessei", "gosto", "prefiro", "escolho"}
	scheduleWords    = []string{"agendar", "visita", "visitar", "ver", "conhecer", "marcar", "quando"}
	moreOptionsWords = []string{"outro", "outros", "outra", "outras", "mais", "diferente", "opcoes", "opções"}

	scoreRe = regexp.MustCompile(`\b([1-5])\b`)
)

const (
	IntentSchedule = "schedule"
	IntentInterest = "interest"
	IntentNone     = "none"
)

func words(text string) map[string]bool {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		set[f] = true
	}
	return set
}

func hasAny(set map[string]bool, list []string) bool {
	for _, w := range list {
		if set[w] {
			return true
		}
	}
	return false
}

// ConfirmationAnswer classifies a reply to a visit confirmation request. ok
// is false when text does not look like an answer. A negative word wins over
// a positive one ("não vou").
func ConfirmationAnswer(text string) (confirmed, ok bool) {
	text = strings.TrimSpace(text)
	if len([]rune(text)) >= maxConfirmationLen {
		return false, false
	}
	set := words(text)
	switch {
	case hasAny(set, negativeWords):
		return false, true
	case hasAny(set, positiveWords):
		return true, true
	}
	return false, false
}

// FeedbackScore finds a standalone 1-5 digit in text.
func FeedbackScore(text string) (int, bool) {
	m := scoreRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	n, _ := strconv.Atoi(m[1])
	return n, true
}

// DetectIntent tags a lead message as scheduling, interest or neither.
func DetectIntent(text string) string {
	set := words(text)
	if !hasAny(set, selectionWords) && !hasAny(set, interestWords) {
		if hasAny(set, []string{"agendar", "visitar", "marcar"}) {
			return IntentSchedule
		}
		return IntentNone
	}
	if hasAny(set, moreOptionsWords) {
		return IntentNone
	}
	if hasAny(set, scheduleWords) {
		return IntentSchedule
	}
	return IntentInterest
}

const (
	thinkMin       = 1500 * time.Millisecond
	thinkMax       = 4 * time.Second
	charsPerSecond = 6.0
	minDelay       = 2 * time.Second
	maxDelay       = 12 * time.Second
)

// HumanDelay is how long a person would take to read and type reply. rnd
// returns values in [0, 1).
func HumanDelay(reply string, rnd func() float64) time.Duration {
	think := thinkMin + time.Duration(rnd()*float64(thinkMax-thinkMin))
	typing := float64(len([]rune(reply))) / charsPerSecond * (0.8 + 0.4*rnd())
	d := think + time.Duration(typing*float64(time.Second))

	if d < minDelay {
		return minDelay
	}
	if d > maxDelay {
		return maxDelay
	}
	return d
}
