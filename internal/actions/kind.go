package actions

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownAction is returned by ParseKind for names that are not actions.
var ErrUnknownAction = errors.New("unknown action")

// Kind names an assistant action.
type Kind string

const (
	KindAnalyze   Kind = "analyze"
	KindSummarize Kind = "summarize"
	KindReply     Kind = "reply"
	KindTranslate Kind = "translate"
	KindCalendar  Kind = "calendar"
	KindCustom    Kind = "custom"
)

// Kinds lists all actions in menu order.
func Kinds() []Kind {
	return []Kind{KindAnalyze, KindSummarize, KindReply, KindTranslate, KindCalendar, KindCustom}
}

// ParseKind resolves an action name, case-insensitively.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds() {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
}
