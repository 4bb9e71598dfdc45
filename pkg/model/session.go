package model

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

type (
	SessionIdentifier string
	EventFormat       string
)

const (
	FreePractice1    SessionIdentifier = "FP1"
	FreePractice2    SessionIdentifier = "FP2"
	FreePractice3    SessionIdentifier = "FP3"
	Qualifying       SessionIdentifier = "Q"
	Sprint           SessionIdentifier = "S"
	SprintQualifying SessionIdentifier = "SQ"
	Race             SessionIdentifier = "R"
)

const (
	EventFormatConventional     EventFormat = "conventional"
	EventFormatSprintQualifying EventFormat = "sprint_qualifying"
)

// session status labels as emitted by the data provider
const (
	SessionStatusStarted   = "Started"
	SessionStatusFinalised = "Finalised"
	SessionStatusEnds      = "Ends"
)

// Sessions returns the session identifiers available for an event format
func (f EventFormat) Sessions() []SessionIdentifier {
	switch f {
	case EventFormatConventional:
		return []SessionIdentifier{
			FreePractice1, FreePractice2, FreePractice3, Qualifying, Race,
		}
	case EventFormatSprintQualifying:
		return []SessionIdentifier{
			FreePractice1, SprintQualifying, Sprint, Qualifying, Race,
		}
	default:
		return nil
	}
}

// SessionSelection identifies the session to be replayed.
// It is passed by value and never changed once a pipeline run has started.
type SessionSelection struct {
	Year    int               `json:"year" yaml:"year"`
	Event   string            `json:"event" yaml:"event"`
	Session SessionIdentifier `json:"session" yaml:"session"`
}

func (s SessionSelection) String() string {
	return fmt.Sprintf("%d %s %s", s.Year, s.Event, s.Session)
}

// Key returns a representation usable as cache key or messaging subject token.
// Example: "2024.bahrain-grand-prix.r"
func (s SessionSelection) Key() string {
	event := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		case r == ' ', r == '-', r == '_':
			return '-'
		default:
			return -1
		}
	}, s.Event)
	return fmt.Sprintf("%d.%s.%s", s.Year, event, strings.ToLower(string(s.Session)))
}

// Validate checks the selection against the sessions of the event format.
// An empty format skips the session check.
func (s SessionSelection) Validate(format EventFormat) error {
	if s.Year < 2018 {
		return fmt.Errorf("year %d not supported", s.Year)
	}
	if strings.TrimSpace(s.Event) == "" {
		return fmt.Errorf("event must not be empty")
	}
	if format == "" {
		return nil
	}
	if !slices.Contains(format.Sessions(), s.Session) {
		return fmt.Errorf("session %q not available for event format %s",
			s.Session, format)
	}
	return nil
}

type SessionStatus struct {
	Time   time.Duration `json:"time"`
	Status string        `json:"status"`
}

// TrackStatusEntry marks the begin of a track status.
// The entry is valid until the next entry.
type TrackStatusEntry struct {
	Time    time.Duration `json:"time"`
	Status  string        `json:"status"`
	Message string        `json:"message"`
}

type SessionInfo struct {
	Selection    SessionSelection   `json:"selection"`
	Format       EventFormat        `json:"format"`
	TotalLaps    int                `json:"totalLaps"`
	StatusEvents []SessionStatus    `json:"statusEvents"`
	TrackStatus  []TrackStatusEntry `json:"trackStatus"`
}

// StartTime returns the time of the first "Started" event
func (s *SessionInfo) StartTime() (time.Duration, bool) {
	idx := slices.IndexFunc(s.StatusEvents, func(e SessionStatus) bool {
		return e.Status == SessionStatusStarted
	})
	if idx == -1 {
		return 0, false
	}
	return s.StatusEvents[idx].Time, true
}

// EndTime returns the time of the last "Finalised" event.
// If there is none the last "Ends" event is used.
func (s *SessionInfo) EndTime() (time.Duration, bool) {
	for _, label := range []string{SessionStatusFinalised, SessionStatusEnds} {
		for i := len(s.StatusEvents) - 1; i >= 0; i-- {
			if s.StatusEvents[i].Status == label {
				return s.StatusEvents[i].Time, true
			}
		}
	}
	return 0, false
}

// SessionInput bundles everything the pipeline needs for one session
type SessionInput struct {
	Info      SessionInfo       `json:"info"`
	Drivers   []Driver          `json:"drivers"`
	Laps      []RawLap          `json:"laps"`
	Positions []DriverPositions `json:"positions"`
}
