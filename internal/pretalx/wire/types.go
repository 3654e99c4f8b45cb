// Package wire declares the value objects exchanged with the upstream
// conference-management API, modeled on pytanis's pydantic models
// (pretalx/models.py, read indirectly through client.py's usage).
package wire

import "time"

// MultiLingualString maps a language tag to a display string. The
// upstream always sends an "en" key by convention, but callers should
// not assume it is the only one present.
type MultiLingualString map[string]string

// En returns the "en" entry, or the empty string if absent.
func (m MultiLingualString) En() string {
	return m["en"]
}

// Equal reports structural equality, matching spec.md §3's invariant
// that MultiLingualString equality is structural rather than identity.
func (m MultiLingualString) Equal(other MultiLingualString) bool {
	if len(m) != len(other) {
		return false
	}
	for k, v := range m {
		if other[k] != v {
			return false
		}
	}
	return true
}

// SubmissionState enumerates a proposal's lifecycle state.
type SubmissionState string

const (
	StateSubmitted  SubmissionState = "submitted"
	StateAccepted   SubmissionState = "accepted"
	StateConfirmed  SubmissionState = "confirmed"
	StateRejected   SubmissionState = "rejected"
	StateWithdrawn  SubmissionState = "withdrawn"
	StateCanceled   SubmissionState = "canceled"
	StateDeleted    SubmissionState = "deleted"
)

// Ref is an unresolved identifier reference to an auxiliary entity. Full
// is the corresponding resolved record. Exactly one of (ID, Name) vs the
// full record carrying the same data is populated per spec.md §9's
// "Ref(id) | Full(record)" variant.
type Ref struct {
	ID   int
	Name MultiLingualString
}

// Resolved reports whether a Name was ever attached, i.e. expansion ran.
func (r Ref) Resolved() bool {
	return r.Name != nil
}

// Proposal is a talk submission in any lifecycle state (spec.md §3).
type Proposal struct {
	Code            string
	Title           string
	Abstract        string
	Description     string
	SubmissionType  Ref
	Track           *Ref // nullable
	State           SubmissionState
	PendingState    *SubmissionState
	DurationMinutes int
	Speakers        []SpeakerRef
	AnswerIDs       []int
	Answers         []Answer // populated only when expansion ran
	Created         time.Time
	URLs            map[string]string
	IsFeatured      bool
	Resources       []int // opaque; no detail endpoint exists upstream
}

// SpeakerRef is the nested speaker view embedded in a Proposal once the
// client has expanded the bare code the wire sends.
type SpeakerRef struct {
	Code string
	Name string
}

// Speaker is a conference speaker profile (spec.md §3).
type Speaker struct {
	Code         string
	Name         string
	Biography    string
	AvatarURL    string
	Proposals    []string
	AnswerIDs    []int
	Answers      []Answer
	Availability []AvailabilityWindow
}

// AvailabilityWindow is an open time range a speaker or room is free.
type AvailabilityWindow struct {
	Start time.Time
	End   time.Time
}

// Review is one reviewer's assessment of one proposal (spec.md §3).
type Review struct {
	ID             int
	ProposalCode   string
	ReviewerUser   string
	Score          *float64
	Text           string
	Created        time.Time
	Updated        time.Time
}

// Room is a physical or virtual talk venue (spec.md §3).
type Room struct {
	ID           int
	Name         MultiLingualString
	Capacity     int
	Availability []AvailabilityWindow
}

// SubmissionType names a kind of proposal (talk, workshop, ...).
type SubmissionType struct {
	ID   int
	Name MultiLingualString
}

// Track names a proposal's topical grouping.
type Track struct {
	ID   int
	Name MultiLingualString
}

// Tag is a free-form proposal label.
type Tag struct {
	Tag         string
	Description MultiLingualString
}

// QuestionTarget names what a Question is asked about.
type QuestionTarget string

const (
	TargetProposal QuestionTarget = "submission"
	TargetSpeaker  QuestionTarget = "speaker"
	TargetReview   QuestionTarget = "reviewer"
)

// Question is a custom form field attached to proposals, speakers, or
// reviews.
type Question struct {
	ID      int
	Prompt  MultiLingualString
	Target  QuestionTarget
	Options []Option
}

// Option is one choice of a closed-set Question.
type Option struct {
	ID   int
	Text MultiLingualString
}

// QuestionRef is the nested question view embedded in an expanded
// Answer, mirroring client.py's `{'id': ..., 'question': ...}` shape.
type QuestionRef struct {
	ID       int
	Question MultiLingualString
}

// Answer binds a Question to a target record with a value.
type Answer struct {
	ID        int
	Question  QuestionRef
	Target    QuestionTarget
	Value     string
	OptionIDs []int
}

// Me is the authenticated user's profile, returned by the upstream's
// "me" endpoint (spec.md §6).
type Me struct {
	Code  string
	Name  string
	Email string
}

// Event describes one conference instance.
type Event struct {
	Slug string
	Name MultiLingualString
}
