// Package session tracks the per-chat conversation state between receiving a
// link and completing (or abandoning) its download.
package session

import (
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/artur/fetchbot/internal/extractor"
)

// Kind tells which acquisition path the link resolved to.
type Kind int

const (
	// KindDirect is a link the prober identified as a downloadable file.
	KindDirect Kind = iota
	// KindExtracted is a page an extraction engine listed formats for.
	KindExtracted
)

// State is the conversation step the session waits on.
type State int

const (
	// StateAwaitingNameChoice waits for keep-name / rename.
	StateAwaitingNameChoice State = iota
	// StateAwaitingNewName waits for the user's reply with a new file name.
	StateAwaitingNewName
	// StateAwaitingQualityChoice waits for a format pick.
	StateAwaitingQualityChoice
	// StateTerminal marks a session whose download has started.
	StateTerminal
)

// Session is one pending download conversation. A chat holds at most one; a
// new link replaces whatever was pending. The descriptive fields are written
// once before the session is published to the registry; the conversation
// state is mutex-guarded because updates arrive on separate goroutines.
type Session struct {
	UserID int64
	ChatID int64
	URL    string
	Kind   Kind

	Title        string
	Filename     string
	ProbedSize   int64
	ContentType  string
	ThumbnailURL string
	DurationSec  float64
	Formats      []extractor.Format

	CreatedAt time.Time

	mu             sync.Mutex
	state          State
	customName     string
	renamePromptID int
}

// New starts a session in the name-choice step.
func New(userID, chatID int64, url string) *Session {
	return &Session{
		UserID:    userID,
		ChatID:    chatID,
		URL:       url,
		state:     StateAwaitingNameChoice,
		CreatedAt: time.Now(),
	}
}

// State returns the conversation step the session currently waits on.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Claim transitions the session into the terminal step exactly once. A false
// return means another goroutine already owns the download.
func (s *Session) Claim() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateTerminal {
		return false
	}
	s.state = StateTerminal
	return true
}

// AwaitQuality moves to the format-pick step.
func (s *Session) AwaitQuality() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateAwaitingQualityChoice
}

// AwaitRename moves to the new-name step, remembering which prompt message
// the reply must target.
func (s *Session) AwaitRename(promptID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateAwaitingNewName
	s.renamePromptID = promptID
}

// AcceptsRenameReply reports whether a reply to replyToID is the rename
// answer this session is waiting for.
func (s *Session) AcceptsRenameReply(replyToID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateAwaitingNewName && replyToID == s.renamePromptID
}

// SetCustomName records the user's chosen file name.
func (s *Session) SetCustomName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customName = name
}

// EffectiveName is the file name the download will carry, preferring the
// user's rename over the discovered one.
func (s *Session) EffectiveName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.customName != "" {
		return s.customName
	}
	return s.Filename
}

// FormatByID returns the discovered format with the given ID, or nil.
func (s *Session) FormatByID(id string) *extractor.Format {
	for i := range s.Formats {
		if s.Formats[i].ID == id {
			return &s.Formats[i]
		}
	}
	return nil
}

var unsafeNameChars = regexp.MustCompile(`[\\/:*?"<>|]`)

// SafeName strips path separators and characters most filesystems reject,
// collapsing whitespace runs. Empty results fall back to "file".
func SafeName(name string) string {
	name = unsafeNameChars.ReplaceAllString(name, "")
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return "file"
	}
	return name
}
