package session

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/artur/fetchbot/internal/extractor"
)

func TestSafeName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"clean name passes", "My Video.mp4", "My Video.mp4"},
		{"path separators stripped", `..\..\evil/name.mp4`, "....evilname.mp4"},
		{"reserved chars stripped", `what? "is": this|.mp4`, "what is this.mp4"},
		{"whitespace collapsed", "a   b\t c.mp4", "a b c.mp4"},
		{"empty falls back", `\/:*?"<>|`, "file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SafeName(tt.input); got != tt.want {
				t.Errorf("SafeName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestEffectiveName(t *testing.T) {
	s := New(1, 1, "https://example.com/v")
	s.Filename = "original.mp4"
	if got := s.EffectiveName(); got != "original.mp4" {
		t.Errorf("EffectiveName() = %q", got)
	}
	s.SetCustomName("renamed.mp4")
	if got := s.EffectiveName(); got != "renamed.mp4" {
		t.Errorf("EffectiveName() after rename = %q", got)
	}
}

func TestClaimIsExclusive(t *testing.T) {
	s := New(1, 1, "https://example.com/v")

	if !s.Claim() {
		t.Fatal("first Claim should succeed")
	}
	if s.Claim() {
		t.Error("second Claim should fail")
	}
	if s.State() != StateTerminal {
		t.Errorf("State() = %v, want StateTerminal", s.State())
	}
}

func TestClaimUnderContention(t *testing.T) {
	s := New(1, 1, "https://example.com/v")
	s.AwaitQuality()

	var wg sync.WaitGroup
	var wins int32
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Claim() {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("%d goroutines claimed the session, want exactly 1", wins)
	}
}

func TestAcceptsRenameReply(t *testing.T) {
	s := New(1, 1, "https://example.com/v")

	if s.AcceptsRenameReply(42) {
		t.Error("should not accept replies before the rename prompt")
	}

	s.AwaitRename(42)
	if !s.AcceptsRenameReply(42) {
		t.Error("should accept a reply to the rename prompt")
	}
	if s.AcceptsRenameReply(43) {
		t.Error("should reject replies to other messages")
	}
}

func TestFormatByID(t *testing.T) {
	s := New(1, 1, "https://example.com/v")
	s.Formats = []extractor.Format{
		{ID: "137", Height: 1080},
		{ID: "22", Height: 720},
	}

	if f := s.FormatByID("22"); f == nil || f.Height != 720 {
		t.Errorf("FormatByID(22) = %+v", f)
	}
	if f := s.FormatByID("999"); f != nil {
		t.Errorf("FormatByID(999) = %+v, want nil", f)
	}
}

func TestRegistryReplacesPendingSession(t *testing.T) {
	r := NewRegistry()

	first := New(1, 100, "https://example.com/a")
	second := New(1, 100, "https://example.com/b")
	r.Put(first)
	r.Put(second)

	if got := r.Get(100); got != second {
		t.Error("newer session should replace the pending one")
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}

	r.Remove(100)
	if r.Get(100) != nil {
		t.Error("removed session still present")
	}
}

func TestRemoveIfSparesSuccessor(t *testing.T) {
	r := NewRegistry()

	old := New(1, 100, "https://example.com/a")
	r.Put(old)

	// A new link replaces the pending session while old's download finishes.
	successor := New(1, 100, "https://example.com/b")
	r.Put(successor)

	r.RemoveIf(100, old)
	if r.Get(100) != successor {
		t.Error("cleanup of the finished session evicted its successor")
	}

	r.RemoveIf(100, successor)
	if r.Get(100) != nil {
		t.Error("RemoveIf should drop the session it was given")
	}
}

func TestRegistryIsolatesChats(t *testing.T) {
	r := NewRegistry()
	a := New(1, 100, "https://example.com/a")
	b := New(2, 200, "https://example.com/b")
	r.Put(a)
	r.Put(b)

	if r.Get(100) != a || r.Get(200) != b {
		t.Error("sessions leaked across chats")
	}
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := int64(0); i < 50; i++ {
		wg.Add(1)
		go func(chatID int64) {
			defer wg.Done()
			r.Put(New(chatID, chatID, "https://example.com"))
			r.Get(chatID)
			r.Remove(chatID)
		}(i)
	}
	wg.Wait()

	if r.Len() != 0 {
		t.Errorf("Len() = %d after removals, want 0", r.Len())
	}
}
