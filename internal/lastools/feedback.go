package lastools

import (
	"fmt"
	"sync"

	"github.com/banshee-data/lasrun/internal/monitoring"
)

// Feedback receives progress and console output while tools run.
type Feedback interface {
	PushInfo(msg string)
	PushCommandInfo(msg string)
	PushConsoleInfo(msg string)
	PushWarning(msg string)
	ReportError(msg string)
}

// Level classifies a feedback message.
type Level string

const (
	LevelInfo    Level = "info"
	LevelCommand Level = "command"
	LevelConsole Level = "console"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// LogFeedback writes feedback through monitoring.Logf.
type LogFeedback struct {
	// Quiet drops console lines, keeping warnings and errors.
	Quiet bool
}

func (f LogFeedback) PushInfo(msg string)        { monitoring.Logf("[lastools] %s", msg) }
func (f LogFeedback) PushCommandInfo(msg string) { monitoring.Logf("[lastools] %s", msg) }
func (f LogFeedback) PushWarning(msg string)     { monitoring.Logf("[lastools] warning: %s", msg) }
func (f LogFeedback) ReportError(msg string)     { monitoring.Logf("[lastools] error: %s", msg) }

func (f LogFeedback) PushConsoleInfo(msg string) {
	if !f.Quiet {
		monitoring.Logf("  %s", msg)
	}
}

// Message is one captured feedback message.
type Message struct {
	Level Level
	Text  string
}

// CaptureFeedback records every message. It is safe for concurrent use.
type CaptureFeedback struct {
	// MaxConsole, when positive, keeps only the most recent console
	// lines. Other levels are always kept.
	MaxConsole int

	mu       sync.Mutex
	messages []Message
	console  int
	omitted  int
}

func (f *CaptureFeedback) push(level Level, msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, Message{Level: level, Text: msg})
	if level != LevelConsole {
		return
	}
	f.console++
	if f.MaxConsole > 0 && f.console >= 2*f.MaxConsole {
		f.dropConsole(f.console - f.MaxConsole)
	}
}

// dropConsole removes the n oldest console lines. f.mu must be held.
func (f *CaptureFeedback) dropConsole(n int) {
	kept := f.messages[:0]
	for _, m := range f.messages {
		if n > 0 && m.Level == LevelConsole {
			n--
			f.console--
			f.omitted++
			continue
		}
		kept = append(kept, m)
	}
	clear(f.messages[len(kept):])
	f.messages = kept
}

func (f *CaptureFeedback) PushInfo(msg string)        { f.push(LevelInfo, msg) }
func (f *CaptureFeedback) PushCommandInfo(msg string) { f.push(LevelCommand, msg) }
func (f *CaptureFeedback) PushConsoleInfo(msg string) { f.push(LevelConsole, msg) }
func (f *CaptureFeedback) PushWarning(msg string)     { f.push(LevelWarning, msg) }
func (f *CaptureFeedback) ReportError(msg string)     { f.push(LevelError, msg) }

// Messages returns a copy of the captured messages. When console lines
// were dropped, the copy starts with an info message counting them.
func (f *CaptureFeedback) Messages() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.MaxConsole > 0 && f.console > f.MaxConsole {
		f.dropConsole(f.console - f.MaxConsole)
	}
	out := make([]Message, 0, len(f.messages)+1)
	if f.omitted > 0 {
		out = append(out, Message{Level: LevelInfo, Text: fmt.Sprintf("%d earlier console line(s) omitted", f.omitted)})
	}
	return append(out, f.messages...)
}

// Texts returns the text of every captured message at level.
func (f *CaptureFeedback) Texts(level Level) []string {
	var out []string
	for _, m := range f.Messages() {
		if m.Level == level {
			out = append(out, m.Text)
		}
	}
	return out
}

// Tee forwards every message to each sink.
func Tee(sinks ...Feedback) Feedback { return tee(sinks) }

type tee []Feedback

func (t tee) PushInfo(msg string) {
	for _, s := range t {
		s.PushInfo(msg)
	}
}

func (t tee) PushCommandInfo(msg string) {
	for _, s := range t {
		s.PushCommandInfo(msg)
	}
}

func (t tee) PushConsoleInfo(msg string) {
	for _, s := range t {
		s.PushConsoleInfo(msg)
	}
}

func (t tee) PushWarning(msg string) {
	for _, s := range t {
		s.PushWarning(msg)
	}
}

func (t tee) ReportError(msg string) {
	for _, s := range t {
		s.ReportError(msg)
	}
}
