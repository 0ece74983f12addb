package perception

import (
	"sync"
	"time"
)

// ScriptFrame is one entry in a scripted detection stream.
type ScriptFrame struct {
	After   time.Duration // offset from Start at which this frame becomes current
	Det     Detection     // detection to report (timestamp filled at Start)
	Present bool          // false simulates "nothing detected"
}

// ScriptSource replays a scripted detection stream. It is used by
// cmd/simulate and by tests that need a deterministic camera stand-in.
type ScriptSource struct {
	mu     sync.Mutex
	frames []ScriptFrame
	t0     time.Time
}

// NewScriptSource builds a source from frames ordered by After offset.
func NewScriptSource(frames []ScriptFrame) *ScriptSource {
	return &ScriptSource{frames: frames}
}

// Start anchors the script to the current wall clock and stamps each
// frame's detection at its activation time.
func (s *ScriptSource) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.t0 = time.Now()
	for i := range s.frames {
		s.frames[i].Det.Timestamp = s.t0.Add(s.frames[i].After)
	}
}

// Latest returns the most recently activated frame's detection.
func (s *ScriptSource) Latest() (Detection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.t0.IsZero() {
		return Detection{}, false
	}

	elapsed := time.Since(s.t0)
	var cur *ScriptFrame
	for i := range s.frames {
		if s.frames[i].After <= elapsed {
			cur = &s.frames[i]
		} else {
			break
		}
	}
	if cur == nil || !cur.Present {
		return Detection{}, false
	}
	return cur.Det, true
}
