package export

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Lease grants exclusive use of the renderer to a single export session.
type Lease struct {
	held atomic.Bool
}

var processLease Lease

// Acquire takes the lease or fails with ErrExportInProgress. It never waits.
func (l *Lease) Acquire() (*Session, error) {
	if !l.held.CompareAndSwap(false, true) {
		return nil, ErrExportInProgress
	}
	return &Session{ID: uuid.NewString(), lease: l}, nil
}

// Held reports whether a session currently holds the lease.
func (l *Lease) Held() bool {
	return l.held.Load()
}

// Session is the transient state of one export. It owns the renderer's
// playback cursor and the control overlay until Release.
type Session struct {
	ID string

	lease   *Lease
	release sync.Once
	restore sync.Once

	renderer        Renderer
	controls        Controls
	wasPlaying      bool
	controlsVisible bool
}

// takeOver records the renderer and overlay state, then pauses playback and
// hides the overlay.
func (s *Session) takeOver(r Renderer, c Controls) {
	s.renderer = r
	s.controls = c

	s.wasPlaying = r.IsPlaying()
	r.Pause()

	if c != nil {
		s.controlsVisible = c.ControlsVisible()
		c.SetControlsVisible(false)
	}
}

// handBack restores what takeOver changed. Only the first call has effect.
func (s *Session) handBack() {
	s.restore.Do(func() {
		if s.renderer == nil {
			return
		}
		if s.controls != nil {
			s.controls.SetControlsVisible(s.controlsVisible)
		}
		if s.wasPlaying {
			s.renderer.Play()
		}
	})
}

// Release returns the lease. Only the first call has effect.
func (s *Session) Release() {
	s.release.Do(func() {
		s.lease.held.Store(false)
	})
}
