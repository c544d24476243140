package mapview

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Player advances a Map's cursor in real time while it is playing.
type Player struct {
	m     *Map
	tick  time.Duration
	speed float64
	log   *logrus.Entry
}

// NewPlayer creates a Player that moves the cursor by tick*speed of activity
// time on every tick.
func NewPlayer(m *Map, tick time.Duration, speed float64) *Player {
	return &Player{
		m:     m,
		tick:  tick,
		speed: speed,
		log:   logrus.WithField("component", "player"),
	}
}

// Step returns how far the cursor moves per tick.
func (p *Player) Step() time.Duration {
	return time.Duration(float64(p.tick) * p.speed)
}

// Run ticks until ctx is done. A paused map ignores the ticks.
func (p *Player) Run(ctx context.Context) error {
	p.log.WithFields(logrus.Fields{"tick": p.tick, "step": p.Step()}).Info("Playback started")

	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			p.log.Info("Playback stopped")
			return ctx.Err()
		case <-ticker.C:
			p.m.advance(p.Step())
		}
	}
}
