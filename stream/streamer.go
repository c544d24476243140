// Package stream mirrors export progress onto MQTT topics and accepts export
// requests from the broker.
package stream

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/matt-g-everett/trailcast/config"
	"github.com/matt-g-everett/trailcast/export"
)

const (
	subscriberID   = "mqtt"
	eventBuffer    = 64
	publishTimeout = 10 * time.Second
)

// Client is the part of mqtt.Client used by the Streamer.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
}

// Exporter runs exports requested over MQTT.
type Exporter interface {
	Export(ctx context.Context, req export.Request) (*export.Artifact, error)
}

// Message is the JSON document published on the progress topic.
type Message struct {
	Kind     string  `json:"kind"`
	Session  string  `json:"session,omitempty"`
	Percent  float64 `json:"percent"`
	Message  string  `json:"message,omitempty"`
	Error    string  `json:"error,omitempty"`
	Filename string  `json:"filename,omitempty"`
	Bytes    int     `json:"bytes,omitempty"`
}

// Streamer publishes export events to MQTT.
type Streamer struct {
	client Client
	events *export.Broadcaster
	topics struct {
		progress string
		artifact string
		request  string
	}

	exporter Exporter
	defaults export.Request

	mu  sync.Mutex
	ctx context.Context
	log *logrus.Entry
}

// NewStreamer creates a Streamer publishing the events of b with client.
func NewStreamer(cfg config.Config, client Client, b *export.Broadcaster) *Streamer {
	s := &Streamer{
		client: client,
		events: b,
		ctx:    context.Background(),
		log:    logrus.WithField("component", "stream"),
	}
	s.topics.progress = cfg.Mqtt.Topics.Progress
	s.topics.artifact = cfg.Mqtt.Topics.Artifact
	s.topics.request = cfg.Mqtt.Topics.Request
	return s
}

// AcceptRequests lets messages on the request topic start exports on
// exporter, resolved over defaults. Call Subscribe afterwards.
func (s *Streamer) AcceptRequests(exporter Exporter, defaults export.Request) {
	s.exporter = exporter
	s.defaults = defaults
}

// Subscribe registers for export requests. It is called from the client's
// on-connect handler so the subscription survives reconnects.
func (s *Streamer) Subscribe() error {
	if s.exporter == nil || s.topics.request == "" {
		return nil
	}
	token := s.client.Subscribe(s.topics.request, 1, s.handleRequest)
	if !token.WaitTimeout(publishTimeout) {
		return errors.Errorf("timed out subscribing to %s", s.topics.request)
	}
	if err := token.Error(); err != nil {
		return errors.Wrapf(err, "failed to subscribe to %s", s.topics.request)
	}
	s.log.WithField("topic", s.topics.request).Info("Subscribed for export requests")
	return nil
}

// Run forwards events until ctx is done. Exports started from the request
// topic are cancelled with ctx.
func (s *Streamer) Run(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	ch := s.events.Subscribe(subscriberID, eventBuffer)
	defer s.events.Unsubscribe(subscriberID)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			s.forward(ev)
		}
	}
}

func (s *Streamer) forward(ev export.Event) {
	msg := Message{
		Kind:    ev.Kind.String(),
		Session: ev.Session,
		Percent: ev.Percent,
		Message: ev.Message,
	}
	if ev.Err != nil {
		msg.Error = ev.Err.Error()
	}
	if ev.Artifact != nil {
		msg.Filename = ev.Artifact.Filename
		msg.Bytes = ev.Artifact.Size()
	}

	if err := s.publishMessage(msg); err != nil {
		s.log.WithError(err).Warn("Failed to publish progress")
	}

	if ev.Kind == export.EventComplete && ev.Artifact != nil && s.topics.artifact != "" {
		if err := s.publish(s.topics.artifact, 1, ev.Artifact.Bytes()); err != nil {
			s.log.WithError(err).Error("Failed to publish artifact")
			return
		}
		s.log.WithFields(logrus.Fields{
			"session": ev.Session,
			"bytes":   ev.Artifact.Size(),
		}).Info("Published artifact")
	}
}

func (s *Streamer) handleRequest(_ mqtt.Client, m mqtt.Message) {
	s.log.WithField("topic", m.Topic()).Debug("Received export request")

	var params export.Params
	if err := json.Unmarshal(m.Payload(), &params); err != nil {
		s.reject(errors.Wrap(export.ErrInvalidRequest, err.Error()))
		return
	}
	req, err := params.Request(s.defaults)
	if err != nil {
		s.reject(err)
		return
	}

	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	go func() {
		_, err := s.exporter.Export(ctx, req)
		// Failures after the lease was taken arrive as events.
		if errors.Is(err, export.ErrInvalidRequest) || errors.Is(err, export.ErrExportInProgress) {
			s.reject(err)
		}
	}()
}

func (s *Streamer) reject(err error) {
	s.log.WithError(err).Warn("Export request rejected")
	if err := s.publishMessage(Message{Kind: export.EventFailed.String(), Error: err.Error()}); err != nil {
		s.log.WithError(err).Warn("Failed to publish rejection")
	}
}

func (s *Streamer) publishMessage(msg Message) error {
	if s.topics.progress == "" {
		return nil
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "failed to marshal progress message")
	}
	return s.publish(s.topics.progress, 0, b)
}

func (s *Streamer) publish(topic string, qos byte, payload []byte) error {
	token := s.client.Publish(topic, qos, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return errors.Errorf("timed out publishing to %s", topic)
	}
	return errors.Wrapf(token.Error(), "failed to publish to %s", topic)
}
