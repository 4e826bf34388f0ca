package headshape

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// publishTimeout bounds how long a state publish may block the event path.
const publishTimeout = 5 * time.Second

// Publisher pushes session state updates to MQTT so external viewers can
// re-render after every mutation. It is normally wired as a session observer.
type Publisher struct {
	client        mqtt.Client
	publishPrefix string
	qos           byte
	retain        bool
	last          *Snapshot
	mu            sync.RWMutex
}

// NewPublisher creates a session-state publisher. If client is nil,
// publishing is disabled (for testing).
func NewPublisher(client mqtt.Client) *Publisher {
	prefix := os.Getenv("MQTT_PUBLISH_PREFIX")
	if prefix == "" {
		prefix = "headmesh"
	}

	return &Publisher{
		client:        client,
		publishPrefix: prefix,
		qos:           0,    // state updates are fire and forget
		retain:        true, // retain the latest state for late joiners
	}
}

// SetPrefix overrides the publish prefix (normally from config).
func (p *Publisher) SetPrefix(prefix string) {
	if prefix != "" {
		p.publishPrefix = prefix
	}
}

// PublishState publishes a session snapshot to <prefix>/points.
func (p *Publisher) PublishState(snap Snapshot) error {
	if p.client == nil || !p.client.IsConnected() {
		return fmt.Errorf("MQTT client not connected")
	}

	p.mu.Lock()
	p.last = &snap
	p.mu.Unlock()

	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	topic := p.publishPrefix + "/points"
	token := p.client.Publish(topic, p.qos, p.retain, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish to %s timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

// Observer returns a session observer that publishes each snapshot and logs
// failures instead of propagating them into the mutation path.
func (p *Publisher) Observer() Observer {
	return func(snap Snapshot) {
		if err := p.PublishState(snap); err != nil {
			log.Printf("Error publishing session state: %v", err)
		}
	}
}

// LastPublished returns the most recently published snapshot, or nil.
func (p *Publisher) LastPublished() *Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.last == nil {
		return nil
	}
	snap := *p.last
	return &snap
}
