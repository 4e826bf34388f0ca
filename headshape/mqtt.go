package headshape

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// PickHandler is called when the external 3-D viewer publishes a pick event.
// The index is zero-based into the rendered visible set, or -1 for "no hit".
type PickHandler func(visibleIndex int)

// ResolutionHandler is called when a resolution change arrives over MQTT.
type ResolutionHandler func(resolutionMM int)

// MQTTClient manages the MQTT connection and the viewer-event subscriptions.
type MQTTClient struct {
	client      mqtt.Client
	config      *Config
	onPick      PickHandler
	onResolve   ResolutionHandler
	isConnected bool
	mu          sync.RWMutex
}

var (
	globalClient *MQTTClient
	clientMu     sync.Mutex
)

// InitMQTT initializes the global MQTT client with the provided configuration.
// If no broker is configured (config and MQTT_BROKER env var both empty),
// MQTT is disabled and this returns nil.
func InitMQTT(config *Config, onPick PickHandler, onResolve ResolutionHandler) (*MQTTClient, error) {
	clientMu.Lock()
	defer clientMu.Unlock()

	broker := os.Getenv("MQTT_BROKER")
	if broker == "" && config != nil && config.MQTT.Broker != "" {
		broker = config.MQTT.Broker
	}
	if broker == "" {
		log.Println("MQTT disabled: MQTT_BROKER not set")
		return nil, nil
	}
	if config == nil {
		return nil, fmt.Errorf("MQTT enabled but no configuration provided")
	}

	client := &MQTTClient{
		config:    config,
		onPick:    onPick,
		onResolve: onResolve,
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)

	clientID := os.Getenv("MQTT_CLIENT_ID")
	if clientID == "" && config.MQTT.ClientID != "" {
		clientID = config.MQTT.ClientID
	}
	if clientID == "" {
		clientID = "headmesh"
	}
	opts.SetClientID(clientID)

	username := os.Getenv("MQTT_USERNAME")
	if username == "" && config.MQTT.Username != "" {
		username = config.MQTT.Username
	}
	if username != "" {
		opts.SetUsername(username)
		password := os.Getenv("MQTT_PASSWORD")
		if password == "" && config.MQTT.Password != "" {
			password = config.MQTT.Password
		}
		opts.SetPassword(password)
	}

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetCleanSession(false) // preserve subscriptions on reconnect
	opts.SetOrderMatters(true)  // pick events must apply in arrival order

	opts.SetOnConnectHandler(client.onConnect)
	opts.SetConnectionLostHandler(client.onConnectionLost)

	client.client = mqtt.NewClient(opts)

	go client.connectWithRetry()

	globalClient = client
	return client, nil
}

// GetMQTTClient returns the global MQTT client instance.
func GetMQTTClient() *MQTTClient {
	clientMu.Lock()
	defer clientMu.Unlock()
	return globalClient
}

// PickTopic returns the topic the viewer publishes pick events to.
func (c *MQTTClient) PickTopic() string {
	return c.config.MQTT.PublishPrefix + "/pick"
}

// ResolutionTopic returns the topic resolution changes arrive on.
func (c *MQTTClient) ResolutionTopic() string {
	return c.config.MQTT.PublishPrefix + "/resolution"
}

// connectWithRetry attempts to connect to the MQTT broker with exponential backoff.
func (c *MQTTClient) connectWithRetry() {
	retryDelay := 1 * time.Second
	maxRetryDelay := 60 * time.Second

	for {
		log.Println("Connecting to MQTT broker...")

		token := c.client.Connect()
		if token.WaitTimeout(10 * time.Second) {
			if token.Error() == nil {
				log.Println("Successfully connected to MQTT broker")
				c.setConnected(true)
				return
			}
			log.Printf("MQTT connection failed: %v", token.Error())
		} else {
			log.Println("MQTT connection timeout")
		}

		log.Printf("Retrying MQTT connection in %v...", retryDelay)
		time.Sleep(retryDelay)
		retryDelay *= 2
		if retryDelay > maxRetryDelay {
			retryDelay = maxRetryDelay
		}
	}
}

// onConnect subscribes to the viewer-event topics.
func (c *MQTTClient) onConnect(client mqtt.Client) {
	log.Println("MQTT connected, subscribing to viewer topics...")
	c.setConnected(true)

	for topic, handler := range map[string]mqtt.MessageHandler{
		c.PickTopic():       c.handlePickMessage,
		c.ResolutionTopic(): c.handleResolutionMessage,
	} {
		log.Printf("Subscribing to %s", topic)
		token := client.Subscribe(topic, 1, handler)
		if token.WaitTimeout(5*time.Second) && token.Error() != nil {
			log.Printf("Error subscribing to %s: %v", topic, token.Error())
		}
	}
}

func (c *MQTTClient) onConnectionLost(client mqtt.Client, err error) {
	log.Printf("MQTT connection interrupted (%v), auto-reconnect will retry", err)
	c.setConnected(false)
}

// pickPayload is the JSON form of a pick event: {"index": 7}. A bare integer
// payload is accepted too, since some viewers publish the raw point id.
type pickPayload struct {
	Index int `json:"index"`
}

func (c *MQTTClient) handlePickMessage(client mqtt.Client, msg mqtt.Message) {
	index, err := parsePickPayload(msg.Payload())
	if err != nil {
		log.Printf("Ignoring malformed pick event on %s: %v", msg.Topic(), err)
		return
	}
	if c.onPick != nil {
		c.onPick(index)
	}
}

func parsePickPayload(payload []byte) (int, error) {
	var pick pickPayload
	if err := json.Unmarshal(payload, &pick); err == nil && strings.Contains(string(payload), "index") {
		return pick.Index, nil
	}
	raw := strings.TrimSpace(string(payload))
	index, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("payload %q is neither a pick object nor an integer", raw)
	}
	return index, nil
}

// resolutionPayload is the JSON form of a resolution change: {"resolutionMM": 20}.
type resolutionPayload struct {
	ResolutionMM int `json:"resolutionMM"`
}

func (c *MQTTClient) handleResolutionMessage(client mqtt.Client, msg mqtt.Message) {
	var res resolutionPayload
	if err := json.Unmarshal(msg.Payload(), &res); err != nil {
		raw := strings.TrimSpace(string(msg.Payload()))
		mm, err2 := strconv.Atoi(raw)
		if err2 != nil {
			log.Printf("Ignoring malformed resolution event on %s: %v", msg.Topic(), err)
			return
		}
		res.ResolutionMM = mm
	}
	if c.onResolve != nil {
		c.onResolve(res.ResolutionMM)
	}
}

// IsConnected returns true if the MQTT client is connected.
func (c *MQTTClient) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isConnected
}

func (c *MQTTClient) setConnected(connected bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.isConnected = connected
}

// Disconnect gracefully closes the MQTT connection.
func (c *MQTTClient) Disconnect() {
	if c.client != nil && c.client.IsConnected() {
		log.Println("Disconnecting from MQTT broker...")
		c.client.Disconnect(250)
		c.setConnected(false)
	}
}

// GetClient returns the underlying MQTT client for publishing.
func (c *MQTTClient) GetClient() mqtt.Client {
	return c.client
}

// newMQTTClientWithMock creates an MQTTClient around a provided mqtt.Client.
// Used in tests with the mock client.
func newMQTTClientWithMock(client mqtt.Client, config *Config, onPick PickHandler, onResolve ResolutionHandler) *MQTTClient {
	return &MQTTClient{
		client:    client,
		config:    config,
		onPick:    onPick,
		onResolve: onResolve,
	}
}
