package opcua

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gopcua/opcua"
	"github.com/gopcua/opcua/ua"

	"github.com/ghalamif/streamwindow/internal/domain"
	"github.com/ghalamif/streamwindow/internal/ports"
)

// Config captures the runtime details required to open an OPC UA session.
type Config struct {
	Endpoint         string        `yaml:"endpoint"`
	Username         string        `yaml:"username"`
	Password         string        `yaml:"password"`
	SecurityMode     string        `yaml:"security_mode"`
	SecurityPolicy   string        `yaml:"security_policy"`
	ApplicationName  string        `yaml:"application_name"`
	PublishInterval  time.Duration `yaml:"publish_interval"`
	SamplingInterval time.Duration `yaml:"sampling_interval"`
	// ControlNodeID receives control bytes written by SendControl.
	ControlNodeID string       `yaml:"control_node_id"`
	Nodes         []NodeConfig `yaml:"nodes"`
}

// NodeConfig defines a monitored tag. Label prefixes the emitted payload.
type NodeConfig struct {
	NodeID string `yaml:"node_id"`
	Label  string `yaml:"label"`
}

func (c *Config) ApplyDefaults() {
	if c.SecurityMode == "" {
		c.SecurityMode = "None"
	}
	if c.SecurityPolicy == "" {
		c.SecurityPolicy = "None"
	}
	if c.ApplicationName == "" {
		c.ApplicationName = "streamwindow"
	}
	if c.PublishInterval <= 0 {
		c.PublishInterval = 250 * time.Millisecond
	}
	if c.SamplingInterval < 0 {
		c.SamplingInterval = 0
	}
	for i := range c.Nodes {
		if c.Nodes[i].Label == "" {
			c.Nodes[i].Label = c.Nodes[i].NodeID
		}
	}
}

func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return errors.New("endpoint is required")
	}
	if len(c.Nodes) == 0 {
		return errors.New("at least one node must be configured")
	}
	for _, n := range c.Nodes {
		if strings.Contains(n.Label, ":") {
			return fmt.Errorf("node %q: label must not contain ':'", n.NodeID)
		}
	}
	return nil
}

// Producer subscribes to data changes on the configured nodes and forwards
// each change as a "label:value" notification.
type Producer struct {
	cfg       Config
	client    *opcua.Client
	sub       *opcua.Subscription
	cancel    context.CancelFunc
	handler   ports.NotificationHandler
	wg        sync.WaitGroup
	handleMap map[uint32]NodeConfig
	mu        sync.Mutex
	started   bool
}

func NewProducer(cfg Config) (*Producer, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Producer{cfg: cfg}, nil
}

func (p *Producer) Name() string { return "opcua" }

func (p *Producer) Start(parent context.Context, h ports.NotificationHandler) error {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return fmt.Errorf("opcua producer already started")
	}
	p.mu.Unlock()

	ctx, cancel := context.WithCancel(parent)

	client, err := opcua.NewClient(p.cfg.Endpoint, p.buildClientOptions()...)
	if err != nil {
		cancel()
		return fmt.Errorf("opcua new client: %w", err)
	}

	if err := client.Connect(ctx); err != nil {
		cancel()
		return fmt.Errorf("opcua connect: %w", err)
	}

	notifyCh := make(chan *opcua.PublishNotificationData, len(p.cfg.Nodes)*4)
	sub, err := client.Subscribe(ctx, &opcua.SubscriptionParameters{
		Interval: p.cfg.PublishInterval,
	}, notifyCh)
	if err != nil {
		cancel()
		_ = client.Close(ctx)
		return fmt.Errorf("opcua subscribe: %w", err)
	}

	handleMap := make(map[uint32]NodeConfig, len(p.cfg.Nodes))
	for i, node := range p.cfg.Nodes {
		nodeID, err := ua.ParseNodeID(node.NodeID)
		if err != nil {
			p.cleanupOnError(ctx, cancel, sub, client)
			return fmt.Errorf("parse node id %q: %w", node.NodeID, err)
		}
		handle := uint32(i + 1)
		req := opcua.NewMonitoredItemCreateRequestWithDefaults(nodeID, ua.AttributeIDValue, handle)
		if p.cfg.SamplingInterval > 0 {
			req.RequestedParameters.SamplingInterval = float64(p.cfg.SamplingInterval / time.Millisecond)
		}
		res, err := sub.Monitor(ctx, ua.TimestampsToReturnBoth, req)
		if err != nil {
			p.cleanupOnError(ctx, cancel, sub, client)
			return fmt.Errorf("monitor node %q: %w", node.NodeID, err)
		}
		if len(res.Results) == 0 {
			p.cleanupOnError(ctx, cancel, sub, client)
			return fmt.Errorf("monitor node %q failed: empty result", node.NodeID)
		}
		if res.Results[0].StatusCode != ua.StatusOK {
			p.cleanupOnError(ctx, cancel, sub, client)
			return fmt.Errorf("monitor node %q failed: %s", node.NodeID, res.Results[0].StatusCode)
		}
		handleMap[handle] = node
	}

	p.mu.Lock()
	p.client = client
	p.sub = sub
	p.cancel = cancel
	p.handler = h
	p.handleMap = handleMap
	p.started = true
	p.mu.Unlock()

	h.OnConnectionState(true)
	p.wg.Add(1)
	go p.consume(ctx, notifyCh, h)
	return nil
}

func (p *Producer) Stop() error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return nil
	}
	cancel := p.cancel
	sub := p.sub
	client := p.client
	h := p.handler
	p.started = false
	p.cancel = nil
	p.sub = nil
	p.client = nil
	p.handler = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	ctx, ctxCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer ctxCancel()

	var err error
	if sub != nil {
		if e := sub.Cancel(ctx); e != nil && !errors.Is(e, context.Canceled) {
			err = errors.Join(err, e)
		}
	}
	if client != nil {
		if e := client.Close(ctx); e != nil && !errors.Is(e, context.Canceled) {
			err = errors.Join(err, e)
		}
	}

	p.wg.Wait()
	if h != nil {
		h.OnConnectionState(false)
	}
	return err
}

// SendControl writes b as a Byte value to the control node.
func (p *Producer) SendControl(b byte) error {
	if p.cfg.ControlNodeID == "" {
		return domain.ErrControlUnsupported
	}
	p.mu.Lock()
	client := p.client
	p.mu.Unlock()
	if client == nil {
		return domain.ErrProducerClosed
	}

	nodeID, err := ua.ParseNodeID(p.cfg.ControlNodeID)
	if err != nil {
		return fmt.Errorf("parse control node id %q: %w", p.cfg.ControlNodeID, err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := client.Write(ctx, &ua.WriteRequest{
		NodesToWrite: []*ua.WriteValue{{
			NodeID:      nodeID,
			AttributeID: ua.AttributeIDValue,
			Value: &ua.DataValue{
				EncodingMask: ua.DataValueValue,
				Value:        ua.MustVariant(b),
			},
		}},
	})
	if err != nil {
		return fmt.Errorf("opcua write control: %w", err)
	}
	if len(resp.Results) > 0 && resp.Results[0] != ua.StatusOK {
		return fmt.Errorf("opcua write control: %s", resp.Results[0])
	}
	return nil
}

func (p *Producer) consume(ctx context.Context, ch <-chan *opcua.PublishNotificationData, h ports.NotificationHandler) {
	defer p.wg.Done()

	healthy := true
	for {
		select {
		case <-ctx.Done():
			return
		case notif := <-ch:
			if notif == nil {
				continue
			}
			if notif.Error != nil {
				log.Printf("opcua: notification error: %v", notif.Error)
				if healthy {
					healthy = false
					h.OnConnectionState(false)
				}
				continue
			}
			if !healthy {
				healthy = true
				h.OnConnectionState(true)
			}
			p.processNotification(notif.Value, h)
		}
	}
}

func (p *Producer) processNotification(val interface{}, h ports.NotificationHandler) {
	data, ok := val.(*ua.DataChangeNotification)
	if !ok {
		return
	}

	for _, item := range data.MonitoredItems {
		nodeCfg, ok := p.handleMap[item.ClientHandle]
		if !ok || item.Value == nil {
			continue
		}
		v, ok := variantToInt(item.Value.Value)
		if !ok {
			log.Printf("opcua: skipping node %s due to unsupported type %T", nodeCfg.NodeID, item.Value.Value)
			continue
		}
		h.OnNotification(formatPayload(nodeCfg.Label, v))
	}
}

func formatPayload(label string, v int64) []byte {
	return []byte(label + ":" + strconv.FormatInt(v, 10))
}

func (p *Producer) buildClientOptions() []opcua.Option {
	opts := []opcua.Option{
		opcua.SecurityModeString(normalizeSecurityMode(p.cfg.SecurityMode)),
		opcua.SecurityPolicy(normalizeSecurityPolicy(p.cfg.SecurityPolicy)),
		opcua.ApplicationName(p.cfg.ApplicationName),
		opcua.AutoReconnect(true),
	}

	if p.cfg.Username != "" {
		opts = append(opts, opcua.AuthUsername(p.cfg.Username, p.cfg.Password))
	} else {
		opts = append(opts, opcua.AuthAnonymous())
	}
	return opts
}

func (p *Producer) cleanupOnError(ctx context.Context, cancel context.CancelFunc, sub *opcua.Subscription, client *opcua.Client) {
	cancel()
	if sub != nil {
		_ = sub.Cancel(ctx)
	}
	if client != nil {
		_ = client.Close(ctx)
	}
}

// variantToInt rounds numeric variants to int64. Floats outside the int64
// range and NaN are rejected.
func variantToInt(v *ua.Variant) (int64, bool) {
	if v == nil {
		return 0, false
	}

	switch val := v.Value().(type) {
	case bool:
		if val {
			return 1, true
		}
		return 0, true
	case int8:
		return int64(val), true
	case uint8:
		return int64(val), true
	case int16:
		return int64(val), true
	case uint16:
		return int64(val), true
	case int32:
		return int64(val), true
	case uint32:
		return int64(val), true
	case int64:
		return val, true
	case uint64:
		if val > math.MaxInt64 {
			return 0, false
		}
		return int64(val), true
	case float32:
		return floatToInt(float64(val))
	case float64:
		return floatToInt(val)
	default:
		return 0, false
	}
}

func floatToInt(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	r := math.Round(f)
	if r >= math.MaxInt64 || r < math.MinInt64 {
		return 0, false
	}
	return int64(r), true
}

func normalizeSecurityMode(mode string) string {
	switch strings.ToLower(mode) {
	case "sign":
		return "Sign"
	case "signandencrypt", "signencrypt", "sign_and_encrypt", "sign+encrypt":
		return "SignAndEncrypt"
	default:
		return "None"
	}
}

func normalizeSecurityPolicy(policy string) string {
	if policy == "" {
		return "None"
	}
	return policy
}

var _ ports.Producer = (*Producer)(nil)
