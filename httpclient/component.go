package httpclient

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/spacekit/component"
)

// Component wraps a Client with lifecycle management, for applications that
// manage their resources with a component.Registry.
type Component struct {
	name string
	opts []Option

	mu     sync.RWMutex
	client *Client
}

// compile-time assertions
var _ component.Component = (*Component)(nil)
var _ component.Describable = (*Component)(nil)

// NewComponent creates a client component. The client is built in Start.
func NewComponent(name string, opts ...Option) *Component {
	return &Component{name: name, opts: cloneOptions(opts)}
}

// Name returns the component name.
func (c *Component) Name() string {
	if c.name == "" {
		return "spacekit"
	}
	return c.name
}

// Start builds the client. Configuration errors are returned as-is.
func (c *Component) Start(_ context.Context) error {
	client, err := New(c.opts...)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.client = client
	c.mu.Unlock()
	return nil
}

// Stop releases idle connections.
func (c *Component) Stop(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		c.client.Close()
		c.client = nil
	}
	return nil
}

// Health reports unhealthy until Start has succeeded.
func (c *Component) Health(_ context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}
	if c.Client() == nil {
		h.Status = component.StatusUnhealthy
		h.Message = "client not started"
	}
	return h
}

// Describe returns the base URL and throttle setting.
func (c *Component) Describe() component.Description {
	d := component.Description{Name: c.Name(), Type: "http-client"}
	client := c.Client()
	if client == nil {
		return d
	}
	d.Details = client.BaseURL()
	if limit := client.ThrottleLimit(); limit > 0 {
		d.Details += fmt.Sprintf(" throttle=%d/%s", limit, client.cfg.ThrottleWindow)
	}
	return d
}

// Client returns the client, or nil before Start.
func (c *Component) Client() *Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client
}
