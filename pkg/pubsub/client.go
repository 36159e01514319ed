package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/siver-b2b-backend/pkg/config"
	"github.com/angelmondragon/siver-b2b-backend/pkg/logger"
)

type resourceKind string

const (
	kindTopic        resourceKind = "topics"
	kindSubscription resourceKind = "subscriptions"
)

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errNoTopics          = errors.New("pubsub topic name is required")
	errNoSubscriptions   = errors.New("pubsub subscription name is required")
	errNotInitialized    = errors.New("pubsub client not initialized")
)

// Client wraps the Pub/Sub v2 client. Publishers are created once per topic
// with message ordering enabled and stopped by Close.
type Client struct {
	client    *pubsub.Client
	projectID string
	cfg       config.PubSubConfig

	mu         sync.Mutex
	publishers map[string]*pubsub.Publisher
}

// NewClient connects and verifies that every configured topic and
// subscription exists. Resources are provisioned outside the service.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	projectID := strings.TrimSpace(gcp.ProjectID)
	if projectID == "" {
		return nil, errProjectIDRequired
	}

	psClient, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	c := &Client{
		client:     psClient,
		projectID:  projectID,
		cfg:        cfg,
		publishers: make(map[string]*pubsub.Publisher),
	}
	if err := c.verify(ctx); err != nil {
		_ = psClient.Close()
		return nil, err
	}

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"project":       projectID,
			"topics":        topicNames(cfg),
			"subscriptions": subscriptionNames(cfg),
		}), "pubsub client initialized")
	}
	return c, nil
}

func (c *Client) verify(ctx context.Context) error {
	topics := topicNames(c.cfg)
	if len(topics) == 0 {
		return errNoTopics
	}
	subs := subscriptionNames(c.cfg)
	if len(subs) == 0 {
		return errNoSubscriptions
	}

	for _, name := range topics {
		_, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{
			Topic: resourceName(c.projectID, kindTopic, name),
		})
		if err := lookupError(kindTopic, name, err); err != nil {
			return err
		}
	}
	for _, name := range subs {
		_, err := c.client.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{
			Subscription: resourceName(c.projectID, kindSubscription, name),
		})
		if err := lookupError(kindSubscription, name, err); err != nil {
			return err
		}
	}
	return nil
}

func lookupError(kind resourceKind, name string, err error) error {
	switch {
	case err == nil:
		return nil
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("pubsub %s %q does not exist", strings.TrimSuffix(string(kind), "s"), name)
	default:
		return fmt.Errorf("checking pubsub %s %q: %w", strings.TrimSuffix(string(kind), "s"), name, err)
	}
}

func topicNames(cfg config.PubSubConfig) []string {
	return nonEmpty(cfg.OrdersTopic, cfg.CatalogTopic)
}

func subscriptionNames(cfg config.PubSubConfig) []string {
	return nonEmpty(cfg.CatalogReleaseSubscription)
}

func nonEmpty(values ...string) []string {
	var names []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			names = append(names, v)
		}
	}
	return names
}

// resourceName expands a short id into projects/<project>/<kind>/<id>.
// Names that are already fully qualified are returned as is.
func resourceName(projectID string, kind resourceKind, name string) string {
	name = strings.TrimSpace(name)
	if name == "" || projectID == "" {
		return ""
	}
	if strings.HasPrefix(name, "projects/") && strings.Contains(name, "/"+string(kind)+"/") {
		return name
	}
	return fmt.Sprintf("projects/%s/%s/%s", projectID, kind, name)
}

// Subscription returns a subscriber for a subscription id or full name.
func (c *Client) Subscription(name string) *pubsub.Subscriber {
	if c == nil || c.client == nil {
		return nil
	}
	full := resourceName(c.projectID, kindSubscription, name)
	if full == "" {
		return nil
	}
	return c.client.Subscriber(full)
}

// CatalogReleaseSubscription feeds the catalog release worker.
func (c *Client) CatalogReleaseSubscription() *pubsub.Subscriber {
	return c.Subscription(c.cfg.CatalogReleaseSubscription)
}

// Publisher returns the shared publisher of a topic.
func (c *Client) Publisher(name string) *pubsub.Publisher {
	if c == nil || c.client == nil {
		return nil
	}
	full := resourceName(c.projectID, kindTopic, name)
	if full == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.publishers[full]; ok {
		return p
	}
	p := c.client.Publisher(full)
	p.EnableMessageOrdering = true
	c.publishers[full] = p
	return p
}

// Ping re-checks that the configured topics and subscriptions exist.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errNotInitialized
	}
	return c.verify(ctx)
}

// Close flushes and stops the publishers, then closes the connection.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	c.mu.Lock()
	for name, p := range c.publishers {
		p.Stop()
		delete(c.publishers, name)
	}
	c.mu.Unlock()
	return c.client.Close()
}
