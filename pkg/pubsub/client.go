// Package pubsub connects to the Google Pub/Sub topic that carries domain
// events from the outbox relay to the workers.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/siteboss-backend/pkg/config"
	"github.com/angelmondragon/siteboss-backend/pkg/logger"
)

var (
	errNotReady  = errors.New("pubsub client not initialized")
	errNoProject = errors.New("gcp project id is required")
	errNoTopic   = errors.New("pubsub domain topic is required")
)

type Client struct {
	client    *pubsub.Client
	projectID string
	topic     string
	sub       string
}

// NewClient connects to projectID and fails unless the domain topic, and
// the domain subscription when configured, already exist. Resources are
// provisioned by infrastructure, never by the services.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	projectID := strings.TrimSpace(gcp.ProjectID)
	if projectID == "" {
		return nil, errNoProject
	}
	raw, err := pubsub.NewClient(ctx, projectID, clientOptions(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("pubsub client: %w", err)
	}

	c := &Client{
		client:    raw,
		projectID: projectID,
		topic:     strings.TrimSpace(cfg.DomainTopic),
		sub:       strings.TrimSpace(cfg.DomainSubscription),
	}
	if err := c.verify(ctx); err != nil {
		_ = raw.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{"topic": c.topic, "subscription": c.sub}), "pubsub connected")
	}
	return c, nil
}

// clientOptions picks explicit credentials when configured. Otherwise the
// library falls back to ADC or PUBSUB_EMULATOR_HOST.
func clientOptions(gcp config.GCPConfig) []option.ClientOption {
	switch {
	case strings.TrimSpace(gcp.CredentialsJSON) != "":
		return []option.ClientOption{option.WithCredentialsJSON([]byte(gcp.CredentialsJSON))}
	case strings.TrimSpace(gcp.ApplicationCredentials) != "":
		return []option.ClientOption{option.WithCredentialsFile(gcp.ApplicationCredentials)}
	}
	return nil
}

func (c *Client) verify(ctx context.Context) error {
	if c.topic == "" {
		return errNoTopic
	}
	_, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{
		Topic: topicResourceName(c.projectID, c.topic),
	})
	if err := lookupError("topic", c.topic, err); err != nil {
		return err
	}
	if c.sub == "" {
		return nil
	}
	_, err = c.client.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{
		Subscription: subscriptionResourceName(c.projectID, c.sub),
	})
	return lookupError("subscription", c.sub, err)
}

func lookupError(kind, name string, err error) error {
	switch {
	case err == nil:
		return nil
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("%s %q does not exist", kind, name)
	}
	return fmt.Errorf("look up %s %q: %w", kind, name, err)
}

// Publisher returns a handle for a topic id or full resource name.
func (c *Client) Publisher(name string) *pubsub.Publisher {
	if c == nil || c.client == nil {
		return nil
	}
	if full := topicResourceName(c.projectID, name); full != "" {
		return c.client.Publisher(full)
	}
	return nil
}

// Subscription returns a handle for a subscription id or full resource
// name.
func (c *Client) Subscription(name string) *pubsub.Subscriber {
	if c == nil || c.client == nil {
		return nil
	}
	if full := subscriptionResourceName(c.projectID, name); full != "" {
		return c.client.Subscriber(full)
	}
	return nil
}

func (c *Client) DomainPublisher() *pubsub.Publisher {
	if c == nil {
		return nil
	}
	return c.Publisher(c.topic)
}

func (c *Client) DomainSubscription() *pubsub.Subscriber {
	if c == nil {
		return nil
	}
	return c.Subscription(c.sub)
}

// Ping re-checks that the configured topic and subscription exist.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errNotReady
	}
	return c.verify(ctx)
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}
