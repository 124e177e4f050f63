package pubsub

import (
	"context"
	"testing"

	"github.com/angelmondragon/motorshop-backend/pkg/config"
)

func TestTopicResourceName(t *testing.T) {
	c := &Client{projectID: "shop-prod"}
	cases := map[string]string{
		"ms-work-order-events":                      "projects/shop-prod/topics/ms-work-order-events",
		"  ms-work-order-events ":                   "projects/shop-prod/topics/ms-work-order-events",
		"projects/other/topics/ms-work-order-events": "projects/other/topics/ms-work-order-events",
		"": "",
	}
	for in, want := range cases {
		if got := c.topicResourceName(in); got != want {
			t.Fatalf("topicResourceName(%q) = %q, want %q", in, got, want)
		}
	}

	if got := (&Client{}).topicResourceName("topic"); got != "" {
		t.Fatalf("expected empty name without project, got %q", got)
	}
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	if c.Publisher("topic") != nil {
		t.Fatalf("expected nil publisher")
	}
	if err := c.Ping(context.Background()); err != errNotInitialized {
		t.Fatalf("expected ping error on nil client")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close on nil client: %v", err)
	}
}

func TestNewClientRequiresProject(t *testing.T) {
	_, err := NewClient(context.Background(), config.GCPConfig{}, config.PubSubConfig{WorkOrdersTopic: "t"}, nil)
	if err != errProjectIDRequired {
		t.Fatalf("expected project id error, got %v", err)
	}
}
