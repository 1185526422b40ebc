package pubsub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/JakeFAU/linkboard/internal/links"
)

func newFakeTopic(t *testing.T) (*pstest.Server, *pubsub.Topic) {
	t.Helper()
	ctx := context.Background()

	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })

	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	client, err := pubsub.NewClient(ctx, "test-project", option.WithGRPCConn(conn))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	topic, err := client.CreateTopic(ctx, "selection")
	require.NoError(t, err)
	return srv, topic
}

func TestPublisherPublishesSelectionEvent(t *testing.T) {
	t.Parallel()

	srv, topic := newFakeTopic(t)
	pub := New(topic)
	defer pub.Stop()

	event := links.SelectionEvent{
		Action: links.SelectionSet,
		URL:    "https://example.com/page",
		At:     time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC),
	}
	id, err := pub.Publish(context.Background(), event)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	msgs := srv.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, "set", msgs[0].Attributes["action"])

	var decoded links.SelectionEvent
	require.NoError(t, json.Unmarshal(msgs[0].Data, &decoded))
	require.Equal(t, event, decoded)
}

func TestPublisherRequiresTopic(t *testing.T) {
	t.Parallel()

	_, err := New(nil).Publish(context.Background(), "payload")
	require.ErrorContains(t, err, "not configured")
}
