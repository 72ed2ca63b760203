package pubsub_test

import (
	"context"
	"encoding/json"
	"testing"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	beepubsub "github.com/JakeFAU/spellingbee-crawler/internal/publisher/pubsub"
	"github.com/JakeFAU/spellingbee-crawler/internal/puzzle"
)

func newTopic(t *testing.T) (*pstest.Server, *pubsub.Topic) {
	t.Helper()
	ctx := context.Background()

	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })

	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	client, err := pubsub.NewClient(ctx, "project-id", option.WithGRPCConn(conn))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	topic, err := client.CreateTopic(ctx, "puzzles")
	require.NoError(t, err)
	return srv, topic
}

func TestExportPublishesEveryRecord(t *testing.T) {
	t.Parallel()

	srv, topic := newTopic(t)
	pub := beepubsub.New(topic)
	defer pub.Stop()

	err := pub.Export(context.Background(), "run-1", []puzzle.Record{
		{ID: 1, Letters: "SAENORT", Pangrams: []string{"ANTEROOMS"}},
		{ID: 2, Letters: "QEINTUX"},
	})
	require.NoError(t, err)

	msgs := srv.Messages()
	require.Len(t, msgs, 2)

	got := map[int]beepubsub.Message{}
	for _, m := range msgs {
		var decoded beepubsub.Message
		require.NoError(t, json.Unmarshal(m.Data, &decoded))
		assert.Equal(t, "run-1", m.Attributes["run_id"])
		got[decoded.PuzzleID] = decoded
	}
	assert.Equal(t, beepubsub.Message{
		RunID: "run-1", PuzzleID: 1, Letters: "SAENORT", Center: "S", Pangrams: []string{"ANTEROOMS"},
	}, got[1])
	assert.Equal(t, []string{}, got[2].Pangrams)
	assert.Equal(t, "Q", got[2].Center)
}

func TestPublishWithoutTopic(t *testing.T) {
	t.Parallel()

	pub := beepubsub.New(nil)
	_, err := pub.Publish(context.Background(), map[string]string{"a": "b"}, nil)
	assert.Error(t, err)
	pub.Stop()
}

func TestPublishRejectsUnmarshalablePayload(t *testing.T) {
	t.Parallel()

	_, topic := newTopic(t)
	pub := beepubsub.New(topic)
	defer pub.Stop()

	_, err := pub.Publish(context.Background(), make(chan int), nil)
	assert.Error(t, err)
}
