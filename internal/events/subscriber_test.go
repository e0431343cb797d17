package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"

	"github.com/alfredjeanlab/dealdesk/internal/model"
)

var _ Subscriber = (*NATSSubscriber)(nil)

// startTestNATS runs an embedded NATS server for the test and returns its URL.
func startTestNATS(t *testing.T) string {
	t.Helper()
	srv, err := natsserver.NewServer(&natsserver.Options{Host: "127.0.0.1", Port: -1})
	if err != nil {
		t.Fatalf("starting embedded NATS: %v", err)
	}
	srv.Start()
	t.Cleanup(srv.Shutdown)
	if !srv.ReadyForConnections(5 * time.Second) {
		t.Fatal("embedded NATS not ready")
	}
	return srv.ClientURL()
}

// busPair connects a publisher and a subscriber to a fresh server.
func busPair(t *testing.T) (*NATSPublisher, *NATSSubscriber) {
	t.Helper()
	url := startTestNATS(t)
	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("publisher: %v", err)
	}
	t.Cleanup(func() { pub.Close() })
	sub, err := NewNATSSubscriber(url)
	if err != nil {
		t.Fatalf("subscriber: %v", err)
	}
	t.Cleanup(func() { sub.Close() })
	return pub, sub
}

func receive(t *testing.T, ch <-chan Message) Message {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return Message{}
	}
}

func TestPublishStatusChange_ReachesSubscriber(t *testing.T) {
	pub, sub := busPair(t)

	ch, cancel, err := sub.Subscribe(Prefix + ">")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	evt := DossierStatusChanged{Dossier: &model.Dossier{ID: "dos-atlas", Status: model.StatusStandBy}}
	if err := pub.Publish(context.Background(), TopicDossierStatusChanged, evt); err != nil {
		t.Fatalf("publish: %v", err)
	}

	msg := receive(t, ch)
	if msg.Topic != TopicDossierStatusChanged {
		t.Errorf("topic = %q", msg.Topic)
	}
	var got DossierStatusChanged
	if err := json.Unmarshal(msg.Data, &got); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if got.Dossier.ID != "dos-atlas" || got.Dossier.Status != model.StatusStandBy {
		t.Errorf("payload = %+v", got.Dossier)
	}
}

func TestSubscribe_SingleTokenWildcard(t *testing.T) {
	pub, sub := busPair(t)

	ch, cancel, err := sub.Subscribe("dealdesk.reminder.*")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	ctx := context.Background()
	_ = pub.Publish(ctx, TopicDossierCreated, DossierCreated{Dossier: &model.Dossier{ID: "dos-1"}})
	_ = pub.Publish(ctx, TopicReminderCreated, ReminderCreated{Reminder: &model.Reminder{ID: "rap-1"}})
	_ = pub.Publish(ctx, TopicReminderCompleted, ReminderCompleted{Reminder: &model.Reminder{ID: "rap-1", Done: true}})

	for _, want := range []string{TopicReminderCreated, TopicReminderCompleted} {
		if msg := receive(t, ch); msg.Topic != want {
			t.Errorf("topic = %q, want %q", msg.Topic, want)
		}
	}
	select {
	case msg := <-ch:
		t.Errorf("unexpected message on %s", msg.Topic)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSubscribe_CancelClosesChannel(t *testing.T) {
	pub, sub := busPair(t)

	ch, cancel, err := sub.Subscribe(Prefix + ">")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for range 100 {
			_ = pub.Publish(context.Background(), TopicInteractionCreated, InteractionCreated{})
		}
	}()

	cancel()
	cancel()
	<-done

	for range ch {
	}
}
