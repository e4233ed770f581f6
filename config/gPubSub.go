package config

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"sync"
	"time"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

// VoucherEventMessage is the body published for every posted voucher.
type VoucherEventMessage struct {
	ID            int       `json:"id"`
	CompanyId     string    `json:"company_id"`
	EventType     string    `json:"event_type"`
	ReferenceType string    `json:"reference_type"`
	ReferenceId   int       `json:"reference_id"`
	OccurredAt    time.Time `json:"occurred_at"`
	Payload       []byte    `json:"payload"`
	CorrelationId string    `json:"correlation_id"`
}

var (
	pubsubClient   *pubsub.Client
	pubsubClientMu sync.Mutex
)

var ErrPubSubNotConfigured = errors.New("PUBSUB_PROJECT_ID/PUBSUB_TOPIC not set")

func getPubSubProjectID() string {
	if v := Env().PubSubProjectID; v != "" {
		return v
	}
	// Cloud Run sets this.
	return os.Getenv("GOOGLE_CLOUD_PROJECT")
}

// PubSubConfigured reports whether a project and a topic are available.
func PubSubConfigured() bool {
	return getPubSubProjectID() != "" && Env().PubSubTopic != ""
}

func getPubSubClient(ctx context.Context) (*pubsub.Client, error) {
	pubsubClientMu.Lock()
	defer pubsubClientMu.Unlock()
	if pubsubClient != nil {
		return pubsubClient, nil
	}

	projectID := getPubSubProjectID()
	if projectID == "" {
		return nil, ErrPubSubNotConfigured
	}

	var (
		c   *pubsub.Client
		err error
	)
	if credJSON := Env().PubSubCredentialsJSON; credJSON != "" {
		c, err = pubsub.NewClient(ctx, projectID, option.WithCredentialsJSON([]byte(credJSON)))
	} else {
		// Application Default Credentials
		c, err = pubsub.NewClient(ctx, projectID)
	}
	if err != nil {
		return nil, err
	}
	pubsubClient = c
	log.Printf("pubsub client ready (project_id=%s)", projectID)
	return c, nil
}

// PublishVoucherEvent publishes msg to PUBSUB_TOPIC and returns the server-assigned id.
func PublishVoucherEvent(ctx context.Context, msg VoucherEventMessage) (string, error) {
	topicName := Env().PubSubTopic
	if topicName == "" {
		return "", ErrPubSubNotConfigured
	}
	client, err := getPubSubClient(ctx)
	if err != nil {
		return "", err
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return "", err
	}
	result := client.Topic(topicName).Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"company_id": msg.CompanyId,
			"event_type": msg.EventType,
		},
	})
	return result.Get(ctx)
}
