//go:build integration

package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"

	"legalqa/internal/config"
	"legalqa/internal/logger"
	"legalqa/pkg/models"
)

const searchResponse = `{
  "hits": {
    "hits": [
      {"_id": "uu-28-2009", "_score": 1.4, "_source": {"teks": ["Pajak daerah adalah kontribusi wajib kepada daerah.", "lampiran"]}},
      {"_id": "perban-1", "_score": 0.9, "_source": {"teks": "Tata cara pemungutan."}}
    ]
  }
}`

func newSearchServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodHead && r.URL.Path == "/peraturan":
			w.WriteHeader(http.StatusOK)
		case r.URL.Path == "/peraturan/_search":
			w.Write([]byte(searchResponse))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newChatServer(t *testing.T) (*httptest.Server, chan string) {
	t.Helper()
	prompts := make(chan string, 8)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req openai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil && len(req.Messages) == 2 {
			prompts <- req.Messages[1].Content
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: "Pajak daerah diatur dalam UU 28/2009."}},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, prompts
}

func setupBroker(t *testing.T) (config.RabbitMQConfig, string) {
	t.Helper()
	ctx := context.Background()

	if os.Getenv("TESTCONTAINERS_RYUK_DISABLED") == "" {
		os.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")
	}

	container, err := rabbitmq.Run(ctx, "rabbitmq:3.13-management-alpine",
		rabbitmq.WithAdminUsername("guest"),
		rabbitmq.WithAdminPassword("guest"),
	)
	if err != nil {
		t.Fatalf("failed to start rabbitmq container: %v", err)
	}
	t.Cleanup(func() {
		container.Terminate(ctx)
	})

	url, err := container.AmqpURL(ctx)
	require.NoError(t, err)
	uri, err := amqp.ParseURI(url)
	require.NoError(t, err)

	return config.RabbitMQConfig{
		Host:            uri.Host,
		Port:            uri.Port,
		User:            uri.Username,
		Password:        uri.Password,
		Queue:           "questions",
		DeclareTopology: true,
		PrefetchCount:   1,
		ConsumerTag:     "answer-worker",
	}, url
}

func TestApp_AnswersQuestionOverRabbitMQ(t *testing.T) {
	rabbitCfg, amqpURL := setupBroker(t)
	search := newSearchServer(t)
	chat, prompts := newChatServer(t)

	cfg := &config.Config{}
	cfg.Broker.RabbitMQ = rabbitCfg
	cfg.Search = config.SearchConfig{URL: search.URL, Index: "peraturan", Limit: 5, Timeout: 5 * time.Second}
	cfg.Generation = config.GenerationConfig{APIKey: "sk-test", BaseURL: chat.URL + "/v1", Timeout: 5 * time.Second}
	cfg.RPC = config.RPCConfig{Workers: 2, Retry: config.RetryConfig{MaxAttempts: 1}}

	app := NewApp(cfg, logger.NopLogger())
	require.NoError(t, app.Initialize(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- app.Run(ctx)
	}()

	conn, err := amqp.Dial(amqpURL)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	ch, err := conn.Channel()
	require.NoError(t, err)

	_, err = ch.QueueDeclare("questions", true, false, false, false, nil)
	require.NoError(t, err)
	replyQueue, err := ch.QueueDeclare("", false, true, true, false, nil)
	require.NoError(t, err)
	replies, err := ch.Consume(replyQueue.Name, "", true, true, false, false, nil)
	require.NoError(t, err)

	pubCtx, cancelPub := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelPub()
	require.NoError(t, ch.PublishWithContext(pubCtx, "", "questions", false, false, amqp.Publishing{
		ContentType:   "application/json",
		CorrelationId: "corr-e2e",
		ReplyTo:       replyQueue.Name,
		Body:          []byte(`{"question": "Apa itu pajak daerah?"}`),
	}))

	select {
	case d := <-replies:
		assert.Equal(t, "corr-e2e", d.CorrelationId)
		assert.Equal(t, "application/json", d.ContentType)

		var payload models.AnswerPayload
		require.NoError(t, json.Unmarshal(d.Body, &payload))
		assert.Equal(t, "Pajak daerah diatur dalam UU 28/2009.", payload.Answer)
		assert.Empty(t, payload.Question)
	case <-time.After(30 * time.Second):
		t.Fatal("no reply received")
	}

	select {
	case prompt := <-prompts:
		assert.Contains(t, prompt, "Apa itu pajak daerah?")
		assert.Contains(t, prompt, "Pajak daerah adalah kontribusi wajib kepada daerah.")
		assert.NotContains(t, prompt, "lampiran")
	default:
		t.Fatal("model was not called")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("app did not stop")
	}
	assert.NoError(t, app.Shutdown(context.Background()))
}
