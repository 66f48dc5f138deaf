package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/abuzarkhan1/Ecommerce-Hoc/internal/config"
	"github.com/abuzarkhan1/Ecommerce-Hoc/internal/notification"
	notificationamqp "github.com/abuzarkhan1/Ecommerce-Hoc/internal/notification/amqp"
	"github.com/abuzarkhan1/Ecommerce-Hoc/internal/search"
	"github.com/abuzarkhan1/Ecommerce-Hoc/internal/search/elasticsearch"
	"github.com/abuzarkhan1/Ecommerce-Hoc/internal/search/memory"
	"github.com/abuzarkhan1/Ecommerce-Hoc/pkg/httpclient"
)

type searchEngine = search.Engine

type pinger interface {
	Ping(ctx context.Context) error
}

// newSearchEngine returns the Elasticsearch engine when a URL is configured
// and an in-process engine otherwise. The second value is non-nil only for
// Elasticsearch so it can be health checked.
func newSearchEngine(ctx context.Context, cfg *config.Config, logger *slog.Logger) (search.Engine, pinger, error) {
	if cfg.ElasticsearchURL == "" {
		logger.Warn("no elasticsearch url configured, using in-memory search")
		return memory.New(), nil, nil
	}

	es, err := elasticsearch.New(elasticsearch.Config{
		URL:   cfg.ElasticsearchURL,
		Index: cfg.ElasticsearchIndex,
	}, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("create elasticsearch engine: %w", err)
	}
	if err := es.EnsureIndex(ctx); err != nil {
		return nil, nil, fmt.Errorf("ensure search index: %w", err)
	}
	logger.Info("elasticsearch engine initialized",
		slog.String("url", cfg.ElasticsearchURL),
		slog.String("index", cfg.ElasticsearchIndex),
	)
	return es, es, nil
}

func newSender(cfg *config.Config, logger *slog.Logger) (notification.Sender, error) {
	switch cfg.NotifyTransport {
	case config.NotifyHTTP:
		client := httpclient.NewCircuitBreakerClient(
			httpclient.New(httpclient.DefaultConfig()),
			httpclient.DefaultCircuitBreakerConfig("email-api"),
			logger,
		)
		return notification.NewHTTPSender(client, cfg.EmailAPIURL), nil
	case config.NotifyAMQP:
		s, err := notificationamqp.Dial(cfg.AMQPURL, cfg.AMQPQueue)
		if err != nil {
			return nil, fmt.Errorf("connect notification broker: %w", err)
		}
		return s, nil
	default:
		return notification.NewLogSender(logger), nil
	}
}
