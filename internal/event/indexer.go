package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/abuzarkhan1/Ecommerce-Hoc/internal/search"
	pkgkafka "github.com/abuzarkhan1/Ecommerce-Hoc/pkg/kafka"
)

// SearchIndexer keeps the search index in line with product events.
type SearchIndexer struct {
	engine search.Engine
	logger *slog.Logger
}

func NewSearchIndexer(engine search.Engine, logger *slog.Logger) *SearchIndexer {
	return &SearchIndexer{engine: engine, logger: logger}
}

// Handle is a pkgkafka.Handler. Events it does not index are ignored.
func (i *SearchIndexer) Handle(ctx context.Context, evt *pkgkafka.Event) error {
	switch evt.EventType {
	case ProductCreated, ProductUpdated, ProductRated:
		var data ProductData
		if err := evt.UnmarshalData(&data); err != nil {
			return fmt.Errorf("decode %s payload: %w", evt.EventType, err)
		}
		if err := i.engine.Index(ctx, search.DocumentFromProduct(data.Product())); err != nil {
			return fmt.Errorf("index product %s: %w", data.ID, err)
		}
	case ProductDeleted:
		var data ProductDeletedData
		if err := evt.UnmarshalData(&data); err != nil {
			return fmt.Errorf("decode %s payload: %w", evt.EventType, err)
		}
		if err := i.engine.Delete(ctx, data.ID); err != nil {
			return fmt.Errorf("remove product %s from index: %w", data.ID, err)
		}
	default:
		i.logger.DebugContext(ctx, "ignoring event",
			slog.String("event_type", evt.EventType),
			slog.String("event_id", evt.EventID),
		)
	}
	return nil
}
