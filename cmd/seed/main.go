// Command seed populates the catalog with generated products and colors
// through the product service, so slugs and validation match the API. When
// ELASTICSEARCH_URL is set the documents are bulk indexed afterwards.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/abuzarkhan1/Ecommerce-Hoc/internal/config"
	"github.com/abuzarkhan1/Ecommerce-Hoc/internal/event"
	"github.com/abuzarkhan1/Ecommerce-Hoc/internal/repository/postgres"
	"github.com/abuzarkhan1/Ecommerce-Hoc/internal/search"
	"github.com/abuzarkhan1/Ecommerce-Hoc/internal/search/elasticsearch"
	"github.com/abuzarkhan1/Ecommerce-Hoc/internal/service"
	pkgconfig "github.com/abuzarkhan1/Ecommerce-Hoc/pkg/config"
	"github.com/abuzarkhan1/Ecommerce-Hoc/pkg/database"
	apperrors "github.com/abuzarkhan1/Ecommerce-Hoc/pkg/errors"
	pkgkafka "github.com/abuzarkhan1/Ecommerce-Hoc/pkg/kafka"
	"github.com/abuzarkhan1/Ecommerce-Hoc/pkg/logger"
)

const indexBatch = 500

var colorNames = []string{"Black", "White", "Navy", "Red", "Olive", "Beige", "Grey", "Burgundy"}

var adjectives = []string{"Classic", "Everyday", "Soft", "Lightweight", "Premium", "Relaxed", "Slim", "Vintage"}

var nouns = []string{"Mug", "Backpack", "Hoodie", "Lamp", "Notebook", "Sneakers", "Scarf", "Water Bottle", "Desk Mat", "Jacket"}

var tagPool = []string{"new", "sale", "eco", "gift", "bestseller", "limited"}

func main() {
	count := flag.Int("count", 200, "number of products to create")
	seed := flag.Int64("seed", 1, "random seed; the same seed yields the same catalog")
	flag.Parse()

	if err := pkgconfig.LoadDotEnv(".env"); err != nil {
		slog.Error("failed to read .env", slog.String("error", err.Error()))
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log := logger.New("storefront-seed", cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if err := run(ctx, cfg, *count, rand.New(rand.NewSource(*seed)), log); err != nil {
		log.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, count int, rng *rand.Rand, log *slog.Logger) error {
	pool, err := database.NewPostgresPool(ctx, &database.PostgresConfig{
		Host:     cfg.PostgresHost,
		Port:     cfg.PostgresPort,
		User:     cfg.PostgresUser,
		Password: cfg.PostgresPass,
		DBName:   cfg.PostgresDB,
		SSLMode:  cfg.PostgresSSL,
		MaxConns: 4,
		MinConns: 1,
	}, log)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	if err := database.RunMigrations(ctx, pool, postgres.Migrations(), log); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	products := service.NewProductService(
		postgres.NewProductRepository(pool),
		postgres.NewColorRepository(pool),
		postgres.NewWishlistRepository(pool),
		event.NewProducer(pkgkafka.NopPublisher{}, log),
		nil,
		false,
		log,
	)

	colorIDs, err := seedColors(ctx, products)
	if err != nil {
		return err
	}

	docs := make([]search.Document, 0, count)
	for i := range count {
		p, err := products.CreateProduct(ctx, generateProduct(rng, colorIDs))
		if err != nil {
			return fmt.Errorf("create product %d: %w", i, err)
		}
		docs = append(docs, *search.DocumentFromProduct(p))
	}
	log.Info("products created", slog.Int("count", len(docs)))

	if cfg.ElasticsearchURL == "" {
		return nil
	}
	return indexDocuments(ctx, cfg, docs, log)
}

// seedColors creates the palette and returns the ids of every stored color.
// Colors that already exist are left alone.
func seedColors(ctx context.Context, products *service.ProductService) ([]string, error) {
	for _, name := range colorNames {
		if _, err := products.CreateColor(ctx, name); err != nil && !errors.Is(err, apperrors.ErrAlreadyExists) {
			return nil, fmt.Errorf("create color %s: %w", name, err)
		}
	}
	colors, err := products.ListColors(ctx)
	if err != nil {
		return nil, fmt.Errorf("list colors: %w", err)
	}
	ids := make([]string, 0, len(colors))
	for _, c := range colors {
		ids = append(ids, c.ID)
	}
	return ids, nil
}

func generateProduct(rng *rand.Rand, colorIDs []string) *service.CreateProductInput {
	title := fmt.Sprintf("%s %s", adjectives[rng.Intn(len(adjectives))], nouns[rng.Intn(len(nouns))])

	var colors []string
	if len(colorIDs) > 0 {
		for _, i := range rng.Perm(len(colorIDs))[:1+rng.Intn(min(3, len(colorIDs)))] {
			colors = append(colors, colorIDs[i])
		}
	}
	tags := []string{tagPool[rng.Intn(len(tagPool))]}

	return &service.CreateProductInput{
		Title:       title,
		Description: fmt.Sprintf("A %s for every day.", title),
		Price:       int64(499 + rng.Intn(200)*50), // cents
		Stock:       rng.Intn(250),
		Colors:      colors,
		Tags:        tags,
		Images:      []string{fmt.Sprintf("https://picsum.photos/seed/%d/600/600", rng.Int63())},
	}
}

func indexDocuments(ctx context.Context, cfg *config.Config, docs []search.Document, log *slog.Logger) error {
	es, err := elasticsearch.New(elasticsearch.Config{
		URL:   cfg.ElasticsearchURL,
		Index: cfg.ElasticsearchIndex,
	}, log)
	if err != nil {
		return fmt.Errorf("create elasticsearch engine: %w", err)
	}
	if err := es.EnsureIndex(ctx); err != nil {
		return fmt.Errorf("ensure search index: %w", err)
	}

	for start := 0; start < len(docs); start += indexBatch {
		end := min(start+indexBatch, len(docs))
		if err := es.BulkIndex(ctx, docs[start:end]); err != nil {
			return fmt.Errorf("bulk index %d-%d: %w", start, end, err)
		}
	}
	log.Info("documents indexed", slog.Int("count", len(docs)), slog.String("index", cfg.ElasticsearchIndex))
	return nil
}
