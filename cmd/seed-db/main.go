// Command seed-db loads the ingredient catalog and an initial API key into
// the database. Inventory files may be plain JSON or gzip-compressed
// (.json.gz).
package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"

	"github.com/ovenlight/pizzatrack/internal/domain/auth"
	"github.com/ovenlight/pizzatrack/internal/domain/inventory"
	"github.com/ovenlight/pizzatrack/internal/storage/postgres"
)

type itemJSON struct {
	Type        string          `json:"item_type"`
	Name        string          `json:"item_name"`
	Stock       int             `json:"stock"`
	Threshold   int             `json:"threshold"`
	Price       decimal.Decimal `json:"price"`
	Active      *bool           `json:"is_active"`
	Description string          `json:"description"`
}

func main() {
	var (
		databaseURL   string
		inventoryFile string
		apiKey        string
		apiKeyName    string
		apiKeyRole    string
		apiKeyPepper  string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&inventoryFile, "inventory-file", "db/seed/inventory.json", "path to inventory JSON file (.json or .json.gz)")
	flag.StringVar(&apiKey, "api-key", "", "API key to seed (or PIZZA_SEED_API_KEY env)")
	flag.StringVar(&apiKeyName, "api-key-name", "seed", "name for the seeded API key")
	flag.StringVar(&apiKeyRole, "api-key-role", "staff", "role for the seeded API key (customer|staff)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or PIZZA_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("PIZZA_SEED_API_KEY")
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("PIZZA_API_KEY_PEPPER")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, databaseURL, inventoryFile, apiKey, apiKeyName, apiKeyRole, apiKeyPepper); err != nil {
		slog.Error("seed failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, databaseURL, inventoryFile, apiKey, apiKeyName, apiKeyRole, apiKeyPepper string) error {
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	items, err := loadInventory(inventoryFile)
	if err != nil {
		return errors.Wrap(err, "load inventory")
	}

	repo := postgres.NewInventoryRepository(pool)
	for _, item := range items {
		if err := repo.Create(ctx, &item); err != nil {
			return errors.Wrapf(err, "seed item %q", item.Name)
		}
	}
	slog.Info("inventory seeded", "items", len(items))

	if apiKey != "" {
		mac := hmac.New(sha256.New, []byte(apiKeyPepper))
		mac.Write([]byte(apiKey))
		hash := hex.EncodeToString(mac.Sum(nil))

		keys := postgres.NewAPIKeyRepository(pool)
		if err := keys.Insert(ctx, hash, apiKeyName, auth.Role(apiKeyRole)); err != nil {
			return errors.Wrap(err, "seed api key")
		}
		slog.Info("api key seeded", "name", apiKeyName, "role", apiKeyRole)
	}

	return nil
}

func loadInventory(path string) ([]inventory.Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var reader io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrap(err, "open gzip reader")
		}
		defer func() { _ = gz.Close() }()
		reader = gz
	}

	var raw []itemJSON
	if err := json.NewDecoder(reader).Decode(&raw); err != nil {
		return nil, errors.Wrap(err, "decode inventory JSON")
	}

	items := make([]inventory.Item, len(raw))
	for i, r := range raw {
		t := inventory.Type(r.Type)
		if !t.Valid() {
			return nil, errors.Errorf("item %q: unknown type %q", r.Name, r.Type)
		}
		active := true
		if r.Active != nil {
			active = *r.Active
		}
		threshold := r.Threshold
		if threshold < 1 {
			threshold = 10
		}
		items[i] = inventory.Item{
			Type:        t,
			Name:        r.Name,
			Stock:       r.Stock,
			Threshold:   threshold,
			Price:       r.Price,
			Active:      active,
			Description: r.Description,
		}
	}
	return items, nil
}
