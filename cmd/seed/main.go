// Command seed populates the storefront database with an admin account and a
// deterministic furniture catalog. Re-running it leaves existing rows alone.
//
// Run: go run ./cmd/seed -products 200
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/comfyhome/storefront/internal/auth"
	"github.com/comfyhome/storefront/internal/config"
	"github.com/comfyhome/storefront/internal/domain"
	"github.com/comfyhome/storefront/internal/repository/postgres"
	"github.com/comfyhome/storefront/migrations"
	"github.com/comfyhome/storefront/pkg/database"
	apperrors "github.com/comfyhome/storefront/pkg/errors"
	"github.com/comfyhome/storefront/pkg/logger"
)

const batchSize = 100

// productNamespace keeps generated product ids stable across runs.
var productNamespace = uuid.MustParse("6f1c9a52-3d0e-4f7b-9a51-2c8e4b7d1a90")

var (
	adjectives = []string{"Modern", "Rustic", "Nordic", "Vintage", "Compact", "Deluxe", "Classic", "Minimal"}
	pieces     = map[string][]string{
		"office":  {"Desk", "Office Chair", "Bookshelf", "Filing Cabinet", "Desk Lamp"},
		"kitchen": {"Dining Table", "Bar Stool", "Pantry Shelf", "Kitchen Island", "Bench"},
		"bedroom": {"Bed Frame", "Nightstand", "Dresser", "Wardrobe", "Vanity"},
	}
	palette = []string{"#222", "#ff0000", "#00ff00", "#0000ff", "#ffb900"}
)

func main() {
	products := flag.Int("products", 60, "number of products to generate")
	adminEmail := flag.String("admin-email", "admin@comfyhome.test", "email of the seeded admin")
	adminPassword := flag.String("admin-password", "secret123", "password of the seeded admin")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log := logger.New("storefront-seed", cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := run(ctx, cfg, log, *products, *adminEmail, *adminPassword); err != nil {
		log.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger, n int, adminEmail, adminPassword string) error {
	pool, err := database.NewPostgresPool(ctx, &cfg.Postgres, log)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	if err := database.RunMigrations(ctx, pool, migrations.FS, log); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	admin, err := ensureAdmin(ctx, postgres.NewUserRepository(pool), adminEmail, adminPassword)
	if err != nil {
		return err
	}
	log.Info("admin ready", slog.String("user_id", admin.ID), slog.String("role", admin.Role.String()))

	generated := generateProducts(n, admin.ID)
	inserted := 0
	for start := 0; start < len(generated); start += batchSize {
		end := min(start+batchSize, len(generated))

		batch := &pgx.Batch{}
		for _, p := range generated[start:end] {
			batch.Queue(`
				INSERT INTO products (id, name, price, description, image, category, company, colors,
				                      featured, free_shipping, inventory, user_id, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)
				ON CONFLICT (id) DO NOTHING`,
				p.ID, p.Name, p.Price, p.Description, p.Image, p.Category, p.Company, p.Colors,
				p.Featured, p.FreeShipping, p.Inventory, p.UserID, p.CreatedAt,
			)
		}

		results := pool.SendBatch(ctx, batch)
		for range generated[start:end] {
			tag, err := results.Exec()
			if err != nil {
				_ = results.Close()
				return fmt.Errorf("insert products: %w", err)
			}
			inserted += int(tag.RowsAffected())
		}
		if err := results.Close(); err != nil {
			return fmt.Errorf("close batch: %w", err)
		}
	}

	log.Info("catalog seeded",
		slog.Int("generated", len(generated)),
		slog.Int("inserted", inserted),
	)
	return nil
}

// ensureAdmin creates the admin account, or loads it when it already exists.
// On an empty database the first account is promoted to admin by the
// repository.
func ensureAdmin(ctx context.Context, users *postgres.UserRepository, email, password string) (*domain.User, error) {
	existing, err := users.GetByEmail(ctx, email)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("look up admin: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash admin password: %w", err)
	}

	now := time.Now().UTC()
	admin := &domain.User{
		ID:           uuid.NewString(),
		Name:         "Admin",
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := users.Create(ctx, admin); err != nil {
		return nil, fmt.Errorf("create admin: %w", err)
	}
	return admin, nil
}

// generateProducts builds n products. The same n always yields the same
// catalog.
func generateProducts(n int, ownerID string) []domain.Product {
	rng := rand.New(rand.NewPCG(42, 7))
	now := time.Now().UTC()

	out := make([]domain.Product, 0, n)
	for i := range n {
		category := domain.Categories[i%len(domain.Categories)]
		company := domain.Companies[rng.IntN(len(domain.Companies))]
		name := fmt.Sprintf("%s %s", adjectives[rng.IntN(len(adjectives))], pieces[category][rng.IntN(len(pieces[category]))])

		colors := []string{palette[rng.IntN(len(palette))]}
		if rng.IntN(2) == 0 {
			colors = append(colors, palette[rng.IntN(len(palette))])
		}

		p := domain.Product{
			ID:           uuid.NewSHA1(productNamespace, fmt.Appendf(nil, "product:%d", i)).String(),
			Name:         name,
			Price:        int64(rng.IntN(90000) + 999),
			Description:  fmt.Sprintf("%s by %s, made for the %s.", name, company, category),
			Category:     category,
			Company:      company,
			Colors:       colors,
			Featured:     rng.IntN(5) == 0,
			FreeShipping: rng.IntN(3) == 0,
			Inventory:    rng.IntN(40) + 1,
			UserID:       ownerID,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		p.ApplyDefaults()
		out = append(out, p)
	}
	return out
}
