// Command seed prepares a fresh deployment: it applies migrations, stores a
// default leaflet template, and prints an admin console token.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/richxcame/giveaway/internal/leaflet"
	"github.com/richxcame/giveaway/pkg/config"
	"github.com/richxcame/giveaway/pkg/database"
)

func main() {
	adminSubject := flag.String("admin", "admin", "subject claim for the issued console token")
	stickers := flag.Int("stickers", 2, "required sticker count for the default template")
	flag.Parse()

	cfg, err := config.Load("giveaway-seed")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := database.Migrate(&cfg.Database); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	pool, err := database.NewPostgresPool(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(pool)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo := leaflet.NewRepository(pool)
	existing, err := repo.ListTemplates(ctx)
	if err != nil {
		log.Fatalf("Failed to list templates: %v", err)
	}

	if len(existing) == 0 {
		id, err := repo.CreateTemplate(ctx, &leaflet.Template{
			Name:             "default",
			RequiredStickers: *stickers,
			Zones: []leaflet.ValidationZone{
				{X: 0.05, Y: 0.05, W: 0.25, H: 0.25},
				{X: 0.70, Y: 0.70, W: 0.25, H: 0.25},
			},
		})
		if err != nil {
			log.Fatalf("Failed to create default template: %v", err)
		}
		fmt.Printf("default leaflet template created (id %d)\n", id)
	} else {
		fmt.Printf("templates already present (%d), skipping\n", len(existing))
	}

	// When CONTEST_ADMIN_IDS restricts the console, the token subject has to
	// be one of the allowed IDs; default to the first unless -admin was set.
	subject := *adminSubject
	if subject == "admin" && len(cfg.Contest.AdminIDs) > 0 {
		subject = strconv.FormatInt(cfg.Contest.AdminIDs[0], 10)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(time.Duration(cfg.JWT.Expiration) * time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(cfg.JWT.Secret))
	if err != nil {
		log.Fatalf("Failed to sign admin token: %v", err)
	}
	fmt.Printf("admin console token:\n%s\n", signed)
}
