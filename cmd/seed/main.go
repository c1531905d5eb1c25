// Command seed fills a development database with demo users and kweks.
package main

import (
	"flag"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/kwekker/kwekker-be/internal/database"
	"github.com/kwekker/kwekker-be/internal/logger"
	"github.com/kwekker/kwekker-be/internal/services"
)

var demoUsers = []struct {
	username    string
	displayName string
}{
	{"quackeline", "Quackeline Duck"},
	{"drake", "Drake Mallard"},
	{"webby", "Webby Vanderquack"},
}

var demoKweks = []string{
	"First kwek!",
	"Does anyone else hear quacking?",
	"Shipping the new pond feature today.",
	"Bread is not actually good for ducks, pass it on.",
}

func main() {
	logger.Init("seed")

	dbPath := flag.String("db", "./kwekker.db", "path to the database file")
	flag.Parse()

	db, err := database.New(*dbPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}

	kwekService := services.NewKwekService(db)

	for i, u := range demoUsers {
		// Subject ids in the provider's "auth0|<id>" shape.
		providerID := "auth0|" + uuid.New().String()
		_, err := db.Exec(
			"INSERT INTO users(provider_id, username, email, display_name, avatar_url) VALUES(?, ?, ?, ?, ?)",
			providerID, u.username, u.username+"@kwekker.example", u.displayName,
			fmt.Sprintf("https://avatars.kwekker.example/%s.png", u.username))
		if err != nil {
			log.Fatal().Err(err).Str("username", u.username).Msg("Failed to insert demo user")
		}

		for j, text := range demoKweks {
			if (i+j)%len(demoUsers) != 0 {
				continue
			}
			if _, err := kwekService.CreateKwek(providerID, text); err != nil {
				log.Fatal().Err(err).Str("username", u.username).Msg("Failed to insert demo kwek")
			}
		}
	}

	log.Info().Str("db", *dbPath).Msg("Seeded demo data")
}
