package main

import (
	"context"
	"flag"
	"os"

	"github.com/b2cuseradmin/useradmin/internal/config"
	"github.com/b2cuseradmin/useradmin/internal/database"
	"github.com/b2cuseradmin/useradmin/internal/users"
	"github.com/b2cuseradmin/useradmin/pkg/logger"
)

// seed creates every user of a JSON fixture in the configured MongoDB directory.
// The directory assigns fresh objectIds; fixture objectIds are ignored.
func main() {
	fixture := flag.String("fixture", "users.json", "path to a {\"users\": [...]} fixture")
	flag.Parse()
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	if cfg.Directory.Backend != config.BackendMongo {
		logger.Fatalf("seed needs the mongo directory backend (set MONGODB_URI)")
	}

	data, err := users.LoadFixtureFile(*fixture)
	if err != nil {
		logger.Fatalf("%v", err)
	}
	list, err := users.ParseFixture(data)
	if err != nil {
		logger.Fatalf("%v", err)
	}

	ctx := context.Background()
	client, err := database.ConnectMongoWithRetry(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout, 3)
	if err != nil {
		logger.Fatalf("cannot connect to MongoDB: %v", err)
	}
	defer func() { _ = client.Disconnect(ctx) }()

	svc := users.NewService(users.NewMongoRepository(client.Database(cfg.MongoDB.Database).Collection(cfg.MongoDB.Collection)))
	created := 0
	for i := range list {
		u, err := svc.Create(ctx, &list[i])
		if err != nil {
			logger.Errorf("skipping %s: %v", list[i].Email, err)
			continue
		}
		created++
		logger.Infof("created %s as %s", u.Email, u.ObjectID)
	}
	logger.Infof("seeded %d/%d users", created, len(list))
}
