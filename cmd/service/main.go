package main

import (
	"os"
	"strconv"

	"github.com/mfiedler/contactbook/internal/auth"
	"github.com/mfiedler/contactbook/internal/logger"
	"github.com/mfiedler/contactbook/internal/service"
)

// Usage example on the command line:
// > PORT=8080 DBHOST=localhost DBUSER=dirk DBPWD=bullo92 JWT_SECRET=changeme GIN_MODE=release go run main.go
func main() {
	log, err := logger.New(os.Getenv("LOG_MODE"))
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET env variable must be set")
	}
	port, err := strconv.Atoi(os.Getenv("PORT"))
	if err != nil {
		log.Fatal("could not parse PORT env variable", "error", err)
	}

	sqlDB := service.CreateDatabase(log)
	service.SetupContactStore(sqlDB, log)
	router := service.SetupHttpRouter(auth.New(secret))
	log.Info("starting contactbook service", "port", port)
	if err := router.Run(":" + strconv.Itoa(port)); err != nil {
		log.Fatal("server stopped", "error", err)
	}
}
