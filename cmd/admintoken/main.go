package main

import (
	"fmt"
	"log"

	"github.com/sirupsen/logrus"

	config "github.com/bibeksah-dev/NRAI-Kancha/configs"
	"github.com/bibeksah-dev/NRAI-Kancha/internal/infrastructure/httpserver/middleware"
)

// admintoken mints a bearer token for the administrative endpoints. The
// token is signed with ADMIN_JWT_SECRET and expires after ADMIN_TOKEN_TTL.
func main() {
	cfg, err := config.LoadAdmin()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	token, err := middleware.MintAdminToken(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to mint admin token")
	}
	fmt.Println(token)
}
