package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/subosito/gotenv"

	"github.com/garyjia/procurement-workflow/internal/config"
	"github.com/garyjia/procurement-workflow/internal/domain/entity"
	httpserver "github.com/garyjia/procurement-workflow/internal/interfaces/http"
)

// Prints a signed bearer token for local testing of the API.
//
//	issue-token -user 12 -role general_manager -ttl 8h

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML configuration file")
	userID := flag.Int64("user", 0, "user ID placed in the sub claim")
	roleName := flag.String("role", string(entity.RoleEmployee), "role claim")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	_ = gotenv.Load()

	if *userID <= 0 {
		log.Fatal("-user must be a positive ID")
	}
	role, ok := entity.ParseRole(*roleName)
	if !ok {
		log.Fatalf("unknown role %q", *roleName)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	now := time.Now()
	token, err := httpserver.IssueToken(cfg.Auth.JWTSecret, *userID, role, jwt.MapClaims{
		"iat": now.Unix(),
		"exp": now.Add(*ttl).Unix(),
	})
	if err != nil {
		log.Fatalf("Failed to sign token: %v", err)
	}

	fmt.Println(token)
}
