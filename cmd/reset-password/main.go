package main

import (
	"context"
	"flag"
	"os"

	"go-apotek-pos/internal/config"
	"go-apotek-pos/internal/repository"
	"go-apotek-pos/pkg/database"

	"golang.org/x/crypto/bcrypt"
)

// Resets a user's password directly in the database. Defaults to the seeded admin.
func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	logger := config.NewLogger(cfg)

	email := flag.String("email", cfg.AdminEmail, "account to reset")
	newPassword := flag.String("password", cfg.AdminPassword, "new password")
	flag.Parse()

	db, err := database.Connect(cfg.DSN(), logger)
	if err != nil {
		logger.Error("failed to connect database", "err", err)
		os.Exit(1)
	}

	ctx := context.Background()
	users := repository.NewUserRepo(db)

	user, err := users.FindByEmail(ctx, *email)
	if err != nil {
		logger.Error("user not found", "email", *email, "err", err)
		os.Exit(1)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(*newPassword), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("failed to hash password", "err", err)
		os.Exit(1)
	}

	if err := users.UpdatePassword(ctx, user.ID, string(hashedPassword)); err != nil {
		logger.Error("failed to update password", "err", err)
		os.Exit(1)
	}

	logger.Info("password reset", "email", *email)
}
