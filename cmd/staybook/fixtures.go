package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	domainproperty "staybook/internal/domain/property"
	"staybook/internal/domain/shared/money"
	domainuser "staybook/internal/domain/user"
)

// seeder is satisfied by both storage backends.
type seeder interface {
	SeedProperty(ctx context.Context, p *domainproperty.Property) error
	SeedUser(ctx context.Context, u *domainuser.User) error
}

type fixtureFile struct {
	Users      []userFixture     `json:"users"`
	Properties []propertyFixture `json:"properties"`
}

type userFixture struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Roles []string `json:"roles"`
}

type propertyFixture struct {
	ID                 string `json:"id"`
	Owner              string `json:"owner"`
	Title              string `json:"title"`
	PricePerNightCents int64  `json:"price_per_night_cents"`
	Currency           string `json:"currency"`
	MaxGuests          int    `json:"max_guests"`
	Available          *bool  `json:"available"`
}

// loadFixtures imports users and properties standing in for the external
// directories. Invalid entries are logged and skipped.
func loadFixtures(ctx context.Context, path string, target seeder, logger *slog.Logger) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("fixtures file not found, skipping", "path", path)
			return nil
		}
		return fmt.Errorf("read fixtures: %w", err)
	}
	if len(data) == 0 {
		logger.Warn("fixtures file empty", "path", path)
		return nil
	}
	var fixtures fixtureFile
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return fmt.Errorf("decode fixtures: %w", err)
	}

	now := time.Now().UTC()
	for _, fx := range fixtures.Users {
		roles := make([]domainuser.Role, 0, len(fx.Roles))
		for _, r := range fx.Roles {
			roles = append(roles, domainuser.Role(r))
		}
		usr, err := domainuser.NewUser(domainuser.CreateParams{ID: domainuser.ID(fx.ID), Name: fx.Name, Roles: roles, CreatedAt: now})
		if err != nil {
			logger.Error("fixture user invalid", "user_id", fx.ID, "error", err)
			continue
		}
		if err := target.SeedUser(ctx, usr); err != nil {
			return fmt.Errorf("seed user %s: %w", fx.ID, err)
		}
	}
	for _, fx := range fixtures.Properties {
		currency := fx.Currency
		if currency == "" {
			currency = "USD"
		}
		price, err := money.New(fx.PricePerNightCents, currency)
		if err != nil {
			logger.Error("fixture property price invalid", "property_id", fx.ID, "error", err)
			continue
		}
		available := true
		if fx.Available != nil {
			available = *fx.Available
		}
		property, err := domainproperty.NewProperty(domainproperty.CreateParams{
			ID:            domainproperty.ID(fx.ID),
			Owner:         domainproperty.OwnerID(fx.Owner),
			Title:         fx.Title,
			PricePerNight: price,
			MaxGuests:     fx.MaxGuests,
			Available:     available,
			Now:           now,
		})
		if err != nil {
			logger.Error("fixture property invalid", "property_id", fx.ID, "error", err)
			continue
		}
		if err := target.SeedProperty(ctx, property); err != nil {
			return fmt.Errorf("seed property %s: %w", fx.ID, err)
		}
		logger.Info("property fixture imported", "property_id", property.ID)
	}
	return nil
}
