package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/tazhate/dronecal/config"
	"github.com/tazhate/dronecal/internal/api"
	"github.com/tazhate/dronecal/internal/domain"
	"github.com/tazhate/dronecal/internal/service"
	"github.com/tazhate/dronecal/internal/storage"
)

type seedOptions struct {
	CompanyID string
	UserID    string
}

func addSeed(topLevel *cobra.Command) {
	opts := &seedOptions{}
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert demo missions, documents, equipment and calendar entries.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			store, err := storage.New(cfg.DatabasePath, nil)
			if err != nil {
				return err
			}
			defer store.Close()

			tenant := domain.Tenant{CompanyID: opts.CompanyID, UserID: opts.UserID}
			if err := seed(context.Background(), store, tenant, time.Now().In(cfg.Timezone)); err != nil {
				return err
			}
			return printToken(color.Output, cfg.JWTSecret, tenant)
		},
	}
	cmd.Flags().StringVar(&opts.CompanyID, "company", "demo", "company id")
	cmd.Flags().StringVar(&opts.UserID, "user", "demo-user", "user id")

	topLevel.AddCommand(cmd)
}

// seed spreads one row of every source over the coming days.
func seed(ctx context.Context, store *storage.Storage, tenant domain.Tenant, now time.Time) error {
	day := func(offset int) string { return now.AddDate(0, 0, offset).Format("2006-01-02") }
	str := func(s string) *string { return &s }

	if err := store.CreateMission(ctx, &domain.Mission{
		CompanyID: tenant.CompanyID, Title: "Inspeksjon av høyspentlinje", Location: "Hamar",
		StartsAt: str(day(1) + "T09:00:00"),
	}); err != nil {
		return fmt.Errorf("seed mission: %w", err)
	}
	if err := store.CreateDocument(ctx, &domain.Document{
		CompanyID: tenant.CompanyID, Title: "Ansvarsforsikring", Category: "Forsikring", ValidUntil: str(day(3)),
	}); err != nil {
		return fmt.Errorf("seed document: %w", err)
	}
	if err := store.CreateDrone(ctx, &domain.Drone{
		CompanyID: tenant.CompanyID, Model: "DJI Matrice 350", SerialNumber: "1581F5FJD228400", NextInspection: str(day(7)),
	}); err != nil {
		return fmt.Errorf("seed drone: %w", err)
	}
	if err := store.CreateEquipment(ctx, &domain.Equipment{
		CompanyID: tenant.CompanyID, Name: "Batterisett A", Type: "Batteri", NextMaintenance: str(day(5)),
	}); err != nil {
		return fmt.Errorf("seed equipment: %w", err)
	}
	if err := store.CreateIncident(ctx, &domain.Incident{
		CompanyID: tenant.CompanyID, Title: "Tap av GPS-signal", Description: "Returnerte manuelt",
		Severity: domain.SeverityMedium, OccurredAt: str(day(-1) + "T14:30:00"),
	}); err != nil {
		return fmt.Errorf("seed incident: %w", err)
	}

	_, err := service.NewCustomEventService(store).Create(ctx, tenant, domain.CustomEventDraft{
		Title: "Sikkerhetsmøte", Type: "Møte", Date: day(0), Time: str("13:00"),
	})
	if err != nil {
		return fmt.Errorf("seed custom event: %w", err)
	}
	return nil
}

func printToken(w io.Writer, secret string, tenant domain.Tenant) error {
	_, _ = fmt.Fprintln(w, color.GreenString("Seeded company %s", tenant.CompanyID))
	if secret == "" {
		return nil
	}
	token, err := api.SignToken(secret, tenant, 30*24*time.Hour)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "Token: %s\n", token)
	return err
}
