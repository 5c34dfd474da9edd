package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/jmehdipour/supplier-risk/internal/config"
	"github.com/jmehdipour/supplier-risk/internal/model"
	"github.com/jmehdipour/supplier-risk/internal/service/suppliers"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the row store with demo suppliers",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		provider, err := newStoreProvider(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = provider.Close() }()

		log.Println(">> Seeding demo suppliers...")

		svc := suppliers.New(provider, cfg.Store.Table)
		n, err := seedSuppliers(context.Background(), svc)
		if err != nil {
			return err
		}

		log.Printf(">> Seed completed: %d created", n)
		return nil
	},
}

// seedSuppliers creates a few deterministic demo suppliers; ids that already
// exist are skipped, so the command can run repeatedly.
func seedSuppliers(ctx context.Context, svc *suppliers.Service) (int, error) {
	demo := []model.Fields{
		{
			"id":                       model.String("sup-acme"),
			"name":                     model.String("Acme Cloud Ltda"),
			"cnpj":                     model.String("11.222.333/0001-81"),
			"category":                 model.String("cloud"),
			"contact_email":            model.String("dpo@acme.example"),
			"risk_score":               model.Int(72),
			"risk_level":               model.String("high"),
			"processes_sensitive_data": model.Bool(true),
			"international_transfer":   model.Bool(true),
			"has_dpo":                  model.Bool(true),
			"dpa_signed":               model.Bool(false),
		},
		{
			"id":                       model.String("sup-beta"),
			"name":                     model.String("Beta Folha de Pagamento"),
			"cnpj":                     model.String("22.333.444/0001-05"),
			"category":                 model.String("payroll"),
			"contact_email":            model.String("privacidade@beta.example"),
			"risk_score":               model.Int(41),
			"risk_level":               model.String("medium"),
			"processes_sensitive_data": model.Bool(true),
			"international_transfer":   model.Bool(false),
			"has_dpo":                  model.Bool(true),
			"dpa_signed":               model.Bool(true),
		},
		{
			"id":                       model.String("sup-gamma"),
			"name":                     model.String("Gamma Limpeza"),
			"category":                 model.String("facilities"),
			"risk_score":               model.Int(12),
			"risk_level":               model.String("low"),
			"processes_sensitive_data": model.Bool(false),
			"international_transfer":   model.Bool(false),
			"has_dpo":                  model.Bool(false),
			"dpa_signed":               model.Bool(true),
		},
	}

	created := 0
	for _, f := range demo {
		id := model.Record(f).ID()
		if _, err := svc.Get(ctx, id); err == nil {
			continue
		} else if suppliers.KindOf(err) != suppliers.KindNotFound {
			return created, fmt.Errorf("lookup %s: %w", id, err)
		}

		if _, err := svc.Create(ctx, f); err != nil {
			var se *suppliers.Error
			if errors.As(err, &se) && se.Err != nil {
				return created, fmt.Errorf("create %s: %s: %w", id, se.Message, se.Err)
			}
			return created, fmt.Errorf("create %s: %w", id, err)
		}
		created++
	}
	return created, nil
}
