package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"time"

	"tradematch/internal/config"
	"tradematch/internal/domain"
	"tradematch/internal/domain/model"
	"tradematch/internal/domain/ports/repository"
	"tradematch/internal/infra/api"
	pg "tradematch/internal/infra/db/postgres"
	"tradematch/internal/infra/security"
)

type seedOwner struct {
	UserID   string
	Company  string
	Country  string
	Plan     model.PlanTier
	Email    string
	Verified bool
}

type seedMatch struct {
	Counterparty string
	Country      string
	City         string
	Tier         model.MatchTier
	Score        float64
	Products     []model.ProductRef
	Reasons      []string
	Warnings     []string
	Volume       string
	Frequency    string
	Years        int
	ContactName  string
	ContactEmail string
	ContactPhone string
	Website      string
}

var owners = []seedOwner{
	{"demo-free", "Anatolia Textiles", "TR", model.PlanTierFree, "free@example.com", true},
	{"demo-pro", "Baltic Timber", "LV", model.PlanTierPro, "pro@example.com", true},
	{"demo-unverified", "Nile Cotton", "EG", model.PlanTierFree, "new@example.com", false},
}

var matches = []seedMatch{
	{
		Counterparty: "Hamburg Fabric Imports", Country: "DE", City: "Hamburg", Tier: model.MatchTierBest, Score: 0.94,
		Products: []model.ProductRef{{Code: "5208", Name: "Woven cotton fabrics"}},
		Reasons:  []string{"Imports HS 5208 monthly", "Volume fits your capacity"},
		Volume:   "40 containers/yr", Frequency: "monthly", Years: 12,
		ContactName: "Lena Vogt", ContactEmail: "l.vogt@hfi.example", ContactPhone: "+49 40 5550101", Website: "https://hfi.example",
	},
	{
		Counterparty: "Lyon Maison Textile", Country: "FR", City: "Lyon", Tier: model.MatchTierGreat, Score: 0.81,
		Products: []model.ProductRef{{Code: "6302", Name: "Bed linen"}},
		Reasons:  []string{"Recurring buyer of bed linen"},
		Warnings: []string{"Prefers EUR invoicing"},
		Volume:   "12 containers/yr", Frequency: "quarterly", Years: 7,
		ContactName: "Marc Dubois", ContactEmail: "marc@lmt.example", ContactPhone: "+33 4 5550 2020",
	},
	{
		Counterparty: "Rotterdam Home Goods", Country: "NL", Tier: model.MatchTierGood, Score: 0.66,
		Products: []model.ProductRef{{Code: "6304", Name: "Furnishing articles"}},
		Reasons:  []string{"Ships through your nearest port"},
		Volume:   "5 containers/yr", Frequency: "biannual", Years: 3,
		ContactName: "Sanne de Wit", ContactEmail: "sanne@rhg.example", ContactPhone: "+31 10 555 3030",
	},
	{
		Counterparty: "Milano Tessuti", Country: "IT", City: "Milan", Tier: model.MatchTierGreat, Score: 0.78,
		Products: []model.ProductRef{{Code: "5208", Name: "Woven cotton fabrics"}, {Code: "5209", Name: "Heavy cotton fabrics"}},
		Reasons:  []string{"Two overlapping product lines"},
		Volume:   "20 containers/yr", Frequency: "monthly", Years: 15,
		ContactName: "Giulia Rossi", ContactEmail: "g.rossi@mt.example", ContactPhone: "+39 02 555 4040", Website: "https://mt.example",
	},
}

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "lifetime of the printed session tokens")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	var opts []pg.MatchRepoOption
	if cfg.Security.ContactKey != "" {
		sealer, err := security.NewContactSealer(cfg.Security.ContactKey)
		if err != nil {
			log.Fatalf("contact sealer: %v", err)
		}
		opts = append(opts, pg.WithContactSealer(sealer))
	}
	profileRepo := pg.NewProfileRepo(pool)
	matchRepo := pg.NewMatchRepo(pool, opts...)
	auth := api.NewAuthManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer)

	for _, o := range owners {
		// Existing owners are left alone so reruns keep their reveal history.
		if _, err := profileRepo.FindByUserID(ctx, repository.NoTX, o.UserID); err == nil {
			fmt.Printf("owner %s already present. No changes.\n", o.UserID)
		} else if errors.Is(err, domain.ErrNotFound) {
			if err := seedOwnerData(ctx, profileRepo, matchRepo, o); err != nil {
				log.Fatalf("seed owner %s: %v", o.UserID, err)
			}
			fmt.Printf("seeded: %s (%s, plan=%s, matches=%d)\n", o.UserID, o.Company, o.Plan, len(matches))
		} else {
			log.Fatalf("lookup owner %s: %v", o.UserID, err)
		}

		tok, err := auth.Mint(o.UserID, o.Email, o.Verified, *tokenTTL)
		if err != nil {
			log.Fatalf("mint token for %s: %v", o.UserID, err)
		}
		fmt.Printf("  token: %s\n", tok)
	}

	fmt.Println("Seeding complete.")
}

func seedOwnerData(ctx context.Context, profiles repository.ProfileRepository, repo repository.MatchRepository, o seedOwner) error {
	p, err := model.NewProfile(o.UserID, o.Company, o.Country, o.Plan)
	if err != nil {
		return err
	}
	if err := profiles.Save(ctx, repository.NoTX, p); err != nil {
		return err
	}

	for i, s := range matches {
		m, err := model.NewMatch(fmt.Sprintf("%s-m%d", o.UserID, i+1), o.UserID, s.Counterparty, s.Country, s.Tier, s.Score)
		if err != nil {
			return err
		}
		// Stagger creation so the newest sort is stable.
		m.CreatedAt = m.CreatedAt.Add(-time.Duration(i) * time.Hour)
		if s.City != "" {
			city := s.City
			m.City = &city
		}
		m.Products = s.Products
		m.Reasons = s.Reasons
		m.Warnings = s.Warnings
		m.Breakdown = model.ScoreBreakdown{ProductOverlap: s.Score, VolumeFit: s.Score, GeographyFit: s.Score, Reliability: s.Score}
		m.TradeData = &model.TradeData{Volume: s.Volume, Frequency: s.Frequency, YearsActive: s.Years}
		m.Contact = &model.CounterpartyContact{Name: s.ContactName, Email: s.ContactEmail, Phone: s.ContactPhone, Title: "Purchasing Manager"}
		if s.Website != "" {
			site := s.Website
			m.Contact.Website = &site
		}
		if err := repo.Save(ctx, repository.NoTX, m); err != nil {
			return err
		}
	}
	return nil
}
