// Command seed loads a demo catalog, floor plan, staff and loyalty
// settings into the configured store. Existing documents with the same
// keys are skipped.
package main

import (
	"context"
	"errors"
	"flag"
	"log"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/nexpos/engine/internal/config"
	"github.com/nexpos/engine/internal/enum"
	"github.com/nexpos/engine/internal/model"
	"github.com/nexpos/engine/internal/store"
	"github.com/nexpos/engine/internal/store/rtdb"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to YAML config file")
	adminPIN := flag.String("admin-pin", "1234", "PIN for the seeded admin account")
	cashierPIN := flag.String("cashier-pin", "0000", "PIN for the seeded cashier account")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Store.Backend != "rtdb" {
		log.Fatalf("Seeding requires the rtdb store backend, got %q", cfg.Store.Backend)
	}

	ctx := context.Background()
	st, err := rtdb.New(ctx, rtdb.Config{
		DatabaseURL:     cfg.Store.DatabaseURL,
		CredentialsPath: cfg.Store.CredentialsPath,
		PollInterval:    cfg.Store.PollInterval,
	})
	if err != nil {
		log.Fatalf("Failed to connect to store: %v", err)
	}
	log.Println("Connected to store")

	created := 0
	for _, p := range demoProducts() {
		created += seedDoc(ctx, st, store.CollProducts, p.ID, p)
	}
	for _, t := range demoTables() {
		created += seedDoc(ctx, st, store.CollTables, t.ID, t)
	}
	for _, s := range demoStaff(*adminPIN, *cashierPIN) {
		created += seedDoc(ctx, st, store.CollStaff, s.ID, s)
	}
	created += seedDoc(ctx, st, store.CollSettings, "loyalty", model.DefaultLoyaltySettings())

	log.Printf("Seed completed, %d documents created", created)
}

// seedDoc creates one document, skipping keys that already exist.
// Returns 1 if the document was created.
func seedDoc(ctx context.Context, st store.Store, coll, key string, v any) int {
	err := st.Create(ctx, coll, key, v)
	if errors.Is(err, store.ErrExists) {
		log.Printf("%s/%s already exists, skipping", coll, key)
		return 0
	}
	if err != nil {
		log.Fatalf("Failed to seed %s/%s: %v", coll, key, err)
	}
	log.Printf("Created %s/%s", coll, key)
	return 1
}

func demoProducts() []model.Product {
	price := decimal.NewFromInt
	return []model.Product{
		{
			ID: "P1", Name: "Classic Chicken Burger", Price: price(189),
			Category: "Food", Stock: 50, TaxRate: price(5),
			Variants: []model.VariantGroup{
				{
					ID: "v1", Name: "Size",
					Options: []model.VariantOption{
						{ID: "o1", Name: "Regular", PriceModifier: price(0)},
						{ID: "o2", Name: "Large", PriceModifier: price(60)},
					},
				},
				{
					ID: "v2", Name: "Add-ons",
					Options: []model.VariantOption{
						{ID: "a1", Name: "Cheese Slice", PriceModifier: price(20)},
						{ID: "a2", Name: "Extra Patty", PriceModifier: price(80)},
					},
				},
			},
		},
		{
			ID: "P2", Name: "Veggie Supreme Pizza", Price: price(349),
			Category: "Food", Stock: 20, TaxRate: price(5), IsVeg: true,
			Variants: []model.VariantGroup{
				{
					ID: "v_crust", Name: "Crust",
					Options: []model.VariantOption{
						{ID: "c1", Name: "Pan", PriceModifier: price(0)},
						{ID: "c2", Name: "Thin Crust", PriceModifier: price(30)},
						{ID: "c3", Name: "Cheese Burst", PriceModifier: price(90)},
					},
				},
			},
		},
		{ID: "P3", Name: "Peri Peri Fries", Price: price(129), Category: "Food", Stock: 100, TaxRate: price(5), IsVeg: true},
		{ID: "P4", Name: "Cappuccino", Price: price(149), Category: "Beverage", Stock: 200, TaxRate: price(18), IsVeg: true},
		{ID: "P5", Name: "Iced Lemon Tea", Price: price(119), Category: "Beverage", Stock: 150, TaxRate: price(18), IsVeg: true},
		{ID: "P6", Name: "Chocolate Brownie", Price: price(169), Category: "Dessert", Stock: 30, TaxRate: price(5)},
		{ID: "P7", Name: "Mineral Water (500ml)", Price: price(20), Category: "Beverage", Stock: 500, TaxRate: price(18), IsVeg: true},
		{ID: "P8", Name: "Paneer Tikka Wrap", Price: price(229), Category: "Food", Stock: 40, TaxRate: price(5), IsVeg: true},
	}
}

func demoTables() []model.Table {
	return []model.Table{
		{ID: "T1", Name: "Table 1", Floor: "Ground Floor"},
		{ID: "T2", Name: "Table 2", Floor: "Ground Floor"},
		{ID: "T3", Name: "Table 3", Floor: "Ground Floor"},
		{ID: "T4", Name: "Table 4", Floor: "Ground Floor"},
		{ID: "T5", Name: "Family 1", Floor: "First Floor"},
		{ID: "T6", Name: "Family 2", Floor: "First Floor"},
		{ID: "DEL-01", Name: "Delivery 1", Floor: "Delivery"},
		{ID: "TK-01", Name: "Takeaway", Floor: "Counter"},
	}
}

func demoStaff(adminPIN, cashierPIN string) []model.Staff {
	return []model.Staff{
		{ID: "ST123", Name: "John Doe", PINHash: mustHash(adminPIN), Role: enum.RoleAdmin},
		{ID: "ST124", Name: "Sarah Smith", PINHash: mustHash(cashierPIN), Role: enum.RoleCashier},
	}
}

func mustHash(pin string) string {
	hashed, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Failed to hash PIN: %v", err)
	}
	return string(hashed)
}
