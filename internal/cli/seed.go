package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fekuna/omnipos-inventory-service/internal/category"
	catdto "github.com/fekuna/omnipos-inventory-service/internal/category/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/product"
	"github.com/fekuna/omnipos-inventory-service/internal/product/dto"
	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
)

type seedCategory struct {
	name        string
	description string
}

var seedCategories = []seedCategory{
	{"Fruits", "Fresh fruits and produce"},
	{"Vegetables", "Fresh vegetables and greens"},
	{"Dairy", "Milk, cheese, yogurt, and dairy products"},
	{"Meat & Poultry", "Fresh meat, chicken, and poultry"},
	{"Seafood", "Fish and seafood products"},
	{"Grains & Rice", "Rice, grains, and cereals"},
	{"Bread", "Bread and bakery products"},
	{"Dry Goods", "Pasta, beans, and dry ingredients"},
	{"Frozen Goods", "Frozen foods and products"},
	{"Beverages", "Drinks and beverages"},
}

type seedProduct struct {
	category string
	input    dto.CreateProductInput
}

func days(n int) *int { return &n }

var seedProducts = []seedProduct{
	{
		category: "Grains & Rice",
		input: dto.CreateProductInput{
			Name:          "Rice (5kg)",
			SKU:           "RIC-5KG-001",
			Description:   "Premium quality white rice",
			Price:         decimal.RequireFromString("25.99"),
			CostPrice:     decimal.RequireFromString("18.50"),
			MinStockLevel: 20,
			IsFoodProduct: true,
			ShelfLife:     days(365),
			InitialStock:  150,
		},
	},
	{
		category: "Dairy",
		input: dto.CreateProductInput{
			Name:          "Fresh Milk (1L)",
			SKU:           "MLK-1L-001",
			Description:   "Fresh whole milk",
			Price:         decimal.RequireFromString("3.99"),
			CostPrice:     decimal.RequireFromString("2.80"),
			MinStockLevel: 50,
			IsFoodProduct: true,
			ShelfLife:     days(7),
			InitialStock:  75,
		},
	},
}

type seedCmd struct {
	userID int64
}

func (*seedCmd) Name() string     { return "seed" }
func (*seedCmd) Synopsis() string { return "load the default food categories and sample products" }
func (*seedCmd) Usage() string {
	return `inventoryctl seed [-user <id>]

  Creates the default categories and sample products. Sample stock is
  received as ordinary batches, expiring after each product's shelf life.
  Existing categories and SKUs are left untouched, so seeding twice is safe.
`
}

func (c *seedCmd) SetFlags(f *flag.FlagSet) {
	f.Int64Var(&c.userID, "user", 1, "user id recorded on the initial stock transactions")
}

func (c *seedCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	svc, err := openServices(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer svc.close()

	if err := seed(ctx, svc.categories, svc.products, c.userID, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func seed(ctx context.Context, categories category.UseCase, products product.UseCase, userID int64, out io.Writer) error {
	existing, err := categories.ListCategories(ctx)
	if err != nil {
		return err
	}
	ids := make(map[string]int64, len(existing))
	for _, c := range existing {
		ids[strings.ToLower(c.Name)] = c.ID
	}

	for _, sc := range seedCategories {
		if _, ok := ids[strings.ToLower(sc.name)]; ok {
			continue
		}
		c, err := categories.CreateCategory(ctx, &catdto.CreateCategoryInput{Name: sc.name, Description: sc.description})
		if err != nil {
			return fmt.Errorf("category %q: %w", sc.name, err)
		}
		ids[strings.ToLower(c.Name)] = c.ID
		fmt.Fprintf(out, "category %d %s\n", c.ID, c.Name)
	}

	for _, sp := range seedProducts {
		input := sp.input
		input.CategoryID = ids[strings.ToLower(sp.category)]
		input.UserID = userID

		p, err := products.CreateProduct(ctx, &input)
		if errors.Is(err, model.ErrSKUAlreadyExists) {
			fmt.Fprintf(out, "product %s exists, skipped\n", input.SKU)
			continue
		}
		if err != nil {
			return fmt.Errorf("product %s: %w", input.SKU, err)
		}
		fmt.Fprintf(out, "product %d %s stock %d\n", p.ID, p.SKU, p.CurrentStock)
	}
	return nil
}
