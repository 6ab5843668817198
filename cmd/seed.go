package cmd

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var seedCount int

var brStates = []string{"SP", "RJ", "MG", "RS", "PR", "SC", "BA", "DF", "GO", "PE", "CE"}

var categories = []string{
	"cama_mesa_banho", "beleza_saude", "esporte_lazer",
	"informatica_acessorios", "moveis_decoracao", "pet_shop",
}

var seedCmd = &cobra.Command{
	Use:   "seed <dir>",
	Short: "Generate sample Olist CSV files for local runs",
	Long: `Seed writes a foreign-key consistent set of the nine Olist source files
to the given directory. Every generated child row references a generated
parent row, so a migrate run over the output accepts everything.`,
	Args: cobra.ExactArgs(1),
	// Seeding only writes files; skip the DB connection RootCmd would open.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := args[0]
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}

		n := seedCount
		start := time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)
		end := time.Date(2018, 9, 1, 0, 0, 0, 0, time.UTC)
		ts := func() string {
			return gofakeit.DateRange(start, end).UTC().Format("2006-01-02 15:04:05")
		}

		customerIDs := make([]string, n)
		sellerIDs := make([]string, n)
		productIDs := make([]string, n)
		orderIDs := make([]string, n)

		// Parents first, mirroring migration order.
		if err := writeSeedFile(dir, "olist_geolocation_dataset.csv",
			[]string{"geolocation_zip_code_prefix", "geolocation_lat", "geolocation_lng", "geolocation_city", "geolocation_state"},
			n, func(i int) []string {
				return []string{
					fmt.Sprintf("%05d", gofakeit.Number(1000, 99990)),
					fmt.Sprintf("%.6f", gofakeit.Float64Range(-33.7, 5.2)),
					fmt.Sprintf("%.6f", gofakeit.Float64Range(-73.9, -34.8)),
					strings.ToLower(gofakeit.City()),
					gofakeit.RandomString(brStates),
				}
			}); err != nil {
			return err
		}

		if err := writeSeedFile(dir, "product_category_name_translation.csv",
			[]string{"product_category_name", "product_category_name_english"},
			len(categories), func(i int) []string {
				return []string{categories[i], strings.ReplaceAll(categories[i], "_", " ")}
			}); err != nil {
			return err
		}

		if err := writeSeedFile(dir, "olist_customers_dataset.csv",
			[]string{"customer_id", "customer_unique_id", "customer_zip_code_prefix", "customer_city", "customer_state"},
			n, func(i int) []string {
				customerIDs[i] = hexID()
				return []string{
					customerIDs[i], hexID(),
					fmt.Sprintf("%05d", gofakeit.Number(1000, 99990)),
					strings.ToLower(gofakeit.City()),
					gofakeit.RandomString(brStates),
				}
			}); err != nil {
			return err
		}

		if err := writeSeedFile(dir, "olist_sellers_dataset.csv",
			[]string{"seller_id", "seller_zip_code_prefix", "seller_city", "seller_state"},
			n, func(i int) []string {
				sellerIDs[i] = hexID()
				return []string{
					sellerIDs[i],
					fmt.Sprintf("%05d", gofakeit.Number(1000, 99990)),
					strings.ToLower(gofakeit.City()),
					gofakeit.RandomString(brStates),
				}
			}); err != nil {
			return err
		}

		if err := writeSeedFile(dir, "olist_products_dataset.csv",
			[]string{"product_id", "product_category_name", "product_name_length", "product_description_length", "product_photos_qty", "product_weight_g", "product_length_cm", "product_height_cm", "product_width_cm"},
			n, func(i int) []string {
				productIDs[i] = hexID()
				return []string{
					productIDs[i],
					gofakeit.RandomString(categories),
					fmt.Sprint(gofakeit.Number(20, 76)),
					fmt.Sprint(gofakeit.Number(100, 3992)),
					fmt.Sprint(gofakeit.Number(1, 8)),
					fmt.Sprint(gofakeit.Number(50, 30000)),
					fmt.Sprint(gofakeit.Number(7, 105)),
					fmt.Sprint(gofakeit.Number(2, 105)),
					fmt.Sprint(gofakeit.Number(6, 118)),
				}
			}); err != nil {
			return err
		}

		if err := writeSeedFile(dir, "olist_orders_dataset.csv",
			[]string{"order_id", "customer_id", "order_status", "order_purchase_timestamp", "order_approved_at", "order_delivered_carrier_date", "order_delivered_customer_date", "order_estimated_delivery_date"},
			n, func(i int) []string {
				orderIDs[i] = hexID()
				return []string{
					orderIDs[i],
					gofakeit.RandomString(customerIDs),
					"delivered",
					ts(), ts(), ts(), ts(), ts(),
				}
			}); err != nil {
			return err
		}

		if err := writeSeedFile(dir, "olist_order_items_dataset.csv",
			[]string{"order_id", "order_item_id", "product_id", "seller_id", "shipping_limit_date", "price", "freight_value"},
			n, func(i int) []string {
				// One item per order keeps the composite key unique.
				return []string{
					orderIDs[i], "1",
					gofakeit.RandomString(productIDs),
					gofakeit.RandomString(sellerIDs),
					ts(),
					fmt.Sprintf("%.2f", gofakeit.Price(5, 500)),
					fmt.Sprintf("%.2f", gofakeit.Price(0, 60)),
				}
			}); err != nil {
			return err
		}

		if err := writeSeedFile(dir, "olist_order_payments_dataset.csv",
			[]string{"order_id", "payment_sequential", "payment_type", "payment_installments", "payment_value"},
			n, func(i int) []string {
				return []string{
					orderIDs[i], "1",
					gofakeit.RandomString([]string{"credit_card", "boleto", "voucher", "debit_card"}),
					fmt.Sprint(gofakeit.Number(1, 10)),
					fmt.Sprintf("%.2f", gofakeit.Price(5, 600)),
				}
			}); err != nil {
			return err
		}

		if err := writeSeedFile(dir, "olist_order_reviews_dataset.csv",
			[]string{"review_id", "order_id", "review_score", "review_comment_title", "review_comment_message", "review_creation_date", "review_answer_timestamp"},
			n, func(i int) []string {
				return []string{
					hexID(), orderIDs[i],
					fmt.Sprint(gofakeit.Number(1, 5)),
					"", gofakeit.Sentence(8),
					ts(), ts(),
				}
			}); err != nil {
			return err
		}

		log.Printf("Seeded %d rows per table into %s", n, dir)
		return nil
	},
}

// hexID returns a 32-character lowercase hex identifier, the Olist key shape.
func hexID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

func writeSeedFile(dir, name string, header []string, rows int, gen func(i int) []string) error {
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	for i := 0; i < rows; i++ {
		if err := w.Write(gen(i)); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func init() {
	RootCmd.AddCommand(seedCmd)

	seedCmd.Flags().IntVar(&seedCount, "count", 100, "rows to generate per table")
}
