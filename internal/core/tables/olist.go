package tables

import "github.com/JonMunkholm/medallion/internal/core"

// Logical table names.
const (
	Customers           = "customers"
	Geolocation         = "geolocation"
	OrderItems          = "order_items"
	OrderPayments       = "order_payments"
	OrderReviews        = "order_reviews"
	Orders              = "orders"
	Products            = "products"
	Sellers             = "sellers"
	CategoryTranslation = "category_translation"
)

func init() {
	registerCustomers()
	registerGeolocation()
	registerOrderItems()
	registerOrderPayments()
	registerOrderReviews()
	registerOrders()
	registerProducts()
	registerSellers()
	registerCategoryTranslation()
}

func registerCustomers() {
	core.Register(core.TableDefinition{
		Name:     Customers,
		FileName: "olist_customers_dataset.csv",
		Schema: &core.Schema{
			Columns: []core.Column{
				text("customer_id"),
				text("customer_unique_id"),
				text("customer_zip_code_prefix"),
				text("customer_city"),
				text("customer_state"),
			},
			Keys: []string{"customer_id", "customer_unique_id"},
		},
	})
}

// Geolocation is loaded to bronze only; nothing downstream reads it.
func registerGeolocation() {
	core.Register(core.TableDefinition{
		Name:     Geolocation,
		FileName: "olist_geolocation_dataset.csv",
	})
}

func registerOrderItems() {
	core.Register(core.TableDefinition{
		Name:     OrderItems,
		FileName: "olist_order_items_dataset.csv",
		Schema: &core.Schema{
			Columns: []core.Column{
				text("order_item_id"),
				text("order_id"),
				text("product_id"),
				text("seller_id"),
				float("price"),
				float("freight_value"),
			},
			Temporal: []string{"shipping_limit_date"},
			Keys:     []string{"order_id", "order_item_id", "product_id", "seller_id"},
		},
	})
}

func registerOrderPayments() {
	core.Register(core.TableDefinition{
		Name:     OrderPayments,
		FileName: "olist_order_payments_dataset.csv",
		Schema: &core.Schema{
			Columns: []core.Column{
				text("order_id"),
				integer("payment_sequential"),
				text("payment_type"),
				integer("payment_installments"),
				float("payment_value"),
			},
			Keys: []string{"order_id"},
		},
	})
}

func registerOrderReviews() {
	core.Register(core.TableDefinition{
		Name:     OrderReviews,
		FileName: "olist_order_reviews_dataset.csv",
		Schema: &core.Schema{
			Columns: []core.Column{
				text("review_id"),
				text("order_id"),
				text("review_comment_title"),
				text("review_comment_message"),
				integer("review_score"),
			},
			Temporal: []string{"review_creation_date", "review_answer_timestamp"},
			Keys:     []string{"review_id", "order_id"},
		},
	})
}

// OrderTimestamps are the five lifecycle timestamps of an order.
var OrderTimestamps = []string{
	"order_purchase_timestamp",
	"order_approved_at",
	"order_delivered_carrier_date",
	"order_delivered_customer_date",
	"order_estimated_delivery_date",
}

func registerOrders() {
	core.Register(core.TableDefinition{
		Name:     Orders,
		FileName: "olist_orders_dataset.csv",
		Schema: &core.Schema{
			Columns: []core.Column{
				text("order_id"),
				text("customer_id"),
				text("order_status"),
			},
			Temporal: OrderTimestamps,
			Keys:     []string{"order_id", "customer_id"},
		},
	})
}

// Column names keep the extract's spelling ("lenght").
func registerProducts() {
	core.Register(core.TableDefinition{
		Name:     Products,
		FileName: "olist_products_dataset.csv",
		Schema: &core.Schema{
			Columns: []core.Column{
				text("product_id"),
				text("product_category_name"),
				integer("product_name_lenght"),
				integer("product_description_lenght"),
				integer("product_photos_qty"),
				integer("product_weight_g"),
				float("product_length_cm"),
				float("product_height_cm"),
				float("product_width_cm"),
			},
			Keys: []string{"product_id"},
		},
	})
}

func registerSellers() {
	core.Register(core.TableDefinition{
		Name:     Sellers,
		FileName: "olist_sellers_dataset.csv",
		Schema: &core.Schema{
			Columns: []core.Column{
				text("seller_id"),
				text("seller_zip_code_prefix"),
				text("seller_city"),
				text("seller_state"),
			},
			Keys: []string{"seller_id"},
		},
	})
}

func registerCategoryTranslation() {
	core.Register(core.TableDefinition{
		Name:     CategoryTranslation,
		FileName: "product_category_name_translation.csv",
		Schema: &core.Schema{
			Columns: []core.Column{
				text("product_category_name"),
				text("product_category_name_english"),
			},
			Keys: []string{"product_category_name"},
		},
	})
}
