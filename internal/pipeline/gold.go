package pipeline

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/medallion/internal/core"
	"github.com/JonMunkholm/medallion/internal/core/tables"
	"github.com/JonMunkholm/medallion/internal/logging"
)

// GoldArtifact is the artifact name of the order-grain gold table.
const GoldArtifact = "gold_orders"

// previewRows is how many gold rows are logged after composition.
const previewRows = 5

var (
	orderColumns = []string{
		"order_id",
		"customer_id",
		"order_status",
		"order_purchase_timestamp",
		"order_approved_at",
		"order_delivered_carrier_date",
		"order_delivered_customer_date",
		"order_estimated_delivery_date",
	}
	customerColumns = []string{
		"customer_id",
		"customer_unique_id",
		"customer_city",
		"customer_state",
		"customer_zip_code_prefix",
	}
	paymentAggregations = []core.Aggregation{
		core.Sum("payment_value", "total_payment_value"),
		core.Mean("payment_installments", "payment_installments_mean"),
		core.Max("payment_installments", "payment_installments_max"),
		core.Max("payment_sequential", "payment_sequential_max"),
	}
)

// GoldColumns lists the gold table columns in order.
var GoldColumns = func() []string {
	cols := append([]string(nil), orderColumns...)
	cols = append(cols, customerColumns[1:]...)
	for _, a := range paymentAggregations {
		cols = append(cols, a.As)
	}
	return cols
}()

// Compose builds the gold table: one row per order, with customer attributes
// joined many-to-one and payment metrics aggregated per order and joined
// one-to-one. Orders without a customer or payments keep nulls. The inputs
// are not modified.
func Compose(orders, customers, payments *core.Table) (*core.Table, error) {
	gold, err := orders.Project(orderColumns...)
	if err != nil {
		return nil, err
	}

	cust, err := customers.Project(customerColumns...)
	if err != nil {
		return nil, err
	}
	gold, err = core.LeftJoin(gold, cust, "customer_id", core.ManyToOne)
	if err != nil {
		return nil, err
	}

	agg, err := core.GroupBy(payments, "order_id", paymentAggregations...)
	if err != nil {
		return nil, err
	}
	gold, err = core.LeftJoin(gold, agg, "order_id", core.OneToOne)
	if err != nil {
		return nil, err
	}

	if gold.Len() != orders.Len() {
		return nil, fmt.Errorf("gold has %d rows, want %d (one per order)", gold.Len(), orders.Len())
	}
	gold.Name = GoldArtifact
	return gold, nil
}

// Gold composes the gold table from the silver layer, persists it and logs a
// preview. Silver artifacts are only read.
func (p *Pipeline) Gold(ctx context.Context) (*core.Table, TableResult, error) {
	logger := logging.WithFields(ctx, "stage", StageGold)
	logger.Info("composing gold table", "silver_dir", p.dirs.Silver, "gold_dir", p.dirs.Gold)

	silverInputs := []string{tables.Orders, tables.Customers, tables.OrderPayments}
	artifacts := make([]string, len(silverInputs))
	for i, name := range silverInputs {
		artifacts[i] = SilverArtifact(name)
	}
	if err := p.requireArtifacts(p.dirs.Silver, artifacts...); err != nil {
		return nil, TableResult{}, err
	}

	inputs := make(map[string]*core.Table, len(silverInputs))
	for _, name := range silverInputs {
		if err := ctx.Err(); err != nil {
			return nil, TableResult{}, err
		}
		t, err := p.ReadSilver(name)
		if err != nil {
			return nil, TableResult{}, err
		}
		p.metrics.RowsRead.WithLabelValues(string(StageGold), name).Add(float64(t.Len()))
		inputs[name] = t
	}

	gold, err := Compose(inputs[tables.Orders], inputs[tables.Customers], inputs[tables.OrderPayments])
	if err != nil {
		return nil, TableResult{}, err
	}

	res, err := p.store.Write(ctx, p.dirs.Gold, GoldArtifact, gold)
	if err != nil {
		return nil, TableResult{}, err
	}
	p.recordWrite(StageGold, res)
	p.metrics.GoldRows.Set(float64(gold.Len()))

	logger.Info("wrote gold table", "path", res.Path, "rows", res.Rows, "format", res.Format)
	logger.Info("gold columns", "columns", gold.ColumnNames())
	for i, rec := range gold.Head(previewRows).Records() {
		logger.Info("gold preview", "row", i, "values", rec)
	}

	return gold, TableResult{WriteResult: res, Stage: StageGold}, nil
}

// ReadGold loads the persisted gold table.
func (p *Pipeline) ReadGold() (*core.Table, error) {
	t, _, err := p.store.Read(p.dirs.Gold, GoldArtifact)
	if err != nil {
		return nil, err
	}
	core.ApplyTypes(t, goldSchema)
	return t, nil
}

// goldSchema re-types a gold table read back from CSV.
var goldSchema = core.Schema{
	Columns: []core.Column{
		{Name: "order_id", Type: core.TypeString},
		{Name: "customer_id", Type: core.TypeString},
		{Name: "order_status", Type: core.TypeString},
		{Name: "customer_unique_id", Type: core.TypeString},
		{Name: "customer_city", Type: core.TypeString},
		{Name: "customer_state", Type: core.TypeString},
		{Name: "customer_zip_code_prefix", Type: core.TypeString},
		{Name: "total_payment_value", Type: core.TypeFloat64},
		{Name: "payment_installments_mean", Type: core.TypeFloat64},
		{Name: "payment_installments_max", Type: core.TypeInt64},
		{Name: "payment_sequential_max", Type: core.TypeInt64},
	},
	Temporal: tables.OrderTimestamps,
}
