package core

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"testing"
)

// ============================================================================
// Conversion Function Benchmarks
// ============================================================================

// BenchmarkToTimestamp benchmarks timestamp parsing.
// Every order, item and review row carries one or more of these.
func BenchmarkToTimestamp(b *testing.B) {
	testCases := []string{
		"2017-10-02 10:56:33",
		"2017-10-02T10:56:33",
		"2017-10-18",
		"",
		"not a date",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, tc := range testCases {
			ToTimestamp(tc)
		}
	}
}

// BenchmarkToFloat64 benchmarks the payment value path.
func BenchmarkToFloat64(b *testing.B) {
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ToFloat64("99.90")
	}
}

// BenchmarkToInt64 benchmarks integer parsing, including float-formatted input.
func BenchmarkToInt64(b *testing.B) {
	testCases := []string{"3", "  12 ", "4.0", "x"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, tc := range testCases {
			ToInt64(tc)
		}
	}
}

// BenchmarkInferType benchmarks bronze type inference over one column.
func BenchmarkInferType(b *testing.B) {
	cells := make([]string, 1000)
	for i := range cells {
		cells[i] = fmt.Sprintf("%d.%02d", i, i%100)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		InferType(cells)
	}
}

// BenchmarkInferType_LeadingZeros benchmarks the zip-code case, which must
// stay text.
func BenchmarkInferType_LeadingZeros(b *testing.B) {
	cells := make([]string, 1000)
	for i := range cells {
		cells[i] = fmt.Sprintf("%05d", i)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		InferType(cells)
	}
}

// ============================================================================
// Table Operator Benchmarks
// ============================================================================

// benchPayments builds n payment rows spread over n/3 orders.
func benchPayments(n int) *Table {
	t := NewTable("order_payments", []Column{
		{Name: "order_id", Type: TypeString},
		{Name: "payment_installments", Type: TypeInt64},
		{Name: "payment_value", Type: TypeFloat64},
	})
	for i := 0; i < n; i++ {
		t.Append([]Value{
			StringValue(fmt.Sprintf("o%d", i/3)),
			Int64Value(int64(i%10 + 1)),
			Float64Value(float64(i%500) + 0.99),
		})
	}
	return t
}

// BenchmarkGroupBy benchmarks the gold payment aggregation.
func BenchmarkGroupBy(b *testing.B) {
	t := benchPayments(30000)
	aggs := []Aggregation{
		Sum("payment_value", "total_payment_value"),
		Mean("payment_installments", "payment_installments_mean"),
		Max("payment_installments", "payment_installments_max"),
		Count("payment_value", "payment_count"),
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := GroupBy(t, "order_id", aggs...); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkDedupe benchmarks exact-row deduplication with a third duplicates.
func BenchmarkDedupe(b *testing.B) {
	t := benchPayments(30000)
	t.Rows = append(t.Rows, t.Rows[:10000]...)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		t.Dedupe()
	}
}

// BenchmarkLeftJoin benchmarks the many-to-one customer join.
func BenchmarkLeftJoin(b *testing.B) {
	orders := NewTable("orders", []Column{
		{Name: "order_id", Type: TypeString},
		{Name: "customer_id", Type: TypeString},
	})
	customers := NewTable("customers", []Column{
		{Name: "customer_id", Type: TypeString},
		{Name: "customer_state", Type: TypeString},
	})
	for i := 0; i < 10000; i++ {
		orders.Append([]Value{StringValue(fmt.Sprintf("o%d", i)), StringValue(fmt.Sprintf("c%d", i%5000))})
	}
	for i := 0; i < 5000; i++ {
		customers.Append([]Value{StringValue(fmt.Sprintf("c%d", i)), StringValue("SP")})
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := LeftJoin(orders, customers, "customer_id", ManyToOne); err != nil {
			b.Fatal(err)
		}
	}
}

// ============================================================================
// Source Reading Benchmarks
// ============================================================================

// generateOrdersCSV creates an orders extract with n rows.
func generateOrdersCSV(n int) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Write([]string{"order_id", "customer_id", "order_status", "order_purchase_timestamp"})
	for i := 0; i < n; i++ {
		w.Write([]string{
			fmt.Sprintf("o%06d", i),
			fmt.Sprintf("c%06d", i%4000),
			"delivered",
			"2017-10-02 10:56:33",
		})
	}
	w.Flush()
	return buf.Bytes()
}

// BenchmarkSourceReader benchmarks the BOM-stripping, UTF-8 sanitizing reader
// stack against a plain read.
func BenchmarkSourceReader(b *testing.B) {
	data := append([]byte("\xef\xbb\xbf"), generateOrdersCSV(10000)...)

	b.Run("sanitized", func(b *testing.B) {
		b.SetBytes(int64(len(data)))
		for i := 0; i < b.N; i++ {
			r, _ := NewSourceReader(bytes.NewReader(data))
			io.Copy(io.Discard, r)
		}
	})
	b.Run("plain", func(b *testing.B) {
		b.SetBytes(int64(len(data)))
		for i := 0; i < b.N; i++ {
			io.Copy(io.Discard, bytes.NewReader(data))
		}
	})
}

// BenchmarkFromRecords benchmarks bronze table construction.
func BenchmarkFromRecords(b *testing.B) {
	records, err := csv.NewReader(strings.NewReader(string(generateOrdersCSV(10000)))).ReadAll()
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		FromRecords("orders", records[0], records[1:])
	}
}
