package core

import "testing"

func TestRegistry(t *testing.T) {
	Clear()
	t.Cleanup(Clear)

	Register(TableDefinition{Name: "orders", FileName: "olist_orders_dataset.csv", Schema: &ordersSchema})
	Register(TableDefinition{Name: "geolocation", FileName: "olist_geolocation_dataset.csv"})

	if got := TableCount(); got != 2 {
		t.Fatalf("TableCount() = %d, want 2", got)
	}

	all := All()
	if len(all) != 2 || all[0].Name != "orders" || all[1].Name != "geolocation" {
		t.Errorf("All() = %+v, want registration order", all)
	}

	refinable := Refinable()
	if len(refinable) != 1 || refinable[0].Name != "orders" {
		t.Errorf("Refinable() = %+v, want only orders", refinable)
	}

	if _, ok := Get("sellers"); ok {
		t.Error("Get(sellers) found an unregistered table")
	}
	def, ok := Get("geolocation")
	if !ok || def.Refinable() {
		t.Errorf("Get(geolocation) = %+v, %v", def, ok)
	}

	Clear()
	if TableCount() != 0 || len(All()) != 0 {
		t.Error("Clear() left definitions behind")
	}
}

func TestRegister_DuplicatePanics(t *testing.T) {
	Clear()
	t.Cleanup(Clear)

	Register(TableDefinition{Name: "orders"})
	defer func() {
		if recover() == nil {
			t.Error("Register() of a duplicate name did not panic")
		}
	}()
	Register(TableDefinition{Name: "orders"})
}
