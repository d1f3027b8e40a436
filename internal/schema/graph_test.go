package schema

import (
	"strings"
	"testing"
)

func fkTo(table, column string) *ForeignKey {
	return &ForeignKey{Table: table, Column: column}
}

func TestGenerationOrderParentsFirst(t *testing.T) {
	exp := &Experiment{
		Name: "shop",
		Tables: []*Table{
			{Name: "order_items", Rows: 10, Columns: []*Column{
				{Name: "item_id", Type: TypeInteger, Unique: true, Required: true},
				{Name: "order_id", Type: TypeInteger, Required: true, ForeignKey: fkTo("orders", "order_id")},
				{Name: "product_id", Type: TypeInteger, Required: true, ForeignKey: fkTo("products", "product_id")},
			}},
			{Name: "orders", Rows: 10, Columns: []*Column{
				{Name: "order_id", Type: TypeInteger, Unique: true, Required: true},
				{Name: "customer_id", Type: TypeInteger, Required: true, ForeignKey: fkTo("customers", "customer_id")},
			}},
			{Name: "products", Rows: 10, Columns: []*Column{
				{Name: "product_id", Type: TypeInteger, Unique: true, Required: true},
			}},
			{Name: "customers", Rows: 10, Columns: []*Column{
				{Name: "customer_id", Type: TypeInteger, Unique: true, Required: true},
			}},
		},
	}

	order, err := exp.GenerationOrder()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(order) != 4 {
		t.Fatalf("expected 4 tables in order, got %v", order)
	}

	pos := map[string]int{}
	for i, name := range order {
		pos[name] = i
	}
	if pos["customers"] > pos["orders"] {
		t.Errorf("customers must precede orders: %v", order)
	}
	if pos["orders"] > pos["order_items"] {
		t.Errorf("orders must precede order_items: %v", order)
	}
	if pos["products"] > pos["order_items"] {
		t.Errorf("products must precede order_items: %v", order)
	}
}

func TestGenerationOrderIsDeterministic(t *testing.T) {
	exp := validExperiment()
	first, err := exp.GenerationOrder()
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		again, err := exp.GenerationOrder()
		if err != nil {
			t.Fatal(err)
		}
		if strings.Join(again, ",") != strings.Join(first, ",") {
			t.Fatalf("order changed between runs: %v vs %v", first, again)
		}
	}
}

func TestGenerationOrderRejectsRequiredCycle(t *testing.T) {
	exp := &Experiment{
		Name: "cyclic",
		Tables: []*Table{
			{Name: "a", Rows: 1, Columns: []*Column{
				{Name: "a_id", Type: TypeInteger, Unique: true, Required: true},
				{Name: "b_id", Type: TypeInteger, Required: true, ForeignKey: fkTo("b", "b_id")},
			}},
			{Name: "b", Rows: 1, Columns: []*Column{
				{Name: "b_id", Type: TypeInteger, Unique: true, Required: true},
				{Name: "a_id", Type: TypeInteger, Required: true, ForeignKey: fkTo("a", "a_id")},
			}},
		},
	}

	_, err := exp.GenerationOrder()
	if err == nil {
		t.Fatal("expected a cycle error")
	}
	if !strings.Contains(err.Error(), "a -> b -> a") {
		t.Errorf("cycle error should spell out the path, got: %v", err)
	}
	if !strings.Contains(err.Error(), "nullable") {
		t.Errorf("cycle error should suggest the nullable fix, got: %v", err)
	}

	// Validate surfaces the same problem as a violation.
	if err := exp.Validate(); err == nil {
		t.Error("expected Validate to reject the cyclic schema")
	}
}

func TestGenerationOrderNullableEdgeBreaksCycle(t *testing.T) {
	nullable := true
	exp := &Experiment{
		Name: "org",
		Tables: []*Table{
			{Name: "employees", Rows: 5, Columns: []*Column{
				{Name: "employee_id", Type: TypeInteger, Unique: true, Required: true},
				{Name: "team_id", Type: TypeInteger, Required: true, ForeignKey: fkTo("teams", "team_id")},
			}},
			{Name: "teams", Rows: 2, Columns: []*Column{
				{Name: "team_id", Type: TypeInteger, Unique: true, Required: true},
				{Name: "lead_id", Type: TypeInteger,
					ForeignKey: &ForeignKey{Table: "employees", Column: "employee_id", Nullable: &nullable}},
			}},
		},
	}

	order, err := exp.GenerationOrder()
	if err != nil {
		t.Fatalf("nullable FK should break the cycle, got: %v", err)
	}
	if order[0] != "teams" || order[1] != "employees" {
		t.Errorf("required edge must still order teams before employees, got %v", order)
	}
}

func TestGenerationOrderIndependentOfDeclarationOrder(t *testing.T) {
	// The same mixed cycle (required employees -> teams, nullable
	// teams -> employees) must be accepted whichever table is declared
	// first, and the required edge decides the order either way.
	nullable := true
	employees := func() *Table {
		return &Table{Name: "employees", Rows: 5, Columns: []*Column{
			{Name: "employee_id", Type: TypeInteger, Unique: true, Required: true},
			{Name: "team_id", Type: TypeInteger, Required: true, ForeignKey: fkTo("teams", "team_id")},
		}}
	}
	teams := func() *Table {
		return &Table{Name: "teams", Rows: 2, Columns: []*Column{
			{Name: "team_id", Type: TypeInteger, Unique: true, Required: true},
			{Name: "lead_id", Type: TypeInteger,
				ForeignKey: &ForeignKey{Table: "employees", Column: "employee_id", Nullable: &nullable}},
		}}
	}

	declarations := map[string][]*Table{
		"employees first": {employees(), teams()},
		"teams first":     {teams(), employees()},
	}
	for name, tables := range declarations {
		t.Run(name, func(t *testing.T) {
			exp := &Experiment{Name: "org", Tables: tables}
			if err := exp.Validate(); err != nil {
				t.Fatalf("schema rejected: %v", err)
			}
			order, err := exp.GenerationOrder()
			if err != nil {
				t.Fatalf("order failed: %v", err)
			}
			if len(order) != 2 || order[0] != "teams" || order[1] != "employees" {
				t.Errorf("order = %v, want [teams employees]", order)
			}
		})
	}
}

func TestGenerationOrderAcceptsNullableOnlyCycle(t *testing.T) {
	nullable := true
	exp := &Experiment{
		Name: "pairs",
		Tables: []*Table{
			{Name: "a", Rows: 1, Columns: []*Column{
				{Name: "a_id", Type: TypeInteger, Unique: true, Required: true},
				{Name: "b_id", Type: TypeInteger,
					ForeignKey: &ForeignKey{Table: "b", Column: "b_id", Nullable: &nullable}},
			}},
			{Name: "b", Rows: 1, Columns: []*Column{
				{Name: "b_id", Type: TypeInteger, Unique: true, Required: true},
				{Name: "a_id", Type: TypeInteger,
					ForeignKey: &ForeignKey{Table: "a", Column: "a_id", Nullable: &nullable}},
			}},
		},
	}

	order, err := exp.GenerationOrder()
	if err != nil {
		t.Fatalf("nullable-only cycle must be accepted: %v", err)
	}
	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Errorf("order = %v, want declaration order [a b]", order)
	}
}

func TestGenerationOrderIgnoresSelfReference(t *testing.T) {
	nullable := true
	exp := &Experiment{
		Name: "staff",
		Tables: []*Table{
			{Name: "employees", Rows: 5, Columns: []*Column{
				{Name: "employee_id", Type: TypeInteger, Unique: true, Required: true},
				{Name: "manager_id", Type: TypeInteger,
					ForeignKey: &ForeignKey{Table: "employees", Column: "employee_id", Nullable: &nullable}},
			}},
		},
	}

	order, err := exp.GenerationOrder()
	if err != nil {
		t.Fatalf("self-reference must not count as a cycle: %v", err)
	}
	if len(order) != 1 || order[0] != "employees" {
		t.Errorf("unexpected order: %v", order)
	}
}
