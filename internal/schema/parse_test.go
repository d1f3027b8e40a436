package schema

import (
	"strings"
	"testing"
)

const jsonSchema = `{
  "name": "shop",
  "tables": [
    {
      "name": "customers",
      "rows": 100,
      "columns": [
        {"name": "customer_id", "type": "integer", "unique": true, "required": true},
        {"name": "email", "type": "string", "max_length": 64, "generator": "internet.email"}
      ]
    }
  ]
}`

const yamlSchema = `
name: shop
tables:
  - name: customers
    rows: 100
    columns:
      - name: customer_id
        type: integer
        unique: true
        required: true
      - name: signup_date
        type: date
        start_date: "2021-01-01"
        end_date: "2021-12-31"
`

func TestParseJSON(t *testing.T) {
	exp, err := Parse([]byte(jsonSchema))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exp.Name != "shop" {
		t.Errorf("name = %q, want shop", exp.Name)
	}
	tbl := exp.Table("customers")
	if tbl == nil {
		t.Fatal("customers table missing")
	}
	email := tbl.Column("email")
	if email == nil || email.MaxLength == nil || *email.MaxLength != 64 {
		t.Errorf("email max_length not decoded: %+v", email)
	}
}

func TestParseYAML(t *testing.T) {
	exp, err := Parse([]byte(yamlSchema))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	col := exp.Table("customers").Column("signup_date")
	if col == nil {
		t.Fatal("signup_date column missing")
	}
	if col.StartDate != "2021-01-01" || col.EndDate != "2021-12-31" {
		t.Errorf("date bounds not decoded: %q .. %q", col.StartDate, col.EndDate)
	}
}

func TestParseRejectsInvalidSchema(t *testing.T) {
	_, err := Parse([]byte(`{"name": "shop", "tables": []}`))
	if err == nil {
		t.Fatal("expected validation failure")
	}
	if _, ok := err.(*ValidationError); !ok {
		t.Errorf("expected *ValidationError, got %T", err)
	}
}

func TestParseRejectsMalformedInput(t *testing.T) {
	_, err := Parse([]byte(`{"name": `))
	if err == nil {
		t.Fatal("expected decode failure")
	}
	if !strings.Contains(err.Error(), "decode schema JSON") {
		t.Errorf("unexpected error: %v", err)
	}
}
