package sqlguard

import (
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		in     string
		ok     bool
		reason string
	}{
		{"plain select", "SELECT * FROM orders;", true, ReasonOK},
		{"fenced select", "```sql\nSELECT * FROM orders\n```", true, ReasonOK},
		{"label without fence", "sql SELECT 1", true, ReasonOK},
		{"drop", "DROP TABLE orders;", false, "Forbidden operation detected: drop"},
		{"delete inside select", "select 1; delete from orders", false, "Forbidden operation detected: delete"},
		{"create in identifier", "select create from t", false, "Forbidden operation detected: create"},
		{"creates substring", "select creates from t", true, ReasonOK},
		{"updated_at column", "select updated_at from t", true, ReasonOK},
		{"with clause", "WITH x AS (SELECT 1) SELECT * FROM x", false, ReasonNotSelect},
		{"empty", "", false, ReasonNotSelect},
		{"pragma", "PRAGMA table_info(orders)", false, ReasonNotSelect},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ok, reason := Validate(tc.in)
			if ok != tc.ok || reason != tc.reason {
				t.Fatalf("Validate(%q) = (%v, %q), want (%v, %q)", tc.in, ok, reason, tc.ok, tc.reason)
			}
		})
	}
}

func TestAcceptanceProperty(t *testing.T) {
	inputs := []string{
		"select a from b",
		"  ```SELECT x FROM y``` ",
		"SeLeCt 1",
		"insert into t values (1)",
		"select * from t where note = 'alter table'",
		"explain select 1",
	}
	for _, in := range inputs {
		cleaned := normalizeForCheck(in)
		want := strings.HasPrefix(cleaned, "select")
		for _, tok := range DefaultForbidden {
			if strings.Contains(cleaned, tok) {
				want = false
			}
		}
		if ok, _ := Validate(in); ok != want {
			t.Errorf("Validate(%q) = %v, want %v", in, ok, want)
		}
	}
}

func TestCustomDenylist(t *testing.T) {
	v := &Validator{Forbidden: []string{"pragma"}}
	if ok, reason := v.Validate("select pragma_version()"); ok || reason != "Forbidden operation detected: pragma" {
		t.Fatalf("unexpected (%v, %q)", ok, reason)
	}
	if ok, _ := v.Validate("select 1"); !ok {
		t.Fatal("expected select to pass")
	}
}

func TestExecutableKeepsCasing(t *testing.T) {
	got := Executable("```sql\nSELECT Name FROM Orders\n```")
	if got != "SELECT Name FROM Orders" {
		t.Fatalf("Executable = %q", got)
	}
	if got := Executable("SQL select 1;"); got != "select 1;" {
		t.Fatalf("Executable = %q", got)
	}
}
