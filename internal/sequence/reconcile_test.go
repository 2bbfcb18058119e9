package sequence

import "testing"

func TestDefaultExprExtractsSequenceName(t *testing.T) {
	m := defaultExpr.FindStringSubmatch(`nextval('public.produtos_id_seq'::regclass)`)
	if m == nil {
		t.Fatal("defaultExpr did not match a standard nextval default")
	}
	if m[1] != "public.produtos_id_seq" {
		t.Errorf("extracted sequence = %q, want %q", m[1], "public.produtos_id_seq")
	}
}

func TestDefaultExprNoMatch(t *testing.T) {
	if m := defaultExpr.FindStringSubmatch(`'pending'::character varying`); m != nil {
		t.Errorf("defaultExpr unexpectedly matched a non-sequence default: %v", m)
	}
}
