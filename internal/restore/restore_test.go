package restore

import (
	"os"
	"strings"
	"testing"
)

const sampleSQL = `--
-- PostgreSQL database dump
--

SET statement_timeout = 0;
SET transaction_timeout = 0;
SET lock_timeout = 0;

COPY public.categorias ("id", nome, "updated_at") FROM stdin;
1	Bebidas	2024-01-01 00:00:00
2	\N	2024-01-02 00:00:00
\.

--
-- PostgreSQL database dump complete
--
`

func TestExtractCopyBlock(t *testing.T) {
	block, err := extractCopyBlock(sampleSQL)
	if err != nil {
		t.Fatalf("extractCopyBlock() error = %v", err)
	}
	want := []string{"id", "nome", "updated_at"}
	if len(block.Columns) != len(want) {
		t.Fatalf("Columns = %v, want %v", block.Columns, want)
	}
	for i, c := range want {
		if block.Columns[i] != c {
			t.Errorf("Columns[%d] = %q, want %q", i, block.Columns[i], c)
		}
	}
	if len(block.DataLines) != 2 {
		t.Fatalf("DataLines = %v, want 2 lines", block.DataLines)
	}
}

func TestExtractCopyBlock_NoBlock(t *testing.T) {
	if _, err := extractCopyBlock("SELECT 1;\n"); err == nil {
		t.Fatal("extractCopyBlock() expected error when no COPY block present")
	}
}

func TestExtractCopyBlock_Unterminated(t *testing.T) {
	sql := "COPY public.t (a) FROM stdin;\n1\n"
	if _, err := extractCopyBlock(sql); err == nil {
		t.Fatal("extractCopyBlock() expected error for missing terminator")
	}
}

func TestUnescapeCopyField_Null(t *testing.T) {
	val, isNull := unescapeCopyField(`\N`)
	if !isNull || val != "" {
		t.Errorf("unescapeCopyField(\\N) = (%q, %v), want (\"\", true)", val, isNull)
	}
}

func TestUnescapeCopyField_Escapes(t *testing.T) {
	val, isNull := unescapeCopyField(`a\tb\nc`)
	if isNull {
		t.Fatal("unescapeCopyField() reported null for a non-null field")
	}
	if val != "a\tb\nc" {
		t.Errorf("unescapeCopyField() = %q, want tab/newline expanded", val)
	}
}

func TestUnescapeCopyField_LiteralBackslashNotSentinel(t *testing.T) {
	val, isNull := unescapeCopyField(`C:\Notes`)
	if isNull {
		t.Fatal("unescapeCopyField() treated a literal backslash value as NULL")
	}
	if !strings.Contains(val, "Notes") {
		t.Errorf("unescapeCopyField() = %q, expected literal content preserved", val)
	}
}

func TestCopyColumnIndex_MissingColumn(t *testing.T) {
	idx := copyColumnIndex([]string{"id", "nome"}, []string{"id", "nome", "extra_col"})
	if idx[0] != 0 || idx[1] != 1 {
		t.Fatalf("copyColumnIndex() = %v, want first two mapped", idx)
	}
	if idx[2] != -1 {
		t.Errorf("copyColumnIndex()[2] = %d, want -1 for absent column", idx[2])
	}
}

func TestSplitDataLine(t *testing.T) {
	fields := splitDataLine("1\tBebidas\t2024-01-01")
	if len(fields) != 3 {
		t.Fatalf("splitDataLine() = %v, want 3 fields", fields)
	}
}

func TestScrubStatements_RemovesTransactionTimeout(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/t.sql"
	if err := os.WriteFile(path, []byte(sampleSQL), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := scrubStatements(path); err != nil {
		t.Fatalf("scrubStatements() error = %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	out := string(raw)
	if strings.Contains(out, "transaction_timeout") {
		t.Error("scrubStatements() left a transaction_timeout line in place")
	}
	if !strings.Contains(out, "COPY public.categorias") {
		t.Error("scrubStatements() unexpectedly removed unrelated content")
	}
}

func TestContainsColumn(t *testing.T) {
	if !containsColumn([]string{"id", "nome"}, "id") {
		t.Error("containsColumn() = false, want true")
	}
	if containsColumn([]string{"id", "nome"}, "missing") {
		t.Error("containsColumn() = true, want false")
	}
}
