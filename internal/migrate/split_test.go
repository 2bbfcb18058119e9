package migrate

import "testing"

func TestSplitStatements_Basic(t *testing.T) {
	sql := `
-- comment line, ignored
CREATE TABLE foo (id INT);
CREATE TABLE bar (id INT);
`
	got := splitStatements(sql)
	if len(got) != 2 {
		t.Fatalf("got %d statements, want 2: %#v", len(got), got)
	}
	if got[0] != "CREATE TABLE foo (id INT);" {
		t.Errorf("statement 0 = %q", got[0])
	}
}

func TestSplitStatements_SkipsMetaCommands(t *testing.T) {
	sql := "\\connect mydb\nCREATE TABLE foo (id INT);\n"
	got := splitStatements(sql)
	if len(got) != 1 {
		t.Fatalf("got %d statements, want 1: %#v", len(got), got)
	}
}

func TestSplitStatements_DollarQuotedFunctionBody(t *testing.T) {
	sql := `CREATE FUNCTION bump() RETURNS trigger AS $$
BEGIN
  NEW.updated_at := now();
  RETURN NEW;
END;
$$ LANGUAGE plpgsql;
CREATE TABLE baz (id INT);
`
	got := splitStatements(sql)
	if len(got) != 2 {
		t.Fatalf("got %d statements, want 2: %#v", len(got), got)
	}
	if got[1] != "CREATE TABLE baz (id INT);" {
		t.Errorf("statement 1 = %q", got[1])
	}
}

func TestSplitStatements_TaggedDollarQuote(t *testing.T) {
	sql := "CREATE FUNCTION f() RETURNS void AS $body$ SELECT 1; $body$ LANGUAGE sql;\n"
	got := splitStatements(sql)
	if len(got) != 1 {
		t.Fatalf("got %d statements, want 1: %#v", len(got), got)
	}
}

func TestParseDollarTag(t *testing.T) {
	tag, end := parseDollarTag("$$body", 0)
	if tag != "$$" || end != 2 {
		t.Errorf("parseDollarTag($$) = %q, %d", tag, end)
	}

	tag, end = parseDollarTag("$tag$rest", 0)
	if tag != "$tag$" || end != 5 {
		t.Errorf("parseDollarTag($tag$) = %q, %d", tag, end)
	}

	tag, _ = parseDollarTag("no dollar here", 0)
	if tag != "" {
		t.Errorf("parseDollarTag(no dollar) = %q, want empty", tag)
	}
}

func TestTrackDollarQuoting_TogglesOnMatchingTag(t *testing.T) {
	inQuote, tag := trackDollarQuoting("CREATE FUNCTION f() AS $$", false, "")
	if !inQuote || tag != "$$" {
		t.Fatalf("after opening: inQuote=%v tag=%q", inQuote, tag)
	}
	inQuote, tag = trackDollarQuoting("END $$ LANGUAGE plpgsql;", inQuote, tag)
	if inQuote || tag != "" {
		t.Fatalf("after closing: inQuote=%v tag=%q", inQuote, tag)
	}
}
