package datacatalog

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/glimt/datascout/internal/athena"
	"github.com/glimt/datascout/internal/mcp/tools"
)

// fakeCatalog serves a fixed catalog and records the arguments it was
// called with.
type fakeCatalog struct {
	lastMax           int
	lastIncludeSchema bool
}

func (f *fakeCatalog) Databases(_ context.Context, max int) ([]string, bool, error) {
	f.lastMax = max
	return []string{"sales", "marketing"}, false, nil
}

func (f *fakeCatalog) Tables(_ context.Context, database string, max int, includeSchema bool) ([]athena.Table, bool, error) {
	if database == "" {
		return nil, false, &athena.ValidationError{Reason: "missing database name"}
	}
	f.lastMax = max
	f.lastIncludeSchema = includeSchema
	t := athena.Table{Name: "events"}
	if includeSchema {
		t.Columns = []athena.Column{{Name: "id", Type: "string"}}
		t.Partitions = []athena.Column{{Name: "dt", Type: "string"}}
	}
	return []athena.Table{t}, true, nil
}

func (f *fakeCatalog) TableSchema(_ context.Context, database, table string) (*athena.Table, error) {
	return &athena.Table{
		Name:    table,
		Columns: []athena.Column{{Name: "id", Type: "string"}},
	}, nil
}

func toolByName(t *testing.T, ts []tools.Tool, name string) tools.Tool {
	t.Helper()
	for _, tool := range ts {
		if tool.Definition.Name == name {
			return tool
		}
	}
	t.Fatalf("tool %q not found", name)
	return tools.Tool{}
}

func TestToolNames(t *testing.T) {
	t.Parallel()

	ts := Tools(&fakeCatalog{})
	want := []string{"glue_list_databases", "glue_list_tables", "glue_table_schema"}
	if len(ts) != len(want) {
		t.Fatalf("len(Tools()) = %d, want %d", len(ts), len(want))
	}
	for _, name := range want {
		toolByName(t, ts, name)
	}
}

func TestListDatabases(t *testing.T) {
	t.Parallel()

	catalog := &fakeCatalog{}
	tool := toolByName(t, Tools(catalog), "glue_list_databases")

	out, err := tool.Handler(context.Background(), `{"max_databases":5}`)
	if err != nil {
		t.Fatalf("Handler() error = %v", err)
	}
	if catalog.lastMax != 5 {
		t.Errorf("max passed through = %d, want 5", catalog.lastMax)
	}

	var result listDatabasesResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(result.Databases) != 2 || result.Databases[0] != "sales" {
		t.Errorf("Databases = %v, want the catalog names", result.Databases)
	}
}

func TestListTablesSchemaDefaultsToTrue(t *testing.T) {
	t.Parallel()

	catalog := &fakeCatalog{}
	tool := toolByName(t, Tools(catalog), "glue_list_tables")

	out, err := tool.Handler(context.Background(), `{"database":"sales"}`)
	if err != nil {
		t.Fatalf("Handler() error = %v", err)
	}
	if !catalog.lastIncludeSchema {
		t.Error("includeSchema = false, want true when omitted")
	}

	var result listTablesResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if !result.Truncated {
		t.Error("Truncated = false, want the backend flag passed through")
	}
	if len(result.Tables) != 1 || len(result.Tables[0].Columns) != 1 {
		t.Errorf("Tables = %+v, want one entry with schema", result.Tables)
	}

	if _, err := tool.Handler(context.Background(), `{"database":"sales","include_schema":false}`); err != nil {
		t.Fatalf("Handler() error = %v", err)
	}
	if catalog.lastIncludeSchema {
		t.Error("includeSchema = true, want explicit false honoured")
	}
}

func TestListTablesMissingDatabase(t *testing.T) {
	t.Parallel()

	tool := toolByName(t, Tools(&fakeCatalog{}), "glue_list_tables")

	if _, err := tool.Handler(context.Background(), `{}`); err == nil {
		t.Error("Handler(no database) = nil error, want validation failure")
	}
}

func TestTableSchema(t *testing.T) {
	t.Parallel()

	tool := toolByName(t, Tools(&fakeCatalog{}), "glue_table_schema")

	out, err := tool.Handler(context.Background(), `{"database":"sales","table":"events"}`)
	if err != nil {
		t.Fatalf("Handler() error = %v", err)
	}

	var result tableSchemaResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if result.Database != "sales" || result.Table != "events" {
		t.Errorf("Database/Table = %q/%q, want echoed back", result.Database, result.Table)
	}
	if len(result.Columns) != 1 || result.Columns[0].Name != "id" {
		t.Errorf("Columns = %+v, want the backend schema", result.Columns)
	}
}

func TestInvalidArgsJSON(t *testing.T) {
	t.Parallel()

	for _, tool := range Tools(&fakeCatalog{}) {
		if _, err := tool.Handler(context.Background(), `{not json`); err == nil {
			t.Errorf("%s: Handler(bad json) = nil error, want failure", tool.Definition.Name)
		}
	}
}
