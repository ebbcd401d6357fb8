package output

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		def     Format
		want    Format
		wantErr bool
	}{
		{name: "empty uses default", input: "", def: FormatYAML, want: FormatYAML},
		{name: "table", input: "table", def: FormatJSON, want: FormatTable},
		{name: "JSON uppercase", input: "JSON", def: FormatTable, want: FormatJSON},
		{name: "yml alias", input: "yml", def: FormatTable, want: FormatYAML},
		{name: "whitespace trimmed", input: "  json ", def: FormatTable, want: FormatJSON},
		{name: "invalid format", input: "xml", def: FormatTable, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFormat(tt.input, tt.def)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPrintTable(t *testing.T) {
	table := NewTable("Username", "Dir")
	table.AddRow("alice", "/srv/alice")
	table.AddRow("bob", "/srv/bob")

	var buf bytes.Buffer
	require.NoError(t, Print(&buf, FormatTable, table))

	out := buf.String()
	assert.Contains(t, out, "USERNAME")
	assert.Contains(t, out, "DIR")
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "/srv/bob")
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Print(&buf, FormatJSON, map[string]int{"count": 2}))

	var decoded map[string]int
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, 2, decoded["count"])
	assert.Contains(t, buf.String(), "\n  \"count\"")
}

func TestPrintTableFallsBackToYAML(t *testing.T) {
	data := struct {
		Name string `yaml:"name"`
	}{Name: "deck"}

	var buf bytes.Buffer
	require.NoError(t, Print(&buf, FormatTable, data))
	assert.Equal(t, "name: deck\n", buf.String())
}

func TestPrintKeyValues(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintKeyValues(&buf, [][2]string{{"Status", "healthy"}, {"Users", "3"}}))

	out := buf.String()
	assert.Contains(t, out, "Status")
	assert.Contains(t, out, "healthy")
	assert.Contains(t, out, "Users")
}
