package report_test

import (
	"encoding/json"
	"reflect"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/tracecov/pkg/coverage"
	"github.com/Sumatoshi-tech/tracecov/pkg/report"
)

type schemaNode struct {
	Properties  map[string]*schemaNode `json:"properties"`
	Definitions map[string]*schemaNode `json:"definitions"`
}

func jsonFields(typ reflect.Type) []string {
	fields := make([]string, 0, typ.NumField())

	for i := range typ.NumField() {
		tag := typ.Field(i).Tag.Get("json")
		name, _, _ := strings.Cut(tag, ",")

		if name != "" && name != "-" {
			fields = append(fields, name)
		}
	}

	sort.Strings(fields)

	return fields
}

func propertyNames(node *schemaNode) []string {
	names := make([]string, 0, len(node.Properties))
	for name := range node.Properties {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

func TestSchema_MatchesReportTypes(t *testing.T) {
	t.Parallel()

	var root schemaNode
	require.NoError(t, json.Unmarshal(report.Schema(), &root))

	tests := []struct {
		name string
		node *schemaNode
		typ  reflect.Type
	}{
		{"summary", &root, reflect.TypeFor[report.Summary]()},
		{"overall", root.Properties["overall"], reflect.TypeFor[report.Totals]()},
		{"file", root.Definitions["file"], reflect.TypeFor[report.FileSummary]()},
		{"line", root.Definitions["line"], reflect.TypeFor[report.LineEntry]()},
		{"percent", root.Definitions["percent"], reflect.TypeFor[report.Percentages]()},
		{"tally", root.Definitions["tally"], reflect.TypeFor[coverage.Tally]()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			require.NotNil(t, tt.node)
			assert.Equal(t, jsonFields(tt.typ), propertyNames(tt.node))
		})
	}
}
