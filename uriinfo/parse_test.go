package uriinfo

import (
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theoremus-urban-solutions/odata-core/edm"
	"github.com/theoremus-urban-solutions/odata-core/odataerr"
)

func testModel() *edm.Edm {
	employee := &edm.EntityType{
		Name:       "Employee",
		Keys:       []string{"EmployeeId"},
		Properties: []edm.Property{{Name: "EmployeeId", Type: edm.String}},
		Navigation: []edm.NavigationProperty{
			{Name: "ne_Manager", Target: "Managers"},
			{Name: "ne_Rooms", Target: "Rooms", Many: true},
		},
	}
	manager := &edm.EntityType{Name: "Manager", Keys: []string{"Id"}, Properties: []edm.Property{{Name: "Id", Type: edm.Int32}}}
	room := &edm.EntityType{
		Name:       "Room",
		Keys:       []string{"Building", "Number"},
		Properties: []edm.Property{{Name: "Building", Type: edm.String}, {Name: "Number", Type: edm.Int32}},
	}

	c := &edm.EntityContainer{Name: "Container1", IsDefault: true}
	c.EntitySets = []*edm.EntitySet{
		{Name: "Employees", EntityType: employee, Container: c},
		{Name: "Managers", EntityType: manager, Container: c},
		{Name: "Rooms", EntityType: room, Container: c},
	}
	archive := &edm.EntityContainer{Name: "Archive"}
	archive.EntitySets = []*edm.EntitySet{{Name: "Managers", EntityType: manager, Container: archive}}
	return &edm.Edm{Containers: []*edm.EntityContainer{c, archive}}
}

func TestParse_ResourcePaths(t *testing.T) {
	model := testModel()

	t.Run("service document", func(t *testing.T) {
		info, err := Parse(model, "/", nil)
		require.NoError(t, err)
		assert.True(t, info.IsServiceDocument())
		assert.Equal(t, "Container1", info.EntityContainer.Name)
	})

	t.Run("entity set", func(t *testing.T) {
		info, err := Parse(model, "/Employees", nil)
		require.NoError(t, err)
		assert.Equal(t, "Employees", info.TargetEntitySet.Name)
		assert.False(t, info.IsEntity())
		assert.False(t, info.IsServiceDocument())
	})

	t.Run("set of non-default container", func(t *testing.T) {
		info, err := Parse(model, "/Archive.Managers(3)", nil)
		require.NoError(t, err)
		assert.Equal(t, "Archive", info.EntityContainer.Name)
		assert.Equal(t, []KeyPredicate{{Name: "Id", Literal: "3"}}, info.KeyPredicates)
	})

	t.Run("single quoted key with escapes", func(t *testing.T) {
		info, err := Parse(model, "/Employees('O''Neil%2C%20Jr')", nil)
		require.NoError(t, err)
		assert.True(t, info.IsEntity())
		assert.Equal(t, []KeyPredicate{{Name: "EmployeeId", Literal: "'O''Neil, Jr'"}}, info.KeyPredicates)
	})

	t.Run("named single key", func(t *testing.T) {
		info, err := Parse(model, "/Employees(EmployeeId='1')", nil)
		require.NoError(t, err)
		assert.Equal(t, []KeyPredicate{{Name: "EmployeeId", Literal: "'1'"}}, info.KeyPredicates)
	})

	t.Run("composite key in any order", func(t *testing.T) {
		info, err := Parse(model, "/Rooms(Number=2,Building='A,B')", nil)
		require.NoError(t, err)
		assert.Equal(t, []KeyPredicate{
			{Name: "Building", Literal: "'A,B'"},
			{Name: "Number", Literal: "2"},
		}, info.KeyPredicates)
	})

	t.Run("navigation", func(t *testing.T) {
		info, err := Parse(model, "/Employees('1')/ne_Manager", nil)
		require.NoError(t, err)
		assert.False(t, info.IsLinks)
		assert.Equal(t, "Employees", info.StartEntitySet.Name)
		assert.Equal(t, "Managers", info.TargetEntitySet.Name)
		require.Len(t, info.NavigationSegments, 1)
		assert.Equal(t, "ne_Manager", info.NavigationSegments[0].Name)
	})

	t.Run("links", func(t *testing.T) {
		info, err := Parse(model, "/Employees('1')/$links/ne_Rooms", nil)
		require.NoError(t, err)
		assert.True(t, info.IsLinks)
		assert.Equal(t, "Rooms", info.TargetEntitySet.Name)
		assert.False(t, info.IsEntity())
	})

	t.Run("links to one member", func(t *testing.T) {
		info, err := Parse(model, "/Employees('1')/$links/ne_Rooms(Building='A',Number=1)", nil)
		require.NoError(t, err)
		assert.True(t, info.IsEntity())
		assert.Len(t, info.NavigationSegments[0].KeyPredicates, 2)
	})
}

func TestParse_Errors(t *testing.T) {
	model := testModel()

	tests := []struct {
		name   string
		path   string
		query  url.Values
		status int
		key    string
	}{
		{name: "unknown set", path: "/Nope", status: http.StatusNotFound, key: odataerr.KeyEntitySetNotFound},
		{name: "unknown navigation", path: "/Employees('1')/ne_Boss", status: http.StatusNotFound, key: odataerr.KeyNavigationNotFound},
		{name: "navigation without key", path: "/Employees/ne_Manager", status: http.StatusNotImplemented, key: odataerr.KeyNotImplemented},
		{name: "count segment", path: "/Employees('1')/$count", status: http.StatusNotImplemented, key: odataerr.KeyNotImplemented},
		{name: "too deep", path: "/Employees('1')/ne_Manager/ne_Manager", status: http.StatusNotImplemented, key: odataerr.KeyNotImplemented},
		{name: "links without navigation", path: "/Employees('1')/$links", status: http.StatusBadRequest, key: odataerr.KeyBadRequest},
		{name: "unterminated literal", path: "/Employees('1)", status: http.StatusBadRequest, key: odataerr.KeyBadRequest},
		{name: "unclosed parenthesis", path: "/Employees('1'", status: http.StatusBadRequest, key: odataerr.KeyBadRequest},
		{name: "empty key", path: "/Employees()", status: http.StatusBadRequest, key: odataerr.KeyBadRequest},
		{name: "missing composite part", path: "/Rooms(Building='A')", status: http.StatusBadRequest, key: odataerr.KeyBadRequest},
		{name: "wrong composite name", path: "/Rooms(Building='A',Floor=1)", status: http.StatusBadRequest, key: odataerr.KeyBadRequest},
		{name: "duplicate key", path: "/Rooms(Building='A',Building='B')", status: http.StatusBadRequest, key: odataerr.KeyBadRequest},
		{name: "key on single navigation", path: "/Employees('1')/ne_Manager(1)", status: http.StatusBadRequest, key: odataerr.KeyBadRequest},
		{name: "bad escape", path: "/Employees('%zz')", status: http.StatusBadRequest, key: odataerr.KeyBadRequest},
		{name: "negative top", path: "/Employees", query: url.Values{"$top": {"-1"}}, status: http.StatusBadRequest, key: odataerr.KeyBadRequest},
		{name: "bad inlinecount", path: "/Employees", query: url.Values{"$inlinecount": {"some"}}, status: http.StatusBadRequest, key: odataerr.KeyBadRequest},
		{name: "unknown option", path: "/Employees", query: url.Values{"$search": {"x"}}, status: http.StatusBadRequest, key: odataerr.KeyBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(model, tt.path, tt.query)
			var oerr *odataerr.Error
			require.True(t, errors.As(err, &oerr), "got %v", err)
			assert.Equal(t, tt.status, oerr.Status)
			assert.Equal(t, tt.key, oerr.Ref.Key)
		})
	}
}

func TestParse_QueryOptions(t *testing.T) {
	query := url.Values{
		"$format":      {"json"},
		"$filter":      {"Age gt 30"},
		"$orderby":     {"Name desc"},
		"$expand":      {"ne_Manager, ne_Rooms"},
		"$select":      {"EmployeeId,EmployeeName"},
		"$inlinecount": {"allpages"},
		"$top":         {"10"},
		"$skip":        {"0"},
		"sap-client":   {"100"},
	}
	info, err := Parse(testModel(), "/Employees", query)
	require.NoError(t, err)

	assert.Equal(t, "json", info.Format)
	assert.Equal(t, "Age gt 30", info.Filter)
	assert.Equal(t, "Name desc", info.OrderBy)
	assert.Equal(t, []string{"ne_Manager", "ne_Rooms"}, info.Expand)
	assert.Equal(t, []string{"EmployeeId", "EmployeeName"}, info.Select)
	assert.True(t, info.WantsInlineCount())
	require.NotNil(t, info.Top)
	assert.Equal(t, 10, *info.Top)
	require.NotNil(t, info.Skip)
	assert.Equal(t, 0, *info.Skip)
	assert.Equal(t, map[string]string{"sap-client": "100"}, info.CustomQueryOptions)
	assert.Empty(t, info.FunctionImport)
}
