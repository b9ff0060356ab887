package schema

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/graphload/pkg/graphload"
)

func TestParseIndexes(t *testing.T) {
	input := "labels,properties,uniqueness,type\n" +
		"Person;Employee,name;email,NONUNIQUE,RANGE\n" +
		"Company,id,UNIQUE,RANGE\n" +
		",name,NONUNIQUE,RANGE\n" +
		"Person,,NONUNIQUE,RANGE\n" +
		"Person,,NONUNIQUE,LOOKUP\n" +
		"City, name ,NONUNIQUE,\n"

	defs, skipped, err := ParseIndexes(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 4, skipped)
	require.Len(t, defs, 2)
	assert.Equal(t, []string{"Person", "Employee"}, defs[0].Labels)
	assert.Equal(t, []string{"name", "email"}, defs[0].Properties)
	assert.Equal(t, IndexDef{Labels: []string{"City"}, Properties: []string{"name"}}, defs[1])
}

func TestParseIndexes_Empty(t *testing.T) {
	defs, skipped, err := ParseIndexes(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, defs)
	assert.Zero(t, skipped)
}

func TestParseIndexes_HeaderCaseAndBOM(t *testing.T) {
	input := "\ufeffLabels, Properties\nPerson,name\n"
	defs, _, err := ParseIndexes(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, []string{"Person"}, defs[0].Labels)
}

func TestParseIndexes_Malformed(t *testing.T) {
	_, _, err := ParseIndexes(strings.NewReader("labels,properties\n\"unterminated,name\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, graphload.ErrInvalidInput))
}

func TestParseConstraints(t *testing.T) {
	input := "labels,properties,type,entity_type\n" +
		"Person,email,UNIQUE,NODE\n" +
		"KNOWS,since,UNIQUE,RELATIONSHIP\n" +
		"Person,name,MANDATORY,NODE\n" +
		",x,UNIQUE,NODE\n"

	defs, skipped, err := ParseConstraints(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 1, skipped)
	require.Len(t, defs, 3)

	assert.True(t, defs[0].Unique())
	assert.True(t, defs[0].OnNodes())
	assert.False(t, defs[1].OnNodes())
	assert.False(t, defs[2].Unique())
}

func TestParseConstraints_DefaultsToNode(t *testing.T) {
	defs, _, err := ParseConstraints(strings.NewReader("labels,properties,type\nPerson,first;last,unique\n"))
	require.NoError(t, err)
	require.Len(t, defs, 1)
	if defs[0].EntityType != "NODE" {
		t.Errorf("EntityType = %q, want NODE", defs[0].EntityType)
	}
	if defs[0].Type != "UNIQUE" {
		t.Errorf("Type = %q, want UNIQUE", defs[0].Type)
	}
	assert.Equal(t, []string{"first", "last"}, defs[0].Properties)
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"a", []string{"a"}},
		{"a; b ;;c", []string{"a", "b", "c"}},
		{" ; ", nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, splitList(tt.in), "splitList(%q)", tt.in)
	}
}
