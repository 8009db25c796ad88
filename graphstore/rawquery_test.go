package graphstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/c360studio/kgraph/graphmodel"
)

func TestRawQuery_RejectsInvalidRelationshipTypeLiteral(t *testing.T) {
	s := &Store{}
	_, err := s.RawQuery(context.Background(), "SELECT 1", []string{"not valid"})
	assert.Error(t, err)
}

func TestRawQuery_AcceptsValidRelationshipTypeLiteral(t *testing.T) {
	// Only the literal validation runs before the query executes; a nil
	// pool would panic on Query, so this only exercises the pre-check.
	for _, lit := range []string{"CAUSES", "IS_A", "PART_OF_2"} {
		assert.True(t, graphmodel.ValidRelationshipType(lit), lit)
	}
}

func TestSplitNodesAndRelationships(t *testing.T) {
	rows := []map[string]any{
		{"concept_id": "c1", "label": "A"},
		{"relationship_id": "r1", "from_concept_id": "c1"},
	}
	nodes, rels := splitNodesAndRelationships(rows)
	assert.Len(t, nodes, 1)
	assert.Len(t, rels, 1)
}

func TestRelationshipTypeLockKey_Deterministic(t *testing.T) {
	a := relationshipTypeLockKey("CAUSES")
	b := relationshipTypeLockKey("CAUSES")
	c := relationshipTypeLockKey("PART_OF")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
