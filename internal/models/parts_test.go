package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartFileName(t *testing.T) {
	assert.Equal(t, "/data/out.csv-parts/part_3_8", PartFileName("/data/out.csv", 3, 8))
	assert.Equal(t, "/data/out.csv-parts", PartsDir("/data/out.csv"))
}

func TestClusterAssignment_Validate(t *testing.T) {
	require.NoError(t, ClusterAssignment{NodeID: 0, ClusterSize: 1}.Validate())
	require.ErrorIs(t, ClusterAssignment{NodeID: 0, ClusterSize: 0}.Validate(), ErrConfiguration)
	require.ErrorIs(t, ClusterAssignment{NodeID: 2, ClusterSize: 2}.Validate(), ErrConfiguration)

	a := ClusterAssignment{NodeID: 3, ClusterSize: 4}
	assert.True(t, a.IsLast())
	assert.False(t, a.IsCoordinator())
}
