package protocol

import (
	"testing"

	"MPSpectra/internal/core/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileNameHelpers(t *testing.T) {
	id, err := ConnectionID("/tmp/x/s2c_seq_12.csv")
	require.NoError(t, err)
	assert.Equal(t, "12", id)

	id, err = ConnectionID("stats_3.csv")
	require.NoError(t, err)
	assert.Equal(t, "3", id)

	_, err = ConnectionID("noid.csv")
	assert.Error(t, err)

	assert.Equal(t, model.ServerToClient, DirectionOf("s2c_seq_1.csv"))
	assert.Equal(t, model.ClientToServer, DirectionOf("c2s_seq_1.csv"))

	assert.True(t, IsSeqFile("c2s_seq_1.csv"))
	assert.False(t, IsSeqFile("stats_1.csv"))
	assert.True(t, IsStatsFile("stats_1.csv"))
	assert.False(t, IsStatsFile("c2s_seq_1.csv"))
}
