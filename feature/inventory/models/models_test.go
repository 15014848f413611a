package models

import (
	"testing"

	"module-monitor/core/database"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexBool(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{`true`, true},
		{`false`, false},
		{`1`, true},
		{`0`, false},
		{`"1"`, true},
		{`"0"`, false},
		{`"true"`, true},
		{`null`, false},
	}
	for _, tt := range tests {
		var r ModuleReport
		err := json.Unmarshal([]byte(`{"machine_name":"views","enabled":`+tt.in+`}`), &r)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, bool(r.Enabled), tt.in)
	}
}

func TestTaskStatus_Terminal(t *testing.T) {
	assert.False(t, TaskPending.Terminal())
	assert.False(t, TaskInProgress.Terminal())
	assert.True(t, TaskCompleted.Terminal())
	assert.True(t, TaskFailed.Terminal())
}

func TestAutoMigrate(t *testing.T) {
	db, err := database.Connect(database.Config{Driver: "sqlite", Name: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))

	missing, err := database.MissingColumns(db, RequiredColumns())
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestAutoMigrate_TaskResultHoldsLargeResults(t *testing.T) {
	db, err := database.Connect(database.Config{Driver: "sqlite", Name: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))

	cols, err := database.GetTableColumns(db, "sync_tasks")
	require.NoError(t, err)
	types := make(map[string]string, len(cols))
	for _, c := range cols {
		types[c.Field] = c.Type
	}
	// MySQL TEXT stops at 64KB; a result with thousands of row errors does not fit.
	assert.Equal(t, "longtext", types["result"])
}
