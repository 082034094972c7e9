package common

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalendarDateJSON(t *testing.T) {
	var req struct {
		DateOfBirth CalendarDate `json:"dateOfBirth"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"dateOfBirth":"1990-01-02"}`), &req))
	assert.Equal(t, time.Date(1990, 1, 2, 0, 0, 0, 0, time.UTC), req.DateOfBirth.Time)

	out, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"dateOfBirth":"1990-01-02"}`, string(out))

	require.NoError(t, json.Unmarshal([]byte(`{"dateOfBirth":""}`), &req))
	assert.True(t, req.DateOfBirth.Time.IsZero())

	assert.Error(t, json.Unmarshal([]byte(`{"dateOfBirth":"02/01/1990"}`), &req))
	assert.Error(t, json.Unmarshal([]byte(`{"dateOfBirth":19900102}`), &req))
}
