package dto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateTicketRequestAssigneeAbsent(t *testing.T) {
	var req UpdateTicketRequest
	require.NoError(t, json.Unmarshal([]byte(`{"title":"x"}`), &req))
	assert.False(t, req.Assignee.Set)
	assert.Nil(t, req.Assignee.Value)
}

func TestUpdateTicketRequestAssigneeNull(t *testing.T) {
	var req UpdateTicketRequest
	require.NoError(t, json.Unmarshal([]byte(`{"assignee":null}`), &req))
	assert.True(t, req.Assignee.Set)
	assert.Nil(t, req.Assignee.Value)
}

func TestUpdateTicketRequestAssigneeValue(t *testing.T) {
	var req UpdateTicketRequest
	require.NoError(t, json.Unmarshal([]byte(`{"assignee":"u042"}`), &req))
	assert.True(t, req.Assignee.Set)
	require.NotNil(t, req.Assignee.Value)
	assert.Equal(t, "u042", *req.Assignee.Value)
}

func TestUpdateTicketRequestAssigneeWrongType(t *testing.T) {
	var req UpdateTicketRequest
	assert.Error(t, json.Unmarshal([]byte(`{"assignee":42}`), &req))
}
