package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkSubmission_ValueIsJSONText(t *testing.T) {
	v, err := WorkSubmission{Link: "https://example.com/work", Description: "v1"}.Value()
	require.NoError(t, err)

	s, ok := v.(string)
	require.True(t, ok)
	assert.JSONEq(t, `{"link":"https://example.com/work","description":"v1"}`, s)

	var back WorkSubmission
	require.NoError(t, back.Scan([]byte(s)))
	assert.Equal(t, "https://example.com/work", back.Link)
}

func TestJSON_NullHandling(t *testing.T) {
	var j JSON
	require.NoError(t, j.Scan(nil))

	v, err := j.Value()
	require.NoError(t, err)
	assert.Nil(t, v)

	out, err := json.Marshal(struct {
		P JSON `json:"p"`
	}{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"p":null}`, string(out))
}

func TestJSON_ScanCopiesBytes(t *testing.T) {
	src := []byte(`{"order_id":"5O190127TN364715T"}`)
	var j JSON
	require.NoError(t, j.Scan(src))
	src[2] = 'X'
	assert.JSONEq(t, `{"order_id":"5O190127TN364715T"}`, string(j))
}
