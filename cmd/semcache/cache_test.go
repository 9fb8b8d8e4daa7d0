package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePayload(t *testing.T) {
	valid := `{
		"intro": "hi",
		"recommended_tools": [],
		"comparison": [],
		"final_recommendation": [],
		"next_steps": []
	}`

	got, err := parsePayload(valid, false)
	require.NoError(t, err)
	assert.Equal(t, `{"intro":"hi","recommended_tools":[],"comparison":[],"final_recommendation":[],"next_steps":[]}`, string(got))

	_, err = parsePayload(`{"answer": 42}`, false)
	assert.Error(t, err, "schema enforced without --raw")

	got, err = parsePayload(`{"answer": 42}`, true)
	require.NoError(t, err)
	assert.JSONEq(t, `{"answer": 42}`, string(got))

	_, err = parsePayload(`{not json`, true)
	assert.Error(t, err)
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", preview("short"))

	long := strings.Repeat("é", 100)
	p := preview(long)
	assert.True(t, strings.HasSuffix(p, "..."))
	assert.Len(t, []rune(p), 83)
}

func TestStoreChangingCommandsWarnAboutRunningServer(t *testing.T) {
	cmd := newCacheCmd()
	for _, name := range []string{"insert", "clear"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)
		assert.Contains(t, sub.Long, "/api/cache/rebuild", "%s help", name)
	}
}
