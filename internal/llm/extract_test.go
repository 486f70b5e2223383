package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		wantErr bool
	}{
		{name: "plain object", content: `{"a":1}`, want: `{"a":1}`},
		{name: "markdown fence", content: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "leading prose", content: `Sure! {"a":{"b":2}} hope this helps`, want: `{"a":{"b":2}}`},
		{name: "reasoning block", content: `<think>maybe {"x":0}</think>{"a":1}`, want: `{"a":1}`},
		{name: "no braces", content: "I cannot help", wantErr: true},
		{name: "only reasoning", content: `<think>{"x":0}</think>done`, wantErr: true},
		{name: "reversed braces", content: `} nope {`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSONObject(tt.content)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNoJSONObject)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeSuggestions(t *testing.T) {
	content := `<think>hmm</think>
{
  "g1": {"suggestion": "餐饮 - 三餐", "isNew": false, "fallback": "餐饮"},
  "g2": {"suggestion": "洗衣", "isNew": true, "fallback": "日常", "reason": "laundry"}
}`

	got, err := DecodeSuggestions(content)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "餐饮 - 三餐", got["g1"].Label)
	assert.False(t, got["g1"].IsNew)
	assert.Equal(t, "餐饮", got["g1"].Fallback)

	assert.Equal(t, "洗衣", got["g2"].Label)
	assert.True(t, got["g2"].IsNew)
	assert.Equal(t, "日常", got["g2"].Fallback)
	assert.Equal(t, "laundry", got["g2"].Reason)
}

func TestDecodeSuggestions_Malformed(t *testing.T) {
	_, err := DecodeSuggestions(`{"g1": {"suggestion": }`)
	assert.ErrorIs(t, err, ErrDecode)

	_, err = DecodeSuggestions(`no json here`)
	assert.ErrorIs(t, err, ErrNoJSONObject)
}

func TestDecodeSuggestions_Empty(t *testing.T) {
	got, err := DecodeSuggestions(`{}`)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)
}
