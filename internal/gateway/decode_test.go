package gateway

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeBody(t *testing.T) {
	obj, err := DecodeBody([]byte(`{"prompt":"hi","extra":1}`))
	require.NoError(t, err)
	require.Equal(t, "hi", obj["prompt"])

	obj, err = DecodeBody([]byte(`"{\"prompt\":\"hi\"}"`))
	require.NoError(t, err)
	require.Equal(t, map[string]any{"prompt": "hi"}, obj)

	obj, err = DecodeBody([]byte("  \n"))
	require.NoError(t, err)
	require.Empty(t, obj)

	obj, err = DecodeBody([]byte(`42`))
	require.NoError(t, err)
	require.Empty(t, obj)

	_, err = DecodeBody([]byte(`"not json"`))
	require.Error(t, err)

	_, err = DecodeBody([]byte(`{"prompt":`))
	require.Error(t, err)
}

func TestPromptFrom(t *testing.T) {
	p, ok := promptFrom(map[string]any{"prompt": "hello"})
	require.True(t, ok)
	require.Equal(t, "hello", p)

	for _, body := range []map[string]any{
		{},
		{"prompt": ""},
		{"prompt": 7},
		{"prompt": []any{"hi"}},
	} {
		_, ok := promptFrom(body)
		require.False(t, ok)
	}
}
