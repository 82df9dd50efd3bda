package image

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var nativeKeys = func() []string {
	keys := make([]string, 0, len(CanonicalFieldNames))
	for k := range CanonicalFieldNames {
		keys = append(keys, k)
	}
	return keys
}()

// nativeTree draws a JSON-like value whose object keys are either native field names
// or plain keys that no translation table touches.
func nativeTree(depth int) *rapid.Generator[any] {
	leaf := rapid.OneOf(
		rapid.Map(rapid.String(), func(s string) any { return s }),
		rapid.Map(rapid.IntRange(-1000, 1000), func(i int) any { return float64(i) }),
		rapid.Map(rapid.Bool(), func(b bool) any { return b }),
	)
	if depth == 0 {
		return leaf
	}
	key := rapid.OneOf(rapid.SampledFrom(nativeKeys), rapid.StringMatching(`x_[a-z]{1,6}`))
	return rapid.OneOf(
		leaf,
		rapid.Map(rapid.MapOfN(key, nativeTree(depth-1), 0, 4), func(m map[string]any) any { return m }),
		rapid.Map(rapid.SliceOfN(nativeTree(depth-1), 0, 3), func(s []any) any { return s }),
	)
}

func TestProperty_TranslateKeysRoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		original := nativeTree(3).Draw(rt, "tree")

		canonical := TranslateKeys(original, CanonicalFieldNames)
		back := TranslateKeys(canonical, NativeFieldNames)

		if !assert.ObjectsAreEqual(original, back) {
			rt.Fatalf("round trip mismatch:\n original=%#v\n back=%#v", original, back)
		}
	})
}

func TestProperty_NormalizeIdempotent(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		mime := rapid.SampledFrom([]string{"image/png", "image/jpeg", "image/webp"}).Draw(rt, "mime")
		data := rapid.StringMatching(`[A-Za-z0-9+/]{4,32}`).Draw(rt, "data")
		text := rapid.StringMatching(`[a-z ]{0,20}`).Draw(rt, "text")
		native := rapid.Bool().Draw(rt, "native")

		imageKey, mimeKey := "inlineData", "mimeType"
		if native {
			imageKey, mimeKey = "inline_data", "mime_type"
		}
		parts := []any{map[string]any{imageKey: map[string]any{mimeKey: mime, "data": data}}}
		if text != "" {
			parts = append([]any{map[string]any{"text": text}}, parts...)
		}
		body, err := json.Marshal(map[string]any{
			"candidates": []any{map[string]any{"content": map[string]any{"parts": parts}}},
		})
		require.NoError(rt, err)

		first, err := Normalize(KindMultimodal, body)
		require.NoError(rt, err)
		once, err := json.Marshal(first)
		require.NoError(rt, err)

		second, err := Normalize(KindMultimodal, once)
		require.NoError(rt, err)
		twice, err := json.Marshal(second)
		require.NoError(rt, err)

		assert.JSONEq(rt, string(once), string(twice))
	})
}

func TestProperty_GenericNormalizeIdempotent(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		data := rapid.StringMatching(`[A-Za-z0-9+/]{4,32}`).Draw(rt, "data")
		body, err := json.Marshal(map[string]any{"data": []any{map[string]any{"b64_json": data}}})
		require.NoError(rt, err)

		first, err := Normalize(KindGenericImage, body)
		require.NoError(rt, err)
		once, err := json.Marshal(first)
		require.NoError(rt, err)

		second, err := Normalize(KindGenericImage, once)
		require.NoError(rt, err)
		twice, err := json.Marshal(second)
		require.NoError(rt, err)

		assert.JSONEq(rt, string(once), string(twice))
	})
}
