package cli

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_SanitizeIdent_Capitalizes_A_Simple_Key(t *testing.T) {
	t.Parallel()

	require.Equal(t, "Name", sanitizeIdent("name", 0))
}

func Test_SanitizeIdent_Drops_A_Leading_Digit_But_Keeps_Later_Ones(t *testing.T) {
	t.Parallel()

	require.Equal(t, "Age1", sanitizeIdent("1age1", 0))
}

func Test_SanitizeIdent_Falls_Back_To_Positional_Name_When_Nothing_Survives(t *testing.T) {
	t.Parallel()

	require.Equal(t, "FieldA", sanitizeIdent("$$$", 0))
	require.Equal(t, "FieldB", sanitizeIdent("$$$", 1))
}

func Test_BuildDynamicInstance_Synthesizes_A_Field_Per_Key(t *testing.T) {
	t.Parallel()

	inst := buildDynamicInstance(map[string]any{
		"name": "Alice",
		"age":  float64(30),
	})

	require.NotNil(t, inst)
}

func Test_BuildDynamicInstance_Deduplicates_Colliding_Identifiers(t *testing.T) {
	t.Parallel()

	inst := buildDynamicInstance(map[string]any{
		"name": "a",
		"Name": "b",
	})

	require.NotNil(t, inst)
}
