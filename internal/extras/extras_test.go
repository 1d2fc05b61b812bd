package extras

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpand(t *testing.T) {
	vars := map[string]string{"OUTPUT": "/out dir"}
	lookup := func(key string) string {
		if key == "HOME" {
			return "/home/ci"
		}
		return ""
	}
	got, err := Expand([]string{"--locked -v", `--config "a b"`, "--path=${OUTPUT}/x", "$HOME $MISSING"}, vars, lookup)
	require.NoError(t, err)
	assert.Equal(t, []string{"--locked", "-v", "--config", "a b", "--path=/out", "dir/x", "/home/ci"}, got)
}

func TestExpandQuotedVariable(t *testing.T) {
	got, err := Expand([]string{`--output-signature "$OUTPUT/sig"`}, map[string]string{"OUTPUT": "/out dir"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"--output-signature", "/out dir/sig"}, got)
}

func TestExpandEmpty(t *testing.T) {
	got, err := Expand(nil, nil, nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestExpandRejectsOperators(t *testing.T) {
	_, err := Expand([]string{"--a && rm -rf /"}, nil, nil)
	require.Error(t, err)
}

func TestExpandRejectsUnterminatedQuote(t *testing.T) {
	_, err := Expand([]string{`--a "b`}, nil, nil)
	require.Error(t, err)
}
