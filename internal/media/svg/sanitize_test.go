package svg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeStripsScripts(t *testing.T) {
	in := []byte(`<svg xmlns="http://www.w3.org/2000/svg" onload="alert(1)"><script>alert(2)</script><rect onclick='x()' width="10"/><a href="javascript:evil()">x</a><foreignObject><div/></foreignObject></svg>`)

	out, err := Sanitize(in)
	require.NoError(t, err)

	s := string(out)
	assert.NotContains(t, s, "script")
	assert.NotContains(t, s, "onload")
	assert.NotContains(t, s, "onclick")
	assert.NotContains(t, s, "javascript:")
	assert.NotContains(t, s, "foreignObject")
	assert.Contains(t, s, `<rect width="10"/>`)
}

func TestSanitizeRejectsNonSVG(t *testing.T) {
	_, err := Sanitize([]byte("<html></html>"))
	assert.ErrorIs(t, err, ErrNotSVG)
}
