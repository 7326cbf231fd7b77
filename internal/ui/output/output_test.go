package output_test

import (
	"bytes"
	"testing"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"go.trai.ch/relcache/internal/ui/output"
)

func TestColorProfile_NoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	assert.Equal(t, termenv.Ascii, output.ColorProfile())
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	out := output.New(&buf)

	_, _ = out.WriteString("committed 3")
	assert.Equal(t, "committed 3", buf.String())
	assert.NotNil(t, output.New(nil))
}

func TestRenderer_PlainForBuffers(t *testing.T) {
	var buf bytes.Buffer
	r := output.Renderer(&buf)

	assert.Equal(t, termenv.Ascii, r.ColorProfile())
	assert.Equal(t, "foo-main", r.NewStyle().Bold(true).Render("foo-main"))
}

func TestRenderer_NoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	assert.Equal(t, termenv.Ascii, output.Renderer(nil).ColorProfile())
}
