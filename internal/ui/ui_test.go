package ui

import (
	"strings"
	"testing"
)

func TestRenderHelpersKeepText(t *testing.T) {
	helpers := map[string]func(string) string{
		"accent": RenderAccent,
		"pass":   RenderPass,
		"warn":   RenderWarn,
		"fail":   RenderFail,
		"faint":  RenderFaint,
	}
	for name, render := range helpers {
		if got := render("Error:"); !strings.Contains(got, "Error:") {
			t.Errorf("%s render dropped the text: %q", name, got)
		}
	}
}
