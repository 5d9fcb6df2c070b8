package markdown

import (
	"bytes"
	"html/template"
	"strings"
	"sync"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/styles"
)

type colorScheme struct {
	media string
	style string
}

var chromaSchemes = []colorScheme{
	{media: "(prefers-color-scheme: light)", style: "github"},
	{media: "(prefers-color-scheme: dark)", style: "monokai"},
}

var (
	chromaCSSOnce sync.Once
	chromaCSS     template.CSS
)

// ChromaCSS is the stylesheet for highlighted code blocks, one chroma style
// per color scheme. Built once.
func ChromaCSS() template.CSS {
	chromaCSSOnce.Do(func() {
		var out strings.Builder
		for _, scheme := range chromaSchemes {
			css := styleCSS(scheme.style)
			if css == "" {
				continue
			}
			out.WriteString("@media " + scheme.media + " {\n")
			out.WriteString(css)
			out.WriteString("}\n")
		}
		chromaCSS = template.CSS(out.String())
	})

	return chromaCSS
}

func styleCSS(styleName string) string {
	style := styles.Get(styleName)
	if style == nil {
		style = styles.Fallback
	}

	var buffer bytes.Buffer
	if err := chromahtml.New(chromahtml.WithClasses(true)).WriteCSS(&buffer, style); err != nil {
		return ""
	}

	return buffer.String()
}
