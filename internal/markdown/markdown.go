// Package markdown turns article bodies into HTML with highlighted code
// blocks, and into plain-text excerpts for article cards.
package markdown

import (
	stdhtml "html"
	"html/template"
	"io"
	"net/url"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"devblog/internal/route"
	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	md "github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/ast"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// ArticleLinkScheme marks a link to another article by ID, e.g. article://42.
const ArticleLinkScheme = "article://"

const lastGoodBreakRatio = 0.8

type Options struct {
	// RootURL is the public origin of the blog. Absolute links to it are
	// rewritten to site-relative paths.
	RootURL string
}

type replacement struct {
	pattern *regexp.Regexp
	with    string
}

// plainTextReplacements strip markdown syntax, in order, leaving readable text.
var plainTextReplacements = []replacement{
	{regexp.MustCompile("(?s)```.*?```"), " "},
	{regexp.MustCompile(`(?m)^\|.*\|.*$`), " "},
	{regexp.MustCompile(`!\[.*?\]\(.*?\)`), " "},
	{regexp.MustCompile(`(?m)^---+$`), " "},
	{regexp.MustCompile(`(?m)^\[\^[^\]]+\]: .*$`), " "},
	{regexp.MustCompile(`\[\^[^\]]+\]`), ""},
	{regexp.MustCompile(`\*\*\*(.*?)\*\*\*`), "$1"},
	{regexp.MustCompile(`\*\*(.*?)\*\*`), "$1"},
	{regexp.MustCompile(`\*(.*?)\*`), "$1"},
	{regexp.MustCompile(`_(.*?)_`), "$1"},
	{regexp.MustCompile(`(?m)^#{1,6}\s+(.*?)$`), "\n$1\n"},
	{regexp.MustCompile(`~~(.*?)~~`), "$1"},
	{regexp.MustCompile("`(.*?)`"), "$1"},
	{regexp.MustCompile(`\[(.*?)\]\(.*?\)`), "$1"},
	{regexp.MustCompile(`(?m)^\s*>\s*(.*?)$`), "$1"},
	{regexp.MustCompile(`(?m)^\s*-\s\[[ x]\]\s+`), "- "},
	{regexp.MustCompile(`(?m)^\s*\d+\.\s+`), "- "},
	{regexp.MustCompile(`<[^>]*>`), ""},
}

func ToHTML(input string, opts Options) template.HTML {
	if strings.TrimSpace(input) == "" {
		return template.HTML("")
	}

	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	doc := p.Parse([]byte(input))
	rewriteLinks(doc, strings.TrimRight(strings.TrimSpace(opts.RootURL), "/"))

	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{
		Flags:          mdhtml.CommonFlags | mdhtml.SkipHTML,
		RenderNodeHook: renderNodeHook,
	})

	return template.HTML(md.Render(doc, renderer))
}

// Excerpt returns at most maxChars runes of plain text, cut at a word
// boundary when one is close to the limit.
func Excerpt(input string, maxChars int) string {
	if maxChars < 1 {
		return ""
	}

	text := input
	for _, r := range plainTextReplacements {
		text = r.pattern.ReplaceAllString(text, r.with)
	}
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return ""
	}

	if utf8.RuneCountInString(text) <= maxChars {
		return text
	}

	return truncateRunes(text, maxChars)
}

func truncateRunes(text string, maxChars int) string {
	runes := []rune(text)
	truncateAt := maxChars
	minBreak := int(float64(maxChars) * lastGoodBreakRatio)
	for idx := maxChars - 1; idx >= minBreak; idx-- {
		if unicode.IsSpace(runes[idx]) {
			truncateAt = idx
			break
		}
	}

	truncated := strings.TrimSpace(string(runes[:truncateAt]))
	if truncated == "" {
		truncated = strings.TrimSpace(string(runes[:maxChars]))
	}

	return truncated + "..."
}

func rewriteLinks(doc ast.Node, rootURL string) {
	ast.WalkFunc(doc, func(node ast.Node, entering bool) ast.WalkStatus {
		if !entering {
			return ast.GoToNext
		}

		link, ok := node.(*ast.Link)
		if !ok {
			return ast.GoToNext
		}

		href, internal := resolveHref(string(link.Destination), rootURL)
		link.Destination = []byte(href)
		link.AdditionalAttributes = linkAttributes(link.AdditionalAttributes, internal)
		return ast.GoToNext
	})
}

// resolveHref maps article:// tokens and same-site absolute URLs to
// site-relative paths. It reports whether the result stays on the blog.
func resolveHref(href string, rootURL string) (string, bool) {
	if id, ok := strings.CutPrefix(href, ArticleLinkScheme); ok {
		return route.Href(route.ArticleDetail{ID: strings.Trim(id, "/")}), true
	}
	if strings.HasPrefix(href, "/") || strings.HasPrefix(href, "#") {
		return href, true
	}
	if rootURL == "" || (href != rootURL && !strings.HasPrefix(href, rootURL+"/")) {
		return href, false
	}

	parsed, err := url.Parse(href)
	if err != nil {
		return href, true
	}

	normalized := parsed.Path
	if normalized == "" {
		normalized = "/"
	}
	if parsed.RawQuery != "" {
		normalized += "?" + parsed.RawQuery
	}
	if parsed.Fragment != "" {
		normalized += "#" + parsed.Fragment
	}

	return normalized, true
}

func linkAttributes(existing []string, internal bool) []string {
	attrs := make([]string, 0, len(existing)+2)
	for _, attr := range existing {
		normalized := strings.ToLower(strings.TrimSpace(attr))
		if strings.HasPrefix(normalized, "target=") || strings.HasPrefix(normalized, "rel=") {
			continue
		}
		attrs = append(attrs, attr)
	}

	if internal {
		return attrs
	}
	return append(attrs, `target="_blank"`, `rel="noopener noreferrer"`)
}

func renderNodeHook(writer io.Writer, node ast.Node, entering bool) (ast.WalkStatus, bool) {
	if !entering {
		return ast.GoToNext, false
	}

	switch typedNode := node.(type) {
	case *ast.CodeBlock:
		renderCodeBlock(writer, typedNode)
		return ast.SkipChildren, true
	case *ast.Code:
		_, _ = io.WriteString(writer, `<code class="inline-code">`+stdhtml.EscapeString(string(typedNode.Literal))+`</code>`)
		return ast.SkipChildren, true
	default:
		return ast.GoToNext, false
	}
}

func renderCodeBlock(writer io.Writer, block *ast.CodeBlock) {
	code := string(block.Literal)
	iterator, err := pickLexer(codeLanguage(block.Info), code).Tokenise(nil, code)
	if err == nil {
		formatter := chromahtml.New(chromahtml.WithClasses(true))
		if err = formatter.Format(writer, styles.Fallback, iterator); err == nil {
			return
		}
	}

	_, _ = io.WriteString(writer, `<pre class="chroma"><code>`+stdhtml.EscapeString(code)+`</code></pre>`)
}

func pickLexer(language string, code string) chroma.Lexer {
	if language != "" {
		if lexer := lexers.Get(language); lexer != nil {
			return lexer
		}
	}

	if lexer := lexers.Analyse(code); lexer != nil {
		return lexer
	}

	return lexers.Fallback
}

func codeLanguage(info []byte) string {
	fields := strings.Fields(string(info))
	if len(fields) == 0 {
		return ""
	}

	return strings.ToLower(fields[0])
}
