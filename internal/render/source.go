package render

import (
	"fmt"
	"html"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"docblocks/internal/entity"
)

// SourceBlock is a collapsible source listing with line numbers.
type SourceBlock struct {
	FilePath  string `json:"file_path"`
	StartLine int    `json:"start_line"`
	Code      string `json:"code"`
	Language  string `json:"language"`
}

// NewSourceBlock builds the listing for a source span.
func NewSourceBlock(span *entity.SourceSpan) *SourceBlock {
	return &SourceBlock{
		FilePath:  span.FilePath,
		StartLine: span.StartLine,
		Code:      strings.TrimRight(span.Code, "\n"),
		Language:  languageFor(span.FilePath),
	}
}

// HTML renders the listing. Line numbers start at StartLine.
func (s *SourceBlock) HTML() string {
	lines := strings.Split(s.Code, "\n")
	nums := make([]string, len(lines))
	for i := range lines {
		nums[i] = fmt.Sprintf(`<span class="normal">%d</span>`, s.StartLine+i)
	}

	var sb strings.Builder
	sb.WriteString(`<details class="quote">` + "\n")
	fmt.Fprintf(&sb, "  <summary>Source code in <code>%s</code></summary>\n", html.EscapeString(s.FilePath))
	fmt.Fprintf(&sb, `  <table class="highlighttable" data-linestart="%d"><tr>`, s.StartLine)
	fmt.Fprintf(&sb, `<td class="linenos"><pre>%s</pre></td>`, strings.Join(nums, "\n"))
	fmt.Fprintf(&sb, `<td class="code"><pre><code class="language-%s">%s</code></pre></td>`, s.Language, html.EscapeString(s.Code))
	sb.WriteString("</tr></table>\n</details>")
	return sb.String()
}

// ExtractSourceStart reads back the first line number and file label of a
// rendered source listing.
func ExtractSourceStart(fragment string) (file string, line int, err error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return "", 0, fmt.Errorf("could not parse source block: %w", err)
	}
	details := doc.Find("details.quote").First()
	if details.Length() == 0 {
		return "", 0, fmt.Errorf("no source block found")
	}
	file = details.Find("summary code").First().Text()
	first := details.Find("td.linenos span").First().Text()
	line, err = strconv.Atoi(strings.TrimSpace(first))
	if err != nil {
		return "", 0, fmt.Errorf("invalid line number %q: %w", first, err)
	}
	return file, line, nil
}

var languages = map[string]string{
	".go":  "go",
	".py":  "python",
	".js":  "javascript",
	".ts":  "typescript",
	".rs":  "rust",
	".rb":  "ruby",
	".sh":  "bash",
	".c":   "c",
	".h":   "c",
	".cpp": "cpp",
}

func languageFor(path string) string {
	if lang, ok := languages[strings.ToLower(filepath.Ext(path))]; ok {
		return lang
	}
	return "text"
}
