// Package chunker splits markdown pages into typed, searchable chunks.
package chunker

import (
	"bytes"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	astext "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/custodia-labs/curator/internal/core/domain"
)

// DefaultChunkSize is the default number of characters per text chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters
// between consecutive text chunks.
const DefaultChunkOverlap = 200

// Chunker walks a page's markdown AST and produces typed chunks with
// a header breadcrumb. Code fences, tables and lists become their own
// chunks; prose is accumulated and split by size with overlap.
type Chunker struct {
	chunkSize int
	overlap   int
	md        goldmark.Markdown
}

// Option configures the chunker.
type Option func(*Chunker)

// WithChunkSize sets the maximum text chunk size in characters.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between text chunks in characters.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// New creates a chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
		md:        goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}

	for _, opt := range opts {
		opt(c)
	}

	// Ensure overlap doesn't exceed chunk size
	if c.overlap >= c.chunkSize {
		c.overlap = c.chunkSize / 4
	}

	return c
}

// builder carries the walk state for one page.
type builder struct {
	page    *domain.Page
	src     []byte
	now     time.Time
	headers []headerEntry
	chunks  []domain.Chunk
	prose   bytes.Buffer
	size    int
	overlap int
}

type headerEntry struct {
	level int
	title string
}

// Chunk splits a page into chunks. Identical page content always
// yields chunks with identical IDs, so re-indexing an unchanged page
// is a no-op for downstream quality state.
func (c *Chunker) Chunk(page *domain.Page) ([]domain.Chunk, error) {
	if strings.TrimSpace(page.Content) == "" {
		return nil, nil
	}

	src := []byte(page.Content)
	doc := c.md.Parser().Parse(text.NewReader(src))

	b := &builder{
		page:    page,
		src:     src,
		now:     time.Now().UTC(),
		size:    c.chunkSize,
		overlap: c.overlap,
	}

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			b.flushProse()
			b.pushHeader(node.Level, string(extractText(node, src)))

		case *ast.FencedCodeBlock, *ast.CodeBlock:
			b.flushProse()
			b.emit(rawBlock(n, src), domain.ChunkTypeCode)

		case *astext.Table:
			b.flushProse()
			b.emit(renderTable(node, src), domain.ChunkTypeTable)

		case *ast.List:
			b.flushProse()
			b.emit(renderList(node, src, 0), domain.ChunkTypeList)

		default:
			t := extractText(n, src)
			if t != "" {
				if b.prose.Len() > 0 {
					b.prose.WriteString("\n\n")
				}
				b.prose.WriteString(t)
			}
		}
	}
	b.flushProse()

	return b.chunks, nil
}

// pushHeader updates the breadcrumb stack for a new heading. Headings
// at the same or deeper level replace their predecessors.
func (b *builder) pushHeader(level int, title string) {
	for len(b.headers) > 0 && b.headers[len(b.headers)-1].level >= level {
		b.headers = b.headers[:len(b.headers)-1]
	}
	b.headers = append(b.headers, headerEntry{level: level, title: title})
}

// breadcrumb returns the current header path, outermost first.
func (b *builder) breadcrumb() []string {
	if len(b.headers) == 0 {
		return nil
	}
	out := make([]string, len(b.headers))
	for i, h := range b.headers {
		out[i] = h.title
	}
	return out
}

// flushProse splits accumulated prose into size-bounded text chunks
// with overlap and emits them.
func (b *builder) flushProse() {
	content := strings.TrimSpace(b.prose.String())
	b.prose.Reset()
	if content == "" {
		return
	}

	if len(content) <= b.size {
		b.emit(content, domain.ChunkTypeText)
		return
	}

	step := b.size - b.overlap
	for start := 0; start < len(content); start += step {
		end := start + b.size
		if end > len(content) {
			end = len(content)
		}
		b.emit(content[start:end], domain.ChunkTypeText)
		if end == len(content) {
			break
		}
	}
}

// emit appends one chunk with the current breadcrumb and a
// deterministic ID.
func (b *builder) emit(content string, chunkType domain.ChunkType) {
	content = strings.TrimSpace(content)
	if content == "" {
		return
	}

	index := len(b.chunks)
	b.chunks = append(b.chunks, domain.Chunk{
		ID:            domain.ChunkID(b.page.ID, index, content),
		PageID:        b.page.ID,
		PageTitle:     b.page.Title,
		URL:           b.page.URL,
		Content:       content,
		Type:          chunkType,
		Index:         index,
		CharCount:     len(content),
		ParentHeaders: b.breadcrumb(),
		SpaceKey:      b.page.SpaceKey,
		DocType:       b.page.DocType,
		Topics:        b.page.Topics,
		CreatedAt:     b.now,
		UpdatedAt:     b.page.UpdatedAt,
	})
}

// rawBlock returns the source lines of a block node verbatim. Used
// for code blocks where formatting matters.
func rawBlock(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		buf.Write(line.Value(src))
	}
	return buf.String()
}

// renderTable flattens a GFM table into pipe-delimited rows.
func renderTable(table *astext.Table, src []byte) string {
	var rows []string
	for row := table.FirstChild(); row != nil; row = row.NextSibling() {
		var cells []string
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			cells = append(cells, extractText(cell, src))
		}
		rows = append(rows, strings.Join(cells, " | "))
	}
	return strings.Join(rows, "\n")
}

// renderList flattens a list (including nesting) into indented lines.
func renderList(list *ast.List, src []byte, depth int) string {
	var lines []string
	indent := strings.Repeat("  ", depth)

	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		var itemText []string
		for child := item.FirstChild(); child != nil; child = child.NextSibling() {
			if nested, ok := child.(*ast.List); ok {
				if s := renderList(nested, src, depth+1); s != "" {
					itemText = append(itemText, s)
				}
				continue
			}
			if t := extractText(child, src); t != "" {
				itemText = append(itemText, indent+"- "+t)
			}
		}
		lines = append(lines, itemText...)
	}
	return strings.Join(lines, "\n")
}

// extractText gets the plain text content of an AST node. Inline
// children take precedence over raw source lines so text is not
// emitted twice for blocks that carry both.
func extractText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	if n.Type() == ast.TypeBlock && n.FirstChild() == nil {
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			buf.Write(line.Value(src))
		}
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Value(src))
			if t.HardLineBreak() || t.SoftLineBreak() {
				buf.WriteByte('\n')
			}
		} else {
			buf.WriteString(extractText(c, src))
		}
	}
	return strings.TrimSpace(buf.String())
}
