package bridge

import (
	"bytes"
	"context"
	"fmt"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"golang.org/x/net/html"
)

// Format selects the rendering of a document snapshot.
type Format string

const (
	FormatHTML     Format = "html"
	FormatMarkdown Format = "markdown"
)

var mdConverter = converter.NewConverter(
	converter.WithPlugins(
		base.NewBasePlugin(),
		commonmark.NewCommonmarkPlugin(),
		table.NewTablePlugin(),
	),
)

// Snapshot renders the live tree. The tree is serialised on the loop; the
// markdown conversion runs on the copy.
func (b *Bridge) Snapshot(ctx context.Context, f Format) ([]byte, error) {
	var buf bytes.Buffer
	var url string
	err := b.do(ctx, func(context.Context) error {
		url = b.doc.URL()
		return html.Render(&buf, b.doc.Root())
	})
	if err != nil {
		return nil, err
	}

	switch f {
	case FormatHTML, "":
		return buf.Bytes(), nil
	case FormatMarkdown:
		md, err := mdConverter.ConvertString(buf.String(), converter.WithDomain(url))
		if err != nil {
			return nil, fmt.Errorf("bridge: snapshot: %w", err)
		}
		return []byte(md), nil
	}
	return nil, fmt.Errorf("bridge: snapshot: unknown format %q", f)
}
