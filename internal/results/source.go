package results

import (
	"context"
	"fmt"
	"os"
)

// Source yields the raw document and its parsed tree.
type Source interface {
	// Name identifies the source in logs and the snapshot archive.
	Name() string
	Load(ctx context.Context) (*Tree, []byte, error)
}

// URLSource fetches the document over HTTP.
type URLSource struct {
	Client *Client
	URL    string
}

func (s URLSource) Name() string { return s.URL }

func (s URLSource) Load(ctx context.Context) (*Tree, []byte, error) {
	return s.Client.Fetch(ctx, s.URL)
}

// FileSource reads a local copy of the document.
type FileSource struct {
	Path string
}

func (s FileSource) Name() string { return "file://" + s.Path }

func (s FileSource) Load(ctx context.Context) (*Tree, []byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	body, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrDataFetch, err)
	}
	tree, err := ParseBytes(body)
	if err != nil {
		return nil, nil, err
	}
	return tree, body, nil
}
