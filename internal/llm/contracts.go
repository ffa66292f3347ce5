package llm

import (
	"context"
	"encoding/base64"
)

// Image is one attachment sent with a request, already sized for upload.
type Image struct {
	MIME string
	Data []byte
}

// DataURL renders the image as a base64 data URL.
func (i Image) DataURL() string {
	return "data:" + i.MIME + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

// Request is one structured-output call to a vision model.
type Request struct {
	Name         string         // schema name reported to the provider
	Instructions string         // user prompt
	Schema       map[string]any // strict JSON Schema the reply must satisfy
	Images       []Image
	Context      string // optional extra text, e.g. a prior extraction to judge
}

// Client is the inference service. Complete returns the raw JSON text of the reply;
// it does not validate it. Any error is a transport failure.
type Client interface {
	Complete(ctx context.Context, req Request) ([]byte, error)
}

// ClientFunc adapts a function to Client.
type ClientFunc func(ctx context.Context, req Request) ([]byte, error)

func (f ClientFunc) Complete(ctx context.Context, req Request) ([]byte, error) {
	return f(ctx, req)
}
