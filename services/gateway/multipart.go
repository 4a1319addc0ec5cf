package gateway

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"github.com/gabriel-vasile/mimetype"
)

// PostMultipart uploads data as a single file field. The part's content type
// is sniffed from the data itself.
func (c *Client) PostMultipart(ctx context.Context, path, field, filename string, data []byte, out any) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
	header.Set("Content-Type", mimetype.Detect(data).String())
	part, err := w.CreatePart(header)
	if err != nil {
		return fmt.Errorf("create multipart part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("write multipart part: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close multipart writer: %w", err)
	}

	return c.Do(ctx, Request{
		Method:      http.MethodPost,
		Path:        path,
		Body:        &buf,
		ContentType: w.FormDataContentType(),
	}, out)
}
