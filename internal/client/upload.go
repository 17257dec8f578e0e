package client

import (
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"

	"github.com/xiaopang/insight/internal/metrics"
	"github.com/xiaopang/insight/internal/model"
)

// ProgressFunc receives the number of file bytes handed to the transport so
// far and the declared total (0 when unknown).
type ProgressFunc func(sent, total int64)

// UploadFile streams r to POST /upload/ as the multipart field "file".
//
// The body is produced through a pipe, so progress reports follow what the
// transport actually consumed instead of a timer.
func (c *Client) UploadFile(ctx context.Context, name string, r io.Reader, size int64, progress ProgressFunc) (*model.UploadResult, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		part, err := mw.CreateFormFile("file", filepath.Base(name))
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		src := &progressReader{r: r, total: size, fn: progress}
		if _, err := io.Copy(part, src); err != nil {
			pw.CloseWithError(err)
			return
		}
		metrics.UploadBytes.Add(float64(src.sent))
		pw.CloseWithError(mw.Close())
	}()

	req, err := c.newRequest(ctx, http.MethodPost, "/upload/", nil, pr)
	if err != nil {
		pr.Close()
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var raw json.RawMessage
	if err := c.do(req, EndpointUpload, &raw); err != nil {
		pr.CloseWithError(err)
		return nil, err
	}

	out := &model.UploadResult{Raw: raw}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return nil, &DecodeError{Endpoint: EndpointUpload, Err: err}
		}
	}
	return out, nil
}

type progressReader struct {
	r     io.Reader
	sent  int64
	total int64
	fn    ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		if p.fn != nil {
			p.fn(p.sent, p.total)
		}
	}
	return n, err
}
