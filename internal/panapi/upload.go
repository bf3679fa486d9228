package panapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dmitrijs2005/isoshare/internal/models"
	"github.com/dmitrijs2005/isoshare/internal/netx"
)

// Upload result statuses reported by the server.
const (
	UploadStatusCompleted  = "completed"
	UploadStatusFailed     = "failed"
	UploadStatusProcessing = "processing"
)

// CreateUploadRequest opens an upload task for one file.
type CreateUploadRequest struct {
	ParentID  int64  `json:"parentFileID"`
	FileName  string `json:"filename"`
	Size      int64  `json:"size"`
	ETag      string `json:"etag"`
	Duplicate int    `json:"duplicate,omitempty"`
}

// CreateUploadResult is the server's answer to CreateUploadTask. When Reuse
// is set the content is already stored and FileID is final.
type CreateUploadResult struct {
	PreuploadID string `json:"preupload_id"`
	Reuse       bool   `json:"reuse"`
	FileID      int64  `json:"file_id"`
}

func (c *Client) CreateUploadTask(ctx context.Context, req CreateUploadRequest) (CreateUploadResult, error) {
	var res CreateUploadResult
	if err := c.call(ctx, "create upload task", http.MethodPost, PathCreateUpload, nil, req, &res); err != nil {
		return CreateUploadResult{}, err
	}
	if !res.Reuse && res.PreuploadID == "" {
		return CreateUploadResult{}, fmt.Errorf("create upload task: no preupload id for %s", req.FileName)
	}
	return res, nil
}

type uploadURLData struct {
	UploadURL string `json:"upload_url"`
}

// GetSliceUploadURL returns the pre-signed destination for one slice.
func (c *Client) GetSliceUploadURL(ctx context.Context, preuploadID string, sliceNo int) (string, error) {
	q := url.Values{}
	q.Set("preuploadID", preuploadID)
	q.Set("sliceNo", strconv.Itoa(sliceNo))

	var data uploadURLData
	if err := c.call(ctx, "get slice upload url", http.MethodGet, PathGetUploadURL, q, nil, &data); err != nil {
		return "", err
	}
	if data.UploadURL == "" {
		return "", fmt.Errorf("get slice upload url: empty url for slice %d", sliceNo)
	}
	return data.UploadURL, nil
}

// PutSlice streams the byte range s of src to uploadURL. The section reader
// is rebuilt for each attempt so a retry resends the whole slice.
func (c *Client) PutSlice(ctx context.Context, uploadURL string, src io.ReaderAt, s models.Slice) error {
	op := fmt.Sprintf("put slice %d", s.Number)
	return c.retry.Do(ctx, c.log, op, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, c.sliceTimeout)
		defer cancel()
		return netx.UploadToPresignedURL(ctx, c.http, uploadURL, io.NewSectionReader(src, s.Offset, s.Length), s.Length)
	})
}

type preuploadRequest struct {
	PreuploadID string `json:"preuploadID"`
}

// CompleteResult is the answer to CompleteUpload. Completed with a FileID
// means the server finished synchronously and no polling is needed.
type CompleteResult struct {
	Completed bool  `json:"completed"`
	Async     bool  `json:"async"`
	FileID    int64 `json:"file_id"`
}

// CompleteUpload signals that every slice has been sent.
func (c *Client) CompleteUpload(ctx context.Context, preuploadID string) (CompleteResult, error) {
	var res CompleteResult
	if err := c.call(ctx, "complete upload", http.MethodPost, PathUploadComplete, nil, preuploadRequest{PreuploadID: preuploadID}, &res); err != nil {
		return CompleteResult{}, err
	}
	return res, nil
}

// UploadResult is one answer from the completion poll.
type UploadResult struct {
	Status string `json:"status"`
	FileID int64  `json:"file_id"`
}

func (c *Client) GetUploadResult(ctx context.Context, preuploadID string) (UploadResult, error) {
	q := url.Values{}
	q.Set("preuploadID", preuploadID)

	var res UploadResult
	if err := c.call(ctx, "get upload result", http.MethodGet, PathUploadAsyncResult, q, nil, &res); err != nil {
		return UploadResult{}, err
	}
	return res, nil
}
