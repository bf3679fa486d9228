package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/isoshare/internal/common"
	"github.com/dmitrijs2005/isoshare/internal/logging"
	"github.com/dmitrijs2005/isoshare/internal/models"
	"github.com/dmitrijs2005/isoshare/internal/netx"
)

type stubSliceAPI struct {
	urlRequests []int
	puts        []models.Slice
	received    []byte
	failPutAt   int
	failURLAt   int
}

func (s *stubSliceAPI) GetSliceUploadURL(_ context.Context, preuploadID string, sliceNo int) (string, error) {
	s.urlRequests = append(s.urlRequests, sliceNo)
	if sliceNo == s.failURLAt {
		return "", errors.New("no url")
	}
	return fmt.Sprintf("https://storage.invalid/%s/%d", preuploadID, sliceNo), nil
}

func (s *stubSliceAPI) PutSlice(_ context.Context, _ string, src io.ReaderAt, sl models.Slice) error {
	s.puts = append(s.puts, sl)
	if sl.Number == s.failPutAt {
		return &netx.StatusError{Code: http.StatusForbidden, Status: "403 Forbidden"}
	}
	b, err := io.ReadAll(io.NewSectionReader(src, sl.Offset, sl.Length))
	if err != nil {
		return err
	}
	s.received = append(s.received, b...)
	return nil
}

func sliceTask(t *testing.T, data []byte, sliceSize int64) *models.UploadTask {
	t.Helper()
	p := t.TempDir() + "/f.iso"
	require.NoError(t, os.WriteFile(p, data, 0o600))
	return &models.UploadTask{
		Path: p, FileName: "f.iso", SizeBytes: int64(len(data)),
		PreuploadID: "pre-1", SliceSizeBytes: sliceSize, Status: models.StatusSlicesUploading,
	}
}

func TestSliceUploader_SendsEverySliceInOrder(t *testing.T) {
	data := content(3, 2500)
	api := &stubSliceAPI{}
	u := NewSliceUploader(api, logging.Discard())

	require.NoError(t, u.Upload(context.Background(), sliceTask(t, data, 1000)))

	assert.Equal(t, []int{1, 2, 3}, api.urlRequests)
	assert.Equal(t, []models.Slice{
		{Number: 1, Offset: 0, Length: 1000},
		{Number: 2, Offset: 1000, Length: 1000},
		{Number: 3, Offset: 2000, Length: 500},
	}, api.puts)
	assert.Equal(t, data, api.received)
}

func TestSliceUploader_StopsAtFirstFailure(t *testing.T) {
	for _, failAt := range []int{1, 2, 3} {
		t.Run(fmt.Sprintf("slice %d", failAt), func(t *testing.T) {
			api := &stubSliceAPI{failPutAt: failAt}
			u := NewSliceUploader(api, logging.Discard())

			err := u.Upload(context.Background(), sliceTask(t, content(1, 2500), 1000))
			require.ErrorIs(t, err, common.ErrSliceUpload)

			var se *netx.StatusError
			require.True(t, errors.As(err, &se))
			assert.Len(t, api.urlRequests, failAt, "no url requested past the failing slice")
			assert.Len(t, api.puts, failAt)
		})
	}
}

func TestSliceUploader_URLFailure(t *testing.T) {
	api := &stubSliceAPI{failURLAt: 2}
	u := NewSliceUploader(api, logging.Discard())

	err := u.Upload(context.Background(), sliceTask(t, content(1, 2500), 1000))
	require.ErrorIs(t, err, common.ErrSliceUpload)
	assert.Len(t, api.puts, 1)
}

func TestSliceUploader_EmptyFileHasNoSlices(t *testing.T) {
	api := &stubSliceAPI{}
	u := NewSliceUploader(api, logging.Discard())

	require.NoError(t, u.Upload(context.Background(), sliceTask(t, nil, 1000)))
	assert.Empty(t, api.urlRequests)
}

func TestSliceUploader_FileChangedSinceHashing(t *testing.T) {
	api := &stubSliceAPI{}
	u := NewSliceUploader(api, logging.Discard())
	task := sliceTask(t, content(1, 100), 1000)
	task.SizeBytes = 99

	err := u.Upload(context.Background(), task)
	require.ErrorIs(t, err, common.ErrChecksumIO)
	assert.Empty(t, api.urlRequests)
}

func TestSliceUploader_CancelledContext(t *testing.T) {
	api := &stubSliceAPI{}
	u := NewSliceUploader(api, logging.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := u.Upload(ctx, sliceTask(t, content(1, 100), 1000))
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, api.urlRequests)
}
