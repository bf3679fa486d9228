package panapi

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// SearchModeExact asks the listing endpoint for exact name matches.
const SearchModeExact = 1

type fileListData struct {
	Files []struct {
		FileID   int64  `json:"file_id"`
		Filename string `json:"filename"`
	} `json:"files"`
}

// FindDirectory looks up name under parentID with an exact-match search and
// returns the first hit. found is false when nothing matches.
func (c *Client) FindDirectory(ctx context.Context, parentID int64, name string) (id int64, found bool, err error) {
	q := url.Values{}
	q.Set("parentFileId", strconv.FormatInt(parentID, 10))
	q.Set("limit", "100")
	q.Set("searchData", name)
	q.Set("searchMode", strconv.Itoa(SearchModeExact))

	var data fileListData
	if err := c.call(ctx, "list directory", http.MethodGet, PathFileList, q, nil, &data); err != nil {
		return 0, false, err
	}
	if len(data.Files) == 0 {
		return 0, false, nil
	}
	return data.Files[0].FileID, true, nil
}

type mkdirRequest struct {
	Name     string `json:"name"`
	ParentID int64  `json:"parentID"`
}

type fileIDData struct {
	FileID int64 `json:"file_id"`
}

// CreateDirectory creates name under parentID and returns its id.
func (c *Client) CreateDirectory(ctx context.Context, parentID int64, name string) (int64, error) {
	var data fileIDData
	if err := c.call(ctx, "create directory", http.MethodPost, PathMkdir, nil, mkdirRequest{Name: name, ParentID: parentID}, &data); err != nil {
		return 0, err
	}
	return data.FileID, nil
}
