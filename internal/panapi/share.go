package panapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/isoshare/internal/models"
)

type shareRequest struct {
	ShareName    string `json:"shareName"`
	ShareExpire  int    `json:"shareExpire"`
	FileIDList   string `json:"fileIDList"`
	SharePwd     string `json:"sharePwd,omitempty"`
	TrafficLimit int64  `json:"trafficLimit,omitempty"`
}

type shareData struct {
	ShareURL string `json:"share_url"`
	ShareKey string `json:"share_key"`
}

// JoinFileIDs renders ids as the comma-separated list the share endpoint
// expects, keeping their order.
func JoinFileIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

// CreateShare issues one share over req.FileIDs. Password and traffic limit
// are sent only when set.
func (c *Client) CreateShare(ctx context.Context, req models.ShareRequest) (models.ShareResult, error) {
	body := shareRequest{
		ShareName:    req.Name,
		ShareExpire:  req.ExpireDays,
		FileIDList:   JoinFileIDs(req.FileIDs),
		SharePwd:     req.Password,
		TrafficLimit: req.TrafficLimit,
	}

	var data shareData
	if err := c.call(ctx, "create share", http.MethodPost, PathShareCreate, nil, body, &data); err != nil {
		return models.ShareResult{}, err
	}
	return models.ShareResult{URL: data.ShareURL, Key: data.ShareKey}, nil
}
