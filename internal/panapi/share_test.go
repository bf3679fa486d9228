package panapi_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/isoshare/internal/models"
	"github.com/dmitrijs2005/isoshare/internal/panapi"
	"github.com/dmitrijs2005/isoshare/internal/panapi/pantest"
)

func TestJoinFileIDs(t *testing.T) {
	assert.Equal(t, "", panapi.JoinFileIDs(nil))
	assert.Equal(t, "5", panapi.JoinFileIDs([]int64{5}))
	assert.Equal(t, "3,1,2", panapi.JoinFileIDs([]int64{3, 1, 2}))
}

func TestCreateShare_DefaultsOmitOptionalFields(t *testing.T) {
	srv := pantest.NewServer(t, testAccessKey, testSecretKey)
	c := newClient(t, srv, nil)

	res, err := c.CreateShare(context.Background(), models.ShareRequest{Name: "debian-custom-1", FileIDs: []int64{11, 12}})
	require.NoError(t, err)
	assert.Equal(t, srv.ShareURL(res.Key), res.URL)

	calls := srv.CallsTo(panapi.PathShareCreate)
	require.Len(t, calls, 1)
	body := calls[0].Body
	assert.Equal(t, "debian-custom-1", body["shareName"])
	assert.Equal(t, "11,12", body["fileIDList"])
	assert.Equal(t, float64(0), body["shareExpire"])
	assert.NotContains(t, body, "sharePwd")
	assert.NotContains(t, body, "trafficLimit")
}

func TestCreateShare_OptionalFields(t *testing.T) {
	srv := pantest.NewServer(t, testAccessKey, testSecretKey)
	srv.ShareKeyOnly()
	c := newClient(t, srv, nil)

	res, err := c.CreateShare(context.Background(), models.ShareRequest{
		Name: "s", FileIDs: []int64{1}, ExpireDays: 7, Password: "pw12", TrafficLimit: 1 << 30,
	})
	require.NoError(t, err)
	assert.Empty(t, res.URL)
	assert.NotEmpty(t, res.Key)

	body := srv.CallsTo(panapi.PathShareCreate)[0].Body
	assert.Equal(t, "pw12", body["sharePwd"])
	assert.Equal(t, float64(1<<30), body["trafficLimit"])
	assert.Equal(t, float64(7), body["shareExpire"])
}
