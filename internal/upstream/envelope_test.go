package upstream

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/adminconsole/internal/domain"
)

func TestDecodeList_DataWithCount(t *testing.T) {
	body := `{"data":[{"id":"1"},{"id":"2"}],"count":42}`

	page, err := DecodeList(strings.NewReader(body))
	require.NoError(t, err)

	assert.Len(t, page.Rows, 2)
	assert.Equal(t, 42, page.Total)
}

func TestDecodeList_ResultsData_TotalItems(t *testing.T) {
	body := `{"results":{"data":[{"id":"1"}]},"total_items":7}`

	page, err := DecodeList(strings.NewReader(body))
	require.NoError(t, err)

	assert.Len(t, page.Rows, 1)
	assert.Equal(t, 7, page.Total)
}

func TestDecodeList_ResultsArray_TotalCount(t *testing.T) {
	body := `{"results":[{"id":"1"},{"id":"2"},{"id":"3"}],"total_count":3}`

	page, err := DecodeList(strings.NewReader(body))
	require.NoError(t, err)

	assert.Len(t, page.Rows, 3)
	assert.Equal(t, 3, page.Total)
}

func TestDecodeList_BareArray(t *testing.T) {
	body := `[{"id":"1"},{"id":"2"}]`

	page, err := DecodeList(strings.NewReader(body))
	require.NoError(t, err)

	assert.Len(t, page.Rows, 2)
	assert.Equal(t, 2, page.Total, "bare arrays report their own length as total")
}

func TestDecodeList_KeyPriority(t *testing.T) {
	// "data" beats "results", "count" beats "total_items".
	body := `{"data":[{"id":"a"}],"results":[{"id":"b"},{"id":"c"}],"count":10,"total_items":99}`

	page, err := DecodeList(strings.NewReader(body))
	require.NoError(t, err)

	assert.Len(t, page.Rows, 1)
	assert.Equal(t, 10, page.Total)
}

func TestDecodeList_MissingCountFallsBackToRowCount(t *testing.T) {
	body := `{"data":[{"id":"1"},{"id":"2"}]}`

	page, err := DecodeList(strings.NewReader(body))
	require.NoError(t, err)

	assert.Equal(t, 2, page.Total)
}

func TestDecodeList_EmptyCollection(t *testing.T) {
	body := `{"data":[],"count":0}`

	page, err := DecodeList(strings.NewReader(body))
	require.NoError(t, err)

	assert.Empty(t, page.Rows)
	assert.Equal(t, 0, page.Total)
}

func TestDecodeList_UnrecognizableEnvelope(t *testing.T) {
	body := `{"items":[{"id":"1"}]}`

	_, err := DecodeList(strings.NewReader(body))
	require.Error(t, err)
}

func TestDecodeObject_WrappedInData(t *testing.T) {
	body := []byte(`{"data":{"gst_rate":18,"courier_charge":49,"store_name":"Utafrali Store"}}`)

	var settings domain.Settings
	require.NoError(t, DecodeObject(body, &settings))

	assert.Equal(t, 18.0, settings.GSTRate)
	assert.Equal(t, 49.0, settings.CourierCharge)
	assert.Equal(t, "Utafrali Store", settings.StoreName)
}

func TestDecodeObject_BareObject(t *testing.T) {
	body := []byte(`{"gst_rate":12,"courier_charge":99}`)

	var settings domain.Settings
	require.NoError(t, DecodeObject(body, &settings))

	assert.Equal(t, 12.0, settings.GSTRate)
	assert.Equal(t, 99.0, settings.CourierCharge)
}

func TestDecodeObject_NullData(t *testing.T) {
	// A literal null under "data" must not shadow the sibling fields.
	body := []byte(`{"data":null,"gst_rate":5}`)

	var settings domain.Settings
	require.NoError(t, DecodeObject(body, &settings))

	assert.Equal(t, 5.0, settings.GSTRate)
}

func TestDecodeRows_Typed(t *testing.T) {
	body := `{"data":[{"id":"ord-1","status":"placed"},{"id":"ord-2","status":"shipped"}],"count":2}`

	page, err := DecodeList(strings.NewReader(body))
	require.NoError(t, err)

	orders, err := DecodeRows[domain.Order](page)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "ord-1", orders[0].ID)
	assert.Equal(t, domain.OrderStatusShipped, orders[1].Status)
}

func TestDecodeRows_BadRow(t *testing.T) {
	page := ListPage{Rows: []json.RawMessage{[]byte(`{"rating":"not-a-number"}`)}}

	_, err := DecodeRows[domain.Review](page)
	require.Error(t, err)
}
