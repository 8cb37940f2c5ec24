package wfs

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Veraticus/suito/internal/common"
	"github.com/Veraticus/suito/internal/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func feature(id string) string {
	return fmt.Sprintf(`{"type":"Feature","properties":{"polygon_uuid":%q,"point_lat":36.3,"point_lng":"140.4"},"geometry":{"type":"Polygon","coordinates":[]}}`, id)
}

func collectionBody(ids ...string) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = feature(id)
	}
	return `{"type":"FeatureCollection","features":[` + strings.Join(parts, ",") + `]}`
}

func newTestClient(t *testing.T, srv *httptest.Server, chunkSize int) *Client {
	t.Helper()
	c, err := NewClient(Config{BaseURL: srv.URL + "/", HTTPClient: srv.Client(), ChunkSize: chunkSize})
	require.NoError(t, err)
	return c
}

func TestBuildURL(t *testing.T) {
	u := BuildURL("http://example.test/", "2025_082015", "")
	assert.Equal(t, "http://example.test/?SERVICE=WFS&VERSION=1.1.0&REQUEST=GetFeature&TYPENAME=2025_082015&SRSNAME=EPSG:4326&OUTPUTFORMAT=GeoJSON", u)

	u = BuildURL("http://example.test/", "2025_082015", Filter([]string{"a"}))
	parsed, err := url.Parse(u)
	require.NoError(t, err)
	assert.Equal(t, Filter([]string{"a"}), parsed.Query().Get("FILTER"))
}

func TestFilter(t *testing.T) {
	got := Filter([]string{"a1", `x<&>"y`})
	assert.Equal(t,
		"<Filter><Or>"+
			"<PropertyIsEqualTo><PropertyName>polygon_uuid</PropertyName><Literal>a1</Literal></PropertyIsEqualTo>"+
			"<PropertyIsEqualTo><PropertyName>polygon_uuid</PropertyName><Literal>x&lt;&amp;&gt;&quot;y</Literal></PropertyIsEqualTo>"+
			"</Or></Filter>",
		got)
}

func TestParse(t *testing.T) {
	body := `{"type":"FeatureCollection","features":[` +
		feature("A") + `,` +
		`{"type":"Feature","properties":{"polygon_uuid":42,"point_lat":"bad"},"geometry":null},` +
		`{"type":"Feature","geometry":null}` +
		`]}`

	features, err := Parse([]byte(body))
	require.NoError(t, err)
	require.Len(t, features, 3)

	assert.Equal(t, "A", features[0].ID)
	assert.True(t, features[0].HasCentroid)
	assert.Equal(t, model.Centroid{Lat: 36.3, Lon: 140.4}, features[0].Centroid)
	assert.JSONEq(t, `{"type":"Polygon","coordinates":[]}`, string(features[0].Geometry))

	assert.Equal(t, "42", features[1].ID)
	assert.False(t, features[1].HasCentroid)

	assert.Empty(t, features[2].ID)
	assert.NotNil(t, features[2].Properties)

	_, err = Parse([]byte(`{"type":"FeatureCollection"}`))
	require.ErrorIs(t, err, ErrNoFeatures)

	_, err = Parse([]byte(`not json`))
	assert.Error(t, err)
}

func TestFetchWholeLayer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "WFS", q.Get("SERVICE"))
		assert.Equal(t, "GetFeature", q.Get("REQUEST"))
		assert.Equal(t, "L1", q.Get("TYPENAME"))
		assert.Equal(t, "GeoJSON", q.Get("OUTPUTFORMAT"))
		assert.Empty(t, q.Get("FILTER"))
		_, _ = w.Write([]byte(collectionBody("A", "B")))
	}))
	defer srv.Close()

	features, err := newTestClient(t, srv, 0).Fetch(context.Background(), "L1", nil)
	require.NoError(t, err)
	require.Len(t, features, 2)
	assert.Equal(t, "B", features[1].ID)
}

func TestFetchFilteredInChunks(t *testing.T) {
	var mu sync.Mutex
	var filters []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		filter := r.URL.Query().Get("FILTER")
		mu.Lock()
		filters = append(filters, filter)
		mu.Unlock()

		var ids []string
		for _, id := range []string{"a", "b", "c", "d", "e"} {
			if strings.Contains(filter, "<Literal>"+id+"</Literal>") {
				ids = append(ids, id)
			}
		}
		_, _ = w.Write([]byte(collectionBody(ids...)))
	}))
	defer srv.Close()

	features, err := newTestClient(t, srv, 2).Fetch(context.Background(), "L1", []string{"a", "b", "a", "c", "d", "e", ""})
	require.NoError(t, err)

	got := make([]string, len(features))
	for i, f := range features {
		got[i] = f.ID
	}
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, got, "chunks merge in order")
	assert.Len(t, filters, 3)
}

func TestFetchErrors(t *testing.T) {
	tests := []struct {
		handler    http.HandlerFunc
		name       string
		wantStatus int
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
			wantStatus: http.StatusInternalServerError,
		},
		{
			name: "not a feature collection",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"type":"ExceptionReport"}`))
			},
		},
		{
			name: "invalid json",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`<ows:ExceptionReport/>`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := newTestClient(t, srv, 0).Fetch(context.Background(), "L1", nil)
			var fe *common.FetchError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, common.SourceGeometry, fe.Source)
			assert.Equal(t, tt.wantStatus, fe.StatusCode)
		})
	}
}

func TestSnippet(t *testing.T) {
	long := strings.Repeat("a", 199) + strings.Repeat("エラー", 10)

	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "short", body: "boom", want: "boom"},
		{name: "exact limit", body: strings.Repeat("b", 200), want: strings.Repeat("b", 200)},
		{name: "ascii over limit", body: strings.Repeat("c", 250), want: strings.Repeat("c", 200) + "..."},
		{name: "multibyte at limit", body: long, want: strings.Repeat("a", 199) + "..."},
		{name: "all multibyte", body: strings.Repeat("地", 100), want: strings.Repeat("地", 66) + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := snippet([]byte(tt.body))
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}

func TestFetchErrorKeepsMultibyteBodyValid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, strings.Repeat("レイヤーが見つかりません", 20), http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv, 0).Fetch(context.Background(), "L1", nil)
	require.Error(t, err)
	assert.True(t, utf8.ValidString(err.Error()))
	assert.Contains(t, err.Error(), "...")
}

func TestFetchChunkFailureFailsWholeFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Query().Get("FILTER"), "<Literal>c</Literal>") {
			http.Error(w, "nope", http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(collectionBody("a")))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv, 1).Fetch(context.Background(), "L1", []string{"a", "b", "c"})
	var fe *common.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, http.StatusBadGateway, fe.StatusCode)
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient(Config{})
	require.ErrorIs(t, err, common.ErrMissingConfig)

	c, err := NewClient(Config{BaseURL: "http://example.test/"})
	require.NoError(t, err)
	_, err = c.Fetch(context.Background(), "", nil)
	var ve *common.ValidationError
	assert.ErrorAs(t, err, &ve)
}
