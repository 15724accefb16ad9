package dataset

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/ilkoid/greenery-agent/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFixture(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile("testdata/buurten.json")
	require.NoError(t, err)
	return data
}

func TestBuildURL(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.DatasetConfig
		want    string
		wantErr bool
	}{
		{
			name: "default RIVM request",
			cfg:  (&config.DatasetConfig{}).GetDefaults(),
			want: "https://data.rivm.nl/geo/ank/ows?service=WFS&request=GetFeature&typeName=rivm_2022_groenpercentage_kaart_per_buurt&propertyName=bu_naam%2C_mean&outputFormat=json",
		},
		{
			name: "url with query is used verbatim",
			cfg: config.DatasetConfig{
				URL:      "https://data.rivm.nl/geo/ank/ows?service=WFS&request=GetFeature&typeName=x",
				TypeName: "ignored",
			},
			want: "https://data.rivm.nl/geo/ank/ows?service=WFS&request=GetFeature&typeName=x",
		},
		{
			name: "plain file url without type name",
			cfg:  config.DatasetConfig{URL: "http://localhost:8080/buurten.json"},
			want: "http://localhost:8080/buurten.json",
		},
		{name: "empty", cfg: config.DatasetConfig{}, wantErr: true},
		{name: "bad scheme", cfg: config.DatasetConfig{URL: "ftp://example.test/x"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildURL(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFetch_ParsesFeatureCollection(t *testing.T) {
	fixture := loadFixture(t)

	var gotAccept, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAccept = r.Header.Get("Accept")
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(fixture)
	}))
	defer srv.Close()

	f, err := NewFetcher(config.DatasetConfig{
		URL:        srv.URL + "/geo/ank/ows",
		TypeName:   "rivm_2022_groenpercentage_kaart_per_buurt",
		Properties: []string{"bu_naam", "_mean"},
	})
	require.NoError(t, err)

	doc, err := f.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "application/json", gotAccept)
	assert.Contains(t, gotQuery, "request=GetFeature")
	assert.True(t, doc.HasFeatures())
	assert.Equal(t, 5, doc.FeatureCount())
	assert.Equal(t, f.URL(), doc.Source)

	fc, err := doc.Features()
	require.NoError(t, err)
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 5)
	assert.Equal(t, "Binnenstad-Noord", fc.Features[0].Properties["bu_naam"])
}

func TestFetch_Errors(t *testing.T) {
	tests := []struct {
		name     string
		handler  http.HandlerFunc
		wantType ErrorType
		check    func(t *testing.T, err error)
	}{
		{
			name: "server error status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("maintenance"))
			},
			wantType: ErrHTTPStatus,
			check: func(t *testing.T, err error) {
				var fe *FetchError
				require.True(t, errors.As(err, &fe))
				assert.Equal(t, http.StatusServiceUnavailable, fe.StatusCode)
				assert.Equal(t, "maintenance", fe.Body)
			},
		},
		{
			name: "invalid json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("<ows:ExceptionReport>bad typeName</ows:ExceptionReport>"))
			},
			wantType: ErrDecode,
			check: func(t *testing.T, err error) {
				assert.True(t, errors.Is(err, ErrInvalidJSON))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			f, err := NewFetcher(config.DatasetConfig{URL: srv.URL})
			require.NoError(t, err)

			doc, err := f.Fetch(context.Background())
			require.Error(t, err)
			assert.Nil(t, doc)
			assert.Equal(t, tt.wantType, ClassifyError(err))
			tt.check(t, err)
		})
	}
}

func TestFetch_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	f, err := NewFetcher(config.DatasetConfig{URL: addr})
	require.NoError(t, err)

	_, err = f.Fetch(context.Background())
	require.Error(t, err)
	assert.Equal(t, ErrNetwork, ClassifyError(err))
}

func TestFetch_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	f, err := NewFetcher(config.DatasetConfig{URL: srv.URL, Timeout: 50 * time.Millisecond})
	require.NoError(t, err)

	_, err = f.Fetch(context.Background())
	require.Error(t, err)
	assert.Equal(t, ErrTimeout, ClassifyError(err))
}

func TestFetch_Canceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	f, err := NewFetcher(config.DatasetConfig{URL: srv.URL})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = f.Fetch(ctx)
	require.Error(t, err)
	assert.Equal(t, ErrCanceled, ClassifyError(err))
}

func TestErrorType_HumanMessage(t *testing.T) {
	for _, et := range []ErrorType{ErrUnknown, ErrTimeout, ErrNetwork, ErrHTTPStatus, ErrDecode, ErrCanceled} {
		assert.NotEmpty(t, et.HumanMessage(), et.String())
	}
}
