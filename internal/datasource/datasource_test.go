package datasource

import (
	"bytes"
	"context"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alias1177/trapfade/models"
)

const csvWithHeader = `timestamp,open,high,low,close,volume
1700000000000,100,101,99,100.5,10
1700003600000,100.5,102,100,101.5,12
`

func TestReadCSV(t *testing.T) {
	candles, err := ReadCSV(strings.NewReader(csvWithHeader))
	require.NoError(t, err)
	require.Len(t, candles, 2)
	assert.Equal(t, models.Candle{Timestamp: 1700003600000, Open: 100.5, High: 102, Low: 100, Close: 101.5, Volume: 12}, candles[1])

	headless := "1700000000000, 100, 101, 99, 100.5, 10\n"
	candles, err = ReadCSV(strings.NewReader(headless))
	require.NoError(t, err)
	assert.Len(t, candles, 1)
}

func TestReadCSVErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		is    error
	}{
		{"empty", "", models.ErrNoCandles},
		{"header only", "timestamp,open,high,low,close,volume\n", models.ErrNoCandles},
		{"high below low", "1,100,90,95,96,1\n", models.ErrInvalidCandle},
		{"timestamps out of order", "2,100,101,99,100,1\n1,100,101,99,100,1\n", models.ErrInvalidCandle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.input))
			assert.ErrorIs(t, err, tt.is)
		})
	}

	_, err := ReadCSV(strings.NewReader("1,abc,101,99,100,1\n"))
	assert.ErrorContains(t, err, "column open")
}

func TestReadJSONShapes(t *testing.T) {
	objects := `[{"timestamp":1,"open":10,"high":11,"low":9,"close":10.5,"volume":3}]`
	candles, err := ReadJSON(strings.NewReader(objects))
	require.NoError(t, err)
	assert.Equal(t, 10.5, candles[0].Close)

	rows := `[[1,"10","11","9","10.5","3"],[2,10.5,12,10,11,4]]`
	candles, err = ReadJSON(strings.NewReader(rows))
	require.NoError(t, err)
	require.Len(t, candles, 2)
	assert.Equal(t, int64(2), candles[1].Timestamp)
	assert.Equal(t, 10.5, candles[0].Close)

	_, err = ReadJSON(strings.NewReader(`[[1,true,11,9,10,3]]`))
	assert.Error(t, err)
}

func TestWriteCSVIsReadable(t *testing.T) {
	gen := NewGenerator(GeneratorConfig{Count: 50, StartPrice: 100, Interval: time.Minute, Volatility: 0.01}, rand.New(rand.NewSource(1)))
	candles := gen.Generate()

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, candles))
	assert.True(t, strings.HasPrefix(buf.String(), "timestamp,open,high,low,close,volume\n"))

	back, err := ReadCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, candles, back)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "btc.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(csvWithHeader), 0o644))
	candles, err := FileSource{Path: csvPath}.Candles(context.Background())
	require.NoError(t, err)
	assert.Len(t, candles, 2)

	jsonPath := filepath.Join(dir, "btc.JSON")
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, candles))
	require.NoError(t, os.WriteFile(jsonPath, buf.Bytes(), 0o644))
	fromJSON, err := LoadFile(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, candles, fromJSON)

	txtPath := filepath.Join(dir, "btc.txt")
	require.NoError(t, os.WriteFile(txtPath, []byte(csvWithHeader), 0o644))
	_, err = LoadFile(txtPath)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = LoadFile(filepath.Join(dir, "missing.csv"))
	assert.Error(t, err)
}

func fastOptions() ClientOptions {
	return ClientOptions{
		Timeout:         2 * time.Second,
		RequestsPerSec:  100,
		InitialInterval: 5 * time.Millisecond,
		MaxRetryTimeout: 2 * time.Second,
	}
}

func TestHTTPSourceFetches(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		assert.Equal(t, "1h", r.URL.Query().Get("interval"))
		assert.Equal(t, "2", r.URL.Query().Get("limit"))
		// newest first, the source sorts
		_, _ = w.Write([]byte(`[[3600000,"101","102","100","101.5","7",0],[0,"100","101","99","101","5",0]]`))
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL, "BTCUSDT", "1h", 2, fastOptions())
	candles, err := src.Candles(context.Background())
	require.NoError(t, err)
	require.Len(t, candles, 2)
	assert.Equal(t, int64(0), candles[0].Timestamp)
	assert.Equal(t, 101.5, candles[1].Close)
}

func TestHTTPSourceRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`[[0,100,101,99,100,1]]`))
	}))
	defer srv.Close()

	candles, err := NewHTTPSource(srv.URL, "BTCUSDT", "1h", 0, fastOptions()).Candles(context.Background())
	require.NoError(t, err)
	assert.Len(t, candles, 1)
	assert.Equal(t, int32(2), calls.Load())
}

func TestHTTPSourceClientErrorIsPermanent(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewHTTPSource(srv.URL, "NOPE", "1h", 0, fastOptions()).Candles(context.Background())
	var statusErr *HTTPStatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTPSourceBreakerOpens(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	opts := fastOptions()
	opts.BreakerFailures = 2
	_, err := NewHTTPSource(srv.URL, "BTCUSDT", "1h", 0, opts).Candles(context.Background())
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(2), calls.Load())
}

func TestHTTPSourceEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	_, err := NewHTTPSource(srv.URL, "BTCUSDT", "1h", 0, fastOptions()).Candles(context.Background())
	assert.ErrorIs(t, err, models.ErrNoCandles)
}

func TestGeneratorDeterministic(t *testing.T) {
	cfg := DefaultGeneratorConfig()
	cfg.Count = 500

	a, err := NewGenerator(cfg, rand.New(rand.NewSource(42))).Candles(context.Background())
	require.NoError(t, err)
	b, err := NewGenerator(cfg, rand.New(rand.NewSource(42))).Candles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c := NewGenerator(cfg, rand.New(rand.NewSource(43))).Generate()
	assert.NotEqual(t, a, c)

	assert.Len(t, a, 500)
	assert.Equal(t, cfg.StartTime, a[0].Timestamp)
	assert.Equal(t, cfg.StartTime+int64(time.Hour/time.Millisecond), a[1].Timestamp)
	assert.Equal(t, cfg.StartPrice, a[0].Open)
	for i := 1; i < len(a); i++ {
		assert.Equal(t, a[i-1].Close, a[i].Open)
	}
}

func TestGeneratorInjectsSpikes(t *testing.T) {
	cfg := DefaultGeneratorConfig()
	cfg.Count = 200
	cfg.SpikeProbability = 1
	cfg.SpikeSize = 0.05

	candles := NewGenerator(cfg, rand.New(rand.NewSource(9))).Generate()
	require.NoError(t, models.ValidateCandles(candles))
	for _, c := range candles {
		rng := (c.High - c.Low) / c.Close
		assert.Greater(t, rng, 0.04)
	}
}

func TestGeneratorRespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewGenerator(DefaultGeneratorConfig(), rand.New(rand.NewSource(1))).Candles(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, NewGenerator(GeneratorConfig{}, rand.New(rand.NewSource(1))).Generate())
}
