// Package datasource loads candle sequences from files, HTTP endpoints or a seeded
// generator. Every loader validates its output before returning it.
package datasource

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Alias1177/trapfade/models"
)

// ErrUnsupportedFormat is returned for file extensions other than .csv and .json.
var ErrUnsupportedFormat = errors.New("unsupported candle format")

var csvHeader = []string{"timestamp", "open", "high", "low", "close", "volume"}

// FileSource reads candles from a CSV or JSON file.
type FileSource struct {
	Path string
}

// Candles implements models.CandleSource.
func (s FileSource) Candles(ctx context.Context) ([]models.Candle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return LoadFile(s.Path)
}

// LoadFile picks the decoder from the file extension.
func LoadFile(path string) ([]models.Candle, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open candles: %w", err)
	}
	defer file.Close()

	var candles []models.Candle
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		candles, err = ReadCSV(file)
	case ".json":
		candles, err = ReadJSON(file)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return candles, nil
}

// ReadCSV decodes timestamp,open,high,low,close,volume rows. A header row is optional.
func ReadCSV(r io.Reader) ([]models.Candle, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(csvHeader)
	reader.TrimLeadingSpace = true

	var candles []models.Candle
	for line := 1; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse csv: %w", err)
		}
		if line == 1 && strings.EqualFold(record[0], csvHeader[0]) {
			continue
		}

		values := make([]float64, len(record))
		for i, field := range record {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d column %s: %w", line, csvHeader[i], err)
			}
			values[i] = v
		}
		candles = append(candles, candleFromValues(values))
	}

	if err := models.ValidateCandles(candles); err != nil {
		return nil, err
	}
	return candles, nil
}

// ReadJSON accepts either an array of candle objects or an array of
// [timestamp, open, high, low, close, volume] rows.
func ReadJSON(r io.Reader) ([]models.Candle, error) {
	var raw []json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}

	candles := make([]models.Candle, 0, len(raw))
	for i, item := range raw {
		trimmed := strings.TrimSpace(string(item))
		if strings.HasPrefix(trimmed, "[") {
			var row []any
			if err := json.Unmarshal(item, &row); err != nil {
				return nil, fmt.Errorf("row %d: %w", i, err)
			}
			c, err := candleFromRow(row)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i, err)
			}
			candles = append(candles, c)
			continue
		}

		var c models.Candle
		if err := json.Unmarshal(item, &c); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		candles = append(candles, c)
	}

	if err := models.ValidateCandles(candles); err != nil {
		return nil, err
	}
	return candles, nil
}

// WriteCSV encodes candles with a header row.
func WriteCSV(w io.Writer, candles []models.Candle) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return err
	}
	for _, c := range candles {
		record := []string{
			strconv.FormatInt(c.Timestamp, 10),
			formatF(c.Open), formatF(c.High), formatF(c.Low), formatF(c.Close), formatF(c.Volume),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteJSON encodes candles as an array of objects.
func WriteJSON(w io.Writer, candles []models.Candle) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(candles)
}

// candleFromRow converts an exchange kline row; prices may be numbers or strings.
func candleFromRow(row []any) (models.Candle, error) {
	if len(row) < len(csvHeader) {
		return models.Candle{}, fmt.Errorf("expected %d fields, got %d", len(csvHeader), len(row))
	}
	values := make([]float64, len(csvHeader))
	for i := range values {
		switch v := row[i].(type) {
		case float64:
			values[i] = v
		case string:
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return models.Candle{}, fmt.Errorf("%s: %w", csvHeader[i], err)
			}
			values[i] = f
		default:
			return models.Candle{}, fmt.Errorf("%s: unexpected type %T", csvHeader[i], row[i])
		}
	}
	return candleFromValues(values), nil
}

func candleFromValues(v []float64) models.Candle {
	return models.Candle{
		Timestamp: int64(v[0]),
		Open:      v[1],
		High:      v[2],
		Low:       v[3],
		Close:     v[4],
		Volume:    v[5],
	}
}

func formatF(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
