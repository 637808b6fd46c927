package collector

import (
	"context"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"

	"StrategyLab/internal/model"
)

// Fetcher defines the interface for fetching candles.
type Fetcher interface {
	FetchCandles(ctx context.Context, symbol, interval string, limit int) ([]model.Candle, error)
	Name() string
}

// FileFetcher reads candles from a local JSON file.
type FileFetcher struct {
	Path string
}

func NewFileFetcher(path string) *FileFetcher { return &FileFetcher{Path: path} }

func (f *FileFetcher) Name() string { return "file" }

// FetchCandles returns the last limit candles of the file; limit <= 0 returns all.
func (f *FileFetcher) FetchCandles(_ context.Context, _ string, _ string, limit int) ([]model.Candle, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "read candles %s", f.Path)
	}
	candles, err := ParseCandles(data)
	if err != nil {
		return nil, errors.Wrap(err, f.Path)
	}
	return tail(candles, limit), nil
}

// ParseCandles accepts an array of objects with dateUnix or time plus
// open/high/low/close/volume, or an array of [ts, o, h, l, c, v] klines.
// It also accepts either shape wrapped in a "candles" or "data" field.
func ParseCandles(data []byte) ([]model.Candle, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.New("invalid candle json")
	}
	root := gjson.ParseBytes(data)
	if !root.IsArray() {
		for _, key := range []string{"candles", "data"} {
			if v := root.Get(key); v.IsArray() {
				root = v
				break
			}
		}
	}
	if !root.IsArray() {
		return nil, errors.New("candle json is not an array")
	}

	rows := root.Array()
	out := make([]model.Candle, 0, len(rows))
	for i, row := range rows {
		var (
			c   model.Candle
			err error
		)
		if row.IsArray() {
			c, err = parseKline(row)
		} else {
			c, err = parseObject(row)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "candle %d", i)
		}
		out = append(out, c)
	}
	return out, nil
}

func parseKline(row gjson.Result) (model.Candle, error) {
	f := row.Array()
	if len(f) < 6 {
		return model.Candle{}, errors.Errorf("kline has %d fields, want 6", len(f))
	}
	return model.Candle{
		Time:   unixTime(f[0].Int()),
		Open:   f[1].Float(),
		High:   f[2].Float(),
		Low:    f[3].Float(),
		Close:  f[4].Float(),
		Volume: f[5].Float(),
	}, nil
}

func parseObject(row gjson.Result) (model.Candle, error) {
	var ts time.Time
	switch v := row.Get("dateUnix"); {
	case v.Exists():
		ts = unixTime(v.Int())
	default:
		t := row.Get("time")
		switch t.Type {
		case gjson.Number:
			ts = unixTime(t.Int())
		case gjson.String:
			parsed, err := time.Parse(time.RFC3339, t.Str)
			if err != nil {
				return model.Candle{}, errors.Wrap(err, "parse time")
			}
			ts = parsed
		default:
			return model.Candle{}, errors.New("missing dateUnix or time")
		}
	}
	return model.Candle{
		Time:   ts.UTC(),
		Open:   row.Get("open").Float(),
		High:   row.Get("high").Float(),
		Low:    row.Get("low").Float(),
		Close:  row.Get("close").Float(),
		Volume: row.Get("volume").Float(),
	}, nil
}

// unixTime reads milliseconds above 1e12 and seconds below.
func unixTime(v int64) time.Time {
	if v > 1e12 {
		return time.UnixMilli(v).UTC()
	}
	return time.Unix(v, 0).UTC()
}

func tail(candles []model.Candle, limit int) []model.Candle {
	if limit > 0 && len(candles) > limit {
		return candles[len(candles)-limit:]
	}
	return candles
}
