package sync

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Имена компрессоров (значение sync.compression в конфиге)
const (
	CompressionNone = "none"
	CompressionGzip = "gzip"
	CompressionZstd = "zstd"
)

// MetaCompression ключ метаданных конверта с именем компрессора
const MetaCompression = "compression"

// DeltaCompressor кодирует/декодирует пачку изменений (Change) в компактный вид.
type DeltaCompressor interface {
	Name() string
	Compress(changes []Change) ([]byte, error)
	Decompress(payload []byte) ([]Change, error)
}

// NewCompressor возвращает компрессор по имени из конфига
func NewCompressor(name string) (DeltaCompressor, error) {
	switch name {
	case "", CompressionNone:
		return NewPassthroughCompressor(), nil
	case CompressionGzip:
		return NewGzipCompressor(), nil
	case CompressionZstd:
		return NewZstdCompressor()
	default:
		return nil, fmt.Errorf("неизвестная компрессия %q (none|gzip|zstd)", name)
	}
}

type passthroughCompressor struct{}

func NewPassthroughCompressor() DeltaCompressor { return &passthroughCompressor{} }

func (p *passthroughCompressor) Name() string { return CompressionNone }

// Compress формат кадра: [u16 len(type)] [type] [i64 unix nano] [u32 len(data)] [data] ...
// Нулевое время кодируется нулём.
func (p *passthroughCompressor) Compress(changes []Change) ([]byte, error) {
	var buf []byte
	for _, c := range changes {
		if len(c.ChangeType) > 0xFFFF {
			return nil, fmt.Errorf("тип изменения слишком длинный: %d", len(c.ChangeType))
		}
		buf = binary.BigEndian.AppendUint16(buf, uint16(len(c.ChangeType)))
		buf = append(buf, c.ChangeType...)
		var ts int64
		if !c.Timestamp.IsZero() {
			ts = c.Timestamp.UnixNano()
		}
		buf = binary.BigEndian.AppendUint64(buf, uint64(ts))
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(c.Data)))
		buf = append(buf, c.Data...)
	}
	return buf, nil
}

func (p *passthroughCompressor) Decompress(payload []byte) ([]Change, error) {
	var res []Change
	i := 0
	for i < len(payload) {
		if i+2 > len(payload) {
			return res, fmt.Errorf("обрезанный кадр на смещении %d", i)
		}
		tn := int(binary.BigEndian.Uint16(payload[i:]))
		i += 2
		if i+tn+12 > len(payload) {
			return res, fmt.Errorf("обрезанный тип на смещении %d", i)
		}
		changeType := string(payload[i : i+tn])
		i += tn

		var at time.Time
		if ts := int64(binary.BigEndian.Uint64(payload[i:])); ts != 0 {
			at = time.Unix(0, ts)
		}
		i += 8

		n := int(binary.BigEndian.Uint32(payload[i:]))
		i += 4
		if i+n > len(payload) {
			return res, fmt.Errorf("обрезанные данные на смещении %d", i)
		}
		data := make([]byte, n)
		copy(data, payload[i:i+n])
		res = append(res, Change{Data: data, ChangeType: changeType, Timestamp: at})
		i += n
	}
	return res, nil
}

// gzipCompressor применяет gzip к сериализованным изменениям
type gzipCompressor struct {
	raw passthroughCompressor
}

func NewGzipCompressor() DeltaCompressor { return &gzipCompressor{} }

func (g *gzipCompressor) Name() string { return CompressionGzip }

func (g *gzipCompressor) Compress(changes []Change) ([]byte, error) {
	raw, err := g.raw.Compress(changes)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(raw); err != nil {
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g *gzipCompressor) Decompress(payload []byte) ([]Change, error) {
	gz, err := gzip.NewReader(bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	defer gz.Close()

	raw, err := io.ReadAll(gz)
	if err != nil {
		return nil, err
	}
	return g.raw.Decompress(raw)
}

// zstdCompressor сжимает пачки zstd. Кодер и декодер переиспользуются.
type zstdCompressor struct {
	raw passthroughCompressor
	enc *zstd.Encoder
	dec *zstd.Decoder
}

func NewZstdCompressor() (DeltaCompressor, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	return &zstdCompressor{enc: enc, dec: dec}, nil
}

func (z *zstdCompressor) Name() string { return CompressionZstd }

func (z *zstdCompressor) Compress(changes []Change) ([]byte, error) {
	raw, err := z.raw.Compress(changes)
	if err != nil {
		return nil, err
	}
	return z.enc.EncodeAll(raw, nil), nil
}

func (z *zstdCompressor) Decompress(payload []byte) ([]Change, error) {
	raw, err := z.dec.DecodeAll(payload, nil)
	if err != nil {
		return nil, err
	}
	return z.raw.Decompress(raw)
}
