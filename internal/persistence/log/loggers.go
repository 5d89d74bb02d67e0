package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"voxelsiege.dev/internal/sim/world"
)

type JSONLZstdWriter struct {
	baseDir string
	prefix  string

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

func NewJSONLZstdWriter(baseDir, prefix string) *JSONLZstdWriter {
	return &JSONLZstdWriter{
		baseDir: baseDir,
		prefix:  prefix,
	}
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *JSONLZstdWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	hour := time.Now().UTC().Format("2006-01-02-15")
	if hour != w.curHour {
		if err := w.rotateLocked(hour); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

func (w *JSONLZstdWriter) rotateLocked(hour string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	dir := filepath.Dir(w.pathForHour(hour))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(w.pathForHour(hour), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 128*1024)
	w.curHour = hour
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	var err1 error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err1 = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	return err1
}

func (w *JSONLZstdWriter) pathForHour(hour string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
}

// EventRow is one world event flattened for the JSONL event log.
type EventRow struct {
	Frame   int32  `json:"frame"`
	Kind    string `json:"kind"`
	Pos     [3]int `json:"pos,omitempty"`
	Amount  int    `json:"amount,omitempty"`
	HP      int    `json:"hp,omitempty"`
	Old     string `json:"old,omitempty"`
	New     string `json:"new,omitempty"`
	ChunkID int32  `json:"chunk_id,omitempty"`
	Count   int    `json:"count,omitempty"`
}

// EventLogger writes one compressed JSONL entry per emitted world event.
type EventLogger struct{ w *JSONLZstdWriter }

func NewEventLogger(dataDir string) *EventLogger {
	return &EventLogger{w: NewJSONLZstdWriter(filepath.Join(dataDir, "events"), "events")}
}

func (l *EventLogger) WriteBatch(frame int32, events []world.Event) error {
	for _, ev := range events {
		row := EventRow{
			Frame:   frame,
			Kind:    ev.Kind.String(),
			Amount:  ev.Amount,
			HP:      ev.HP,
			ChunkID: ev.ChunkID,
			Count:   ev.Count,
		}
		switch ev.Kind {
		case world.EvtVoxelDamaged, world.EvtStageChanged, world.EvtVoxelDestroyed:
			row.Pos = ev.Pos.ToArray()
		}
		if ev.Kind == world.EvtStageChanged {
			row.Old = ev.Old.String()
			row.New = ev.New.String()
		}
		if err := l.w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func (l *EventLogger) Close() error { return l.w.Close() }

// AttributionRow is a periodic per-faction damage rollup.
type AttributionRow struct {
	Frame           int32  `json:"frame"`
	Faction         string `json:"faction"`
	DamageDealt     int    `json:"damage_dealt"`
	VoxelsDamaged   int    `json:"voxels_damaged"`
	VoxelsDestroyed int    `json:"voxels_destroyed"`
}

// AttributionLogger writes faction damage rollups (compressed JSONL).
type AttributionLogger struct{ w *JSONLZstdWriter }

func NewAttributionLogger(dataDir string) *AttributionLogger {
	return &AttributionLogger{w: NewJSONLZstdWriter(filepath.Join(dataDir, "attribution"), "attribution")}
}

func (l *AttributionLogger) WriteRollup(frame int32, stats map[string]world.FactionStats) error {
	for id, s := range stats {
		row := AttributionRow{
			Frame:           frame,
			Faction:         id,
			DamageDealt:     s.DamageDealt,
			VoxelsDamaged:   s.VoxelsDamaged,
			VoxelsDestroyed: s.VoxelsDestroyed,
		}
		if err := l.w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func (l *AttributionLogger) Close() error { return l.w.Close() }
