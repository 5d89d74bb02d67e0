package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	persistlog "voxelsiege.dev/internal/persistence/log"
	"voxelsiege.dev/internal/persistence/savedb"
	"voxelsiege.dev/internal/persistence/snapshot"
	"voxelsiege.dev/internal/protocol"
	"voxelsiege.dev/internal/sim/tuning"
	"voxelsiege.dev/internal/sim/world"
	"voxelsiege.dev/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (optional)")
		tickRateHz = flag.Int("tick_rate", 0, "tick rate override (default from tuning, else 20)")
		loadLatest = flag.Bool("load_latest", true, "restore the latest cataloged snapshot + delta chain at startup")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	var tun tuning.Tuning
	if *tuningPath != "" {
		t, err := tuning.Load(*tuningPath)
		if err != nil {
			logger.Fatalf("load tuning: %v", err)
		}
		tun = t
	}

	mgr := world.NewManager(world.Config{
		GridSize:          tun.GridSize,
		MaxUpdatesPerTick: tun.MaxUpdatesPerTick,
		MaxEventsPerFrame: tun.MaxEventsPerFrame,
		CooldownSeconds:   tun.CooldownSeconds,
		DefaultMaxHP:      tun.DefaultMaxHP,
		MemoryBudget:      tun.MemoryBudget,
		UnloadMinDistance: tun.UnloadMinDistance,
	})

	db, err := savedb.Open(filepath.Join(*dataDir, "index.db"))
	if err != nil {
		logger.Fatalf("open save catalog: %v", err)
	}
	defer db.Close()

	if *loadLatest {
		if err := restoreLatest(mgr, db, logger); err != nil {
			logger.Printf("restore failed, starting fresh world: %v", err)
		}
	}

	eventLog := persistlog.NewEventLogger(*dataDir)
	defer eventLog.Close()
	attrLog := persistlog.NewAttributionLogger(*dataDir)
	defer attrLog.Close()

	commands := make(chan protocol.CommandMsg, 1024)
	observerCh := make(chan [3]int, 64)
	wsrv := ws.NewServer(commands, observerCh, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/ws", wsrv.Handler())
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, _ *http.Request) {
		fmt.Fprintln(rw, "ok")
	})
	httpSrv := &http.Server{Addr: *addr, Handler: mux}
	go func() {
		logger.Printf("listening on %s", *addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rate := *tickRateHz
	if rate <= 0 {
		rate = tun.TickRateHz
	}
	if rate <= 0 {
		rate = 20
	}
	dt := 1.0 / float64(rate)
	ticker := time.NewTicker(time.Second / time.Duration(rate))
	defer ticker.Stop()

	snapEvery := int32(tun.SnapshotEveryFrames)
	if snapEvery <= 0 {
		snapEvery = 6000
	}
	deltaEvery := int32(tun.DeltaEveryFrames)
	if deltaEvery <= 0 {
		deltaEvery = 200
	}

	observer := world.Vec3i{X: mgr.WorldSize() / 2, Z: mgr.WorldSize() / 2}

	logger.Printf("world ready: %d chunks, %dx%d voxels", mgr.ChunkCount(), mgr.WorldSize(), mgr.WorldSize())

	for {
		select {
		case <-ctx.Done():
			logger.Printf("shutting down")
			saveSnapshot(mgr, db, *dataDir, logger)
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			_ = httpSrv.Shutdown(shutdownCtx)
			cancel()
			return

		case cmd := <-commands:
			enqueue(mgr, cmd)

		case pos := <-observerCh:
			observer = world.Vec3i{X: pos[0], Y: pos[1], Z: pos[2]}

		case <-ticker.C:
			events := mgr.Tick(dt)
			frame := mgr.Frame()
			if err := eventLog.WriteBatch(frame, events); err != nil {
				logger.Printf("event log: %v", err)
			}
			wsrv.Broadcast(batchMsg(frame, events))

			if frame%deltaEvery == 0 {
				saveDelta(mgr, db, *dataDir, logger)
			}
			if frame%snapEvery == 0 {
				saveSnapshot(mgr, db, *dataDir, logger)
				if err := attrLog.WriteRollup(frame, mgr.AllFactionStats()); err != nil {
					logger.Printf("attribution log: %v", err)
				}
			}
			if frame%100 == 0 {
				if n := mgr.ManageMemory(observer); n > 0 {
					logger.Printf("unloaded %d chunks (observer %v)", n, observer.ToArray())
				}
			}
		}
	}
}

func enqueue(mgr *world.Manager, cmd protocol.CommandMsg) {
	pos := world.Vec3i{X: cmd.Pos[0], Y: cmd.Pos[1], Z: cmd.Pos[2]}
	switch cmd.Op {
	case protocol.OpDamage:
		if cmd.Immediate {
			mgr.DamageImmediate(pos, cmd.Amount, cmd.Source)
		} else {
			mgr.QueueDamage(pos, cmd.Amount, cmd.Source)
		}
	case protocol.OpRepair:
		if cmd.Immediate {
			mgr.RepairImmediate(pos, cmd.Amount)
		} else {
			mgr.QueueRepair(pos, cmd.Amount)
		}
	case protocol.OpRegisterNode:
		if n, ok := world.NodeTypeFromString(cmd.NodeType); ok {
			mgr.RegisterSpecialNode(pos, n)
		}
	}
}

func batchMsg(frame int32, events []world.Event) protocol.EventBatchMsg {
	out := protocol.EventBatchMsg{
		Type:            protocol.TypeEventBatch,
		ProtocolVersion: protocol.Version,
		Frame:           frame,
		Events:          make([]protocol.EventMsg, 0, len(events)),
	}
	for _, ev := range events {
		msg := protocol.EventMsg{
			Kind:    ev.Kind.String(),
			Amount:  ev.Amount,
			HP:      ev.HP,
			ChunkID: ev.ChunkID,
			Count:   ev.Count,
		}
		switch ev.Kind {
		case world.EvtVoxelDamaged, world.EvtStageChanged, world.EvtVoxelDestroyed:
			msg.Pos = ev.Pos.ToArray()
		}
		if ev.Kind == world.EvtStageChanged {
			msg.Old = ev.Old.String()
			msg.New = ev.New.String()
		}
		out.Events = append(out.Events, msg)
	}
	return out
}

func restoreLatest(mgr *world.Manager, db *savedb.DB, logger *log.Logger) error {
	rec, ok, err := db.LatestSnapshot()
	if err != nil {
		return err
	}
	if !ok {
		logger.Printf("no snapshot in catalog")
		return nil
	}
	raw, err := snapshot.ReadFile(rec.Path)
	if err != nil {
		return fmt.Errorf("read snapshot %s: %w", rec.Path, err)
	}
	chain, err := db.DeltaChain(rec.SnapshotID)
	if err != nil {
		return err
	}
	deltas := make([][]byte, 0, len(chain))
	for _, d := range chain {
		blob, err := snapshot.ReadFile(d.Path)
		if err != nil {
			return fmt.Errorf("read delta %s: %w", d.Path, err)
		}
		deltas = append(deltas, blob)
	}
	if err := snapshot.Reconstruct(mgr, raw, deltas); err != nil {
		return err
	}
	logger.Printf("restored snapshot %d at frame %d (+%d deltas)", rec.SnapshotID, mgr.Frame(), len(deltas))
	return nil
}

func saveSnapshot(mgr *world.Manager, db *savedb.DB, dataDir string, logger *log.Logger) {
	blob := mgr.CreateSnapshot()
	path := filepath.Join(dataDir, "snapshots", fmt.Sprintf("snap_%06d_f%08d.vsnp.zst", mgr.SnapshotID(), mgr.Frame()))
	sum, err := snapshot.WriteFile(path, blob)
	if err != nil {
		logger.Printf("write snapshot: %v", err)
		return
	}
	if _, err := db.Insert(savedb.Record{
		Kind:       savedb.KindSnapshot,
		SnapshotID: mgr.SnapshotID(),
		Frame:      mgr.Frame(),
		Path:       path,
		SHA256:     sum,
		Chunks:     mgr.ChunkCount(),
	}); err != nil {
		logger.Printf("catalog snapshot: %v", err)
	}
	logger.Printf("snapshot %d written (%d bytes raw)", mgr.SnapshotID(), len(blob))
}

func saveDelta(mgr *world.Manager, db *savedb.DB, dataDir string, logger *log.Logger) {
	blob, count := mgr.CreateDelta()
	if count == 0 {
		return
	}
	path := filepath.Join(dataDir, "deltas", fmt.Sprintf("delta_%06d_f%08d.vdlt.zst", mgr.SnapshotID(), mgr.Frame()))
	sum, err := snapshot.WriteFile(path, blob)
	if err != nil {
		logger.Printf("write delta: %v", err)
		return
	}
	if _, err := db.Insert(savedb.Record{
		Kind:       savedb.KindDelta,
		SnapshotID: mgr.SnapshotID(),
		Frame:      mgr.Frame(),
		Path:       path,
		SHA256:     sum,
		Chunks:     count,
	}); err != nil {
		logger.Printf("catalog delta: %v", err)
	}
}
