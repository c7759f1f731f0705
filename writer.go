package filterbank

import (
	"path/filepath"
	"time"

	"gonum.org/v1/gonum/stat"
)

// FileRecorder receives a notification for each persisted sweep file.
// start is when the sweep's first row was acquired, end when the file
// finished writing. internal/sweepdb implements it against ClickHouse; a
// nil recorder disables journaling.
type FileRecorder interface {
	RecordFile(path string, nrows int, powerDBM int, hasPower bool, start, end time.Time)
}

// Writer is the consumer: it blocks on the Handoff, serializes whichever
// buffer it is handed, and persists the result through a TableWriter. It
// runs on its own goroutine for the life of the pipeline. A failed file
// is logged and dropped; the pipeline keeps running.
type Writer struct {
	cfg      *Config
	tw       TableWriter
	pool     *BufferPool
	handoff  *Handoff
	abort    *AbortSignal
	recorder FileRecorder

	filesWritten int
	rowsWritten  int
}

// NewWriter wires a consumer over an already-validated Config.
func NewWriter(cfg *Config, tw TableWriter, pool *BufferPool, handoff *Handoff, abort *AbortSignal) *Writer {
	return &Writer{cfg: cfg, tw: tw, pool: pool, handoff: handoff, abort: abort}
}

// SetRecorder installs an optional per-file journal hook. Call before Run.
func (w *Writer) SetRecorder(r FileRecorder) { w.recorder = r }

// FilesWritten reports how many table files have been persisted.
func (w *Writer) FilesWritten() int { return w.filesWritten }

// Run consumes handed-off buffers until the handoff is closed and drained,
// then returns. Pending work is always finished first: a buffer published
// before Close is written even when the abort flag is already set.
func (w *Writer) Run() {
	for {
		id, ok := w.handoff.Take()
		if !ok {
			if w.abort.IsSet() {
				UpdateLogger.Printf("writer: terminating after abort; %d files, %d rows written",
					w.filesWritten, w.rowsWritten)
			} else {
				UpdateLogger.Printf("writer: sweep complete; %d files, %d rows written",
					w.filesWritten, w.rowsWritten)
			}
			return
		}
		w.writeBuffer(id)
	}
}

func (w *Writer) writeBuffer(id BufferID) {
	buf := w.pool.Buffer(id)
	cs, err := Serialize(buf, w.cfg.Schema)
	if err != nil {
		ProblemLogger.Printf("writer: buffer %v not serializable, dropping: %v", id, err)
		return
	}

	path := filepath.Join(w.cfg.OutputDir, cs.FileName)
	start := time.Now()
	UpdateLogger.Printf("writer: writing %d rows from buffer %v to %s", cs.NRows, id, path)
	if err := w.writeTable(path, cs); err != nil {
		ProblemLogger.Printf("writer: %s failed, file dropped: %v", path, err)
		return
	}
	end := time.Now()
	UpdateLogger.Printf("writer: wrote %s in %v", path, end.Sub(start).Round(time.Millisecond))

	w.filesWritten++
	w.rowsWritten += cs.NRows
	w.logSummary(cs)

	if w.cfg.Quicklook {
		if err := writeQuicklook(path, cs); err != nil {
			ProblemLogger.Printf("writer: quicklook export for %s failed: %v", path, err)
		}
	}
	if w.recorder != nil {
		p, hasP := buf.PowerDBM()
		w.recorder.RecordFile(path, cs.NRows, p, hasP, buf.Started(), end)
	}
}

// writeTable drives one file through the TableWriter: create, numeric
// columns, text columns, header scalar, close. The first error wins, but
// the handle is always closed.
func (w *Writer) writeTable(path string, cs *ColumnSet) error {
	tbl, err := w.tw.CreateTable(path, w.cfg.Schema)
	if err != nil {
		return err
	}
	for k := 0; k < NumBanks; k++ {
		if err := tbl.WriteNumericColumn(k, cs.Banks[k]); err != nil {
			tbl.Close()
			return err
		}
	}
	for t := range cs.Text {
		if err := tbl.WriteTextColumn(t, cs.Text[t]); err != nil {
			tbl.Close()
			return err
		}
	}
	if cs.HasSysVolts {
		if err := tbl.SetSysVolts(cs.SysVolts); err != nil {
			tbl.Close()
			return err
		}
	}
	return tbl.Close()
}

// logSummary logs per-bank sample statistics for the sweep just written,
// a cheap sanity signal that the converters are alive and not railed.
func (w *Writer) logSummary(cs *ColumnSet) {
	scratch := make([]float64, len(cs.Banks[0]))
	for k := 0; k < NumBanks; k++ {
		for i, s := range cs.Banks[k] {
			scratch[i] = float64(s)
		}
		mean, std := stat.MeanStdDev(scratch, nil)
		UpdateLogger.Printf("writer: bank %d mean %.0f stddev %.0f over %d samples",
			k+1, mean, std, len(scratch))
	}
}
