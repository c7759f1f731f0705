package sweepdb

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// With no server configured every entry point must be a safe no-op: the
// rig keeps sweeping whether or not the journal host is up.
func TestDisconnectedIsNoop(t *testing.T) {
	c := Dummy()
	assert.False(t, c.IsConnected())

	c.RecordFile("/data/08312026_120000.fits", 301, 5, true, time.Now(), time.Now())
	c.Disconnect()
	c.Wait() // must not block

	var nilConn *Connection
	assert.False(t, nilConn.IsConnected())
}

// journalConn records AsyncInsert queries in place of a live server. The
// embedded interface leaves every other method unimplemented; the journal
// only ever calls AsyncInsert.
type journalConn struct {
	clickhouse.Conn
	mu      sync.Mutex
	queries []string
}

func (j *journalConn) AsyncInsert(ctx context.Context, query string, wait bool, args ...any) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.queries = append(j.queries, query)
	return nil
}

func (j *journalConn) recorded() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.queries...)
}

// File entries recorded just before the run ends must still reach the
// database: the insert goroutine drains its queue before finalizing the
// run entry, and Wait does not return until both are done.
func TestRecordFileSurvivesAbort(t *testing.T) {
	fake := &journalConn{}
	c := &Connection{
		conn:    fake,
		run:     &RunMessage{ID: "01JX0000000000000000000000"},
		filemsg: make(chan *FileMessage, journalBacklog),
	}
	require.True(t, c.IsConnected())

	abort := make(chan struct{})
	c.Add(1)
	go c.handleConnection(abort)

	now := time.Now()
	c.RecordFile("/data/08312026_120000_+05dBm.fits", 301, 5, true, now, now)
	c.RecordFile("/data/08312026_120300_+05dBm.fits", 301, 5, true, now, now)
	close(abort)
	c.Wait()

	var files, runs int
	for _, q := range fake.recorded() {
		switch {
		case strings.Contains(q, "sweepfiles"):
			files++
		case strings.Contains(q, "sweepruns"):
			runs++
		}
	}
	assert.Equal(t, 2, files, "both file entries inserted before shutdown")
	assert.Equal(t, 1, runs, "run entry finalized on disconnect")
}

// A stalled server must never stall the writer: with the backlog full,
// RecordFile drops the entry and returns immediately.
func TestRecordFileNeverBlocks(t *testing.T) {
	c := &Connection{
		conn:    &journalConn{},
		run:     &RunMessage{ID: "01JX0000000000000000000000"},
		filemsg: make(chan *FileMessage, 1),
	}
	// No insert goroutine running: the first entry fills the queue.
	now := time.Now()
	done := make(chan struct{})
	go func() {
		c.RecordFile("/data/a.fits", 301, 0, false, now, now)
		c.RecordFile("/data/b.fits", 301, 0, false, now, now)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("RecordFile blocked on a full queue")
	}
	assert.Len(t, c.filemsg, 1)
}
