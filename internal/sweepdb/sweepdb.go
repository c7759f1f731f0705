// Package sweepdb journals sweep runs and their output files to a
// ClickHouse database. The journal is strictly optional: if no server is
// reachable at startup, every method is a silent no-op and acquisition
// proceeds unaffected.
package sweepdb

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
)

const databaseName = "filterbank" // official SQL name of the database

const timeFormat = "2006-01-02 15:04:05.000000"

// journalBacklog bounds the pending file entries. A sweep takes minutes
// and an insert milliseconds, so the backlog only fills if the server
// stalls; entries beyond it are dropped rather than stalling the writer.
const journalBacklog = 16

// Connection wraps one ClickHouse connection plus the goroutine that
// serializes inserts. Create with Start; a failed connection still yields
// a usable (no-op) *Connection.
type Connection struct {
	conn clickhouse.Conn
	err  error
	run  *RunMessage

	filemsg chan *FileMessage
	sync.WaitGroup
}

// IsConnected reports whether the journal is live.
func (c *Connection) IsConnected() bool {
	return c != nil && c.conn != nil && c.err == nil
}

// PingServer connects, prints the server version, and disconnects. Backs
// the dbping subcommand used when setting up a new rig host.
func PingServer() error {
	c := connect()
	if !c.IsConnected() {
		if c.err != nil {
			return c.err
		}
		return fmt.Errorf("database is not connected")
	}
	v, err := c.conn.ServerVersion()
	if err != nil {
		return err
	}
	fmt.Printf("ClickHouse server is alive. Version:\n%s\n", v)
	return c.conn.Close()
}

// Start opens the journal, records the run entry, and launches the insert
// goroutine. The goroutine exits when abort is closed; call Wait to join it.
func Start(run *RunMessage, abort <-chan struct{}) *Connection {
	c := connect()
	c.run = run
	c.logRun()
	if c.IsConnected() {
		c.Add(1)
		go c.handleConnection(abort)
	}
	return c
}

// Dummy returns a no-op journal for runs that do not want one.
func Dummy() *Connection {
	return &Connection{}
}

func connect() *Connection {
	c := &Connection{}
	addr := os.Getenv("CALIB_DB_ADDR")
	if addr == "" {
		addr = "localhost:9000"
	}
	opt := clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: databaseName,
			Username: os.Getenv("CALIB_DB_USER"),
			Password: os.Getenv("CALIB_DB_PASSWORD"),
		},
		ClientInfo: clickhouse.ClientInfo{
			Products: []struct {
				Name    string
				Version string
			}{
				{Name: "fbksweep", Version: "unknown"},
			},
		},
	}
	conn, err := clickhouse.Open(&opt)
	if err != nil {
		c.err = err
		return c
	}
	if err = conn.Ping(context.Background()); err != nil {
		if exception, ok := err.(*clickhouse.Exception); ok {
			fmt.Printf("Exception [%d] %s \n%s\n", exception.Code, exception.Message, exception.StackTrace)
		}
		c.err = err
		return c
	}
	c.conn = conn
	c.filemsg = make(chan *FileMessage, journalBacklog)
	return c
}

func (c *Connection) handleConnection(abort <-chan struct{}) {
	defer c.Done()
	for {
		select {
		case <-abort:
			// Drain whatever was enqueued before the abort so the final
			// file of a run is journaled, then finalize the run entry.
			for {
				select {
				case m := <-c.filemsg:
					c.insertFile(m)
				default:
					c.Disconnect()
					return
				}
			}
		case m := <-c.filemsg:
			c.insertFile(m)
		}
	}
}

// Disconnect finalizes the run entry. The insert goroutine calls it when
// abort closes; calling it on a dead connection is harmless.
func (c *Connection) Disconnect() {
	if c.IsConnected() {
		c.run.End = time.Now()
		c.logRun()
	}
}

// RecordFile journals one persisted table file. It never blocks the
// writer: the entry is enqueued here and inserted on the journal
// goroutine, and a full backlog drops the entry instead of stalling.
func (c *Connection) RecordFile(path string, nrows int, powerDBM int, hasPower bool, start, end time.Time) {
	if !c.IsConnected() {
		return
	}
	m := &FileMessage{
		RunID:    c.run.ID,
		Path:     path,
		Rows:     nrows,
		PowerDBM: powerDBM,
		HasPower: hasPower,
		Start:    start,
		End:      end,
	}
	select {
	case c.filemsg <- m:
	default:
		fmt.Println("sweep journal backlog full; dropping entry for", path)
	}
}

func (c *Connection) logRun() {
	if !c.IsConnected() {
		return
	}
	const nowait = false
	r := c.run
	if err := c.conn.AsyncInsert(context.Background(),
		`INSERT INTO sweepruns VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, nowait,
		r.ID, r.Hostname, r.Version, r.GoVersion, r.CPUs, r.Band,
		r.Start.Format(timeFormat), r.End.Format(timeFormat),
	); err != nil {
		fmt.Println("Error raised on AsyncInsert into sweepruns ", err)
		c.err = err
	}
}

func (c *Connection) insertFile(m *FileMessage) {
	if !c.IsConnected() {
		return
	}
	const nowait = false
	power := uint8(0)
	if m.HasPower {
		power = 1
	}
	if err := c.conn.AsyncInsert(context.Background(),
		`INSERT INTO sweepfiles VALUES (?, ?, ?, ?, ?, ?, ?)`, nowait,
		m.RunID, m.Path, m.Rows, m.PowerDBM, power,
		m.Start.Format(timeFormat), m.End.Format(timeFormat),
	); err != nil {
		fmt.Println("Error raised on AsyncInsert into sweepfiles ", err)
		c.err = err
	}
}
