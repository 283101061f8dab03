package driver

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

const maxStreamLine = 1 << 20

// Stream reads newline-delimited JSON value updates from a file, FIFO or
// serial bridge. Devices are discovered from the events themselves.
type Stream struct {
	path   string
	logger *slog.Logger

	// open is replaceable in tests.
	open func(path string) (io.ReadCloser, error)

	devices map[int]*streamDevice
	rc      io.ReadCloser
	wg      sync.WaitGroup
	stop    func() bool
}

// streamEvent is the wire form of one value update.
type streamEvent struct {
	Node            int      `json:"node"`
	Name            string   `json:"name"`
	Endpoint        int      `json:"endpoint"`
	PropertyName    string   `json:"propertyName"`
	PropertyKeyName string   `json:"propertyKeyName,omitempty"`
	NewValue        any      `json:"newValue"`
	Metadata        Metadata `json:"metadata"`
}

type streamDevice struct {
	node int
	name string
}

// NewStream creates a stream driver for path.
func NewStream(path string, logger *slog.Logger) *Stream {
	return &Stream{
		path:    path,
		logger:  logger,
		open:    func(path string) (io.ReadCloser, error) { return os.Open(path) },
		devices: make(map[int]*streamDevice),
	}
}

// Start opens the stream and delivers its events until it ends or ctx is
// cancelled.
func (s *Stream) Start(ctx context.Context, h Handler) error {
	rc, err := s.open(s.path)
	if err != nil {
		return &Error{Op: "open", Path: s.path, Err: err}
	}
	s.rc = rc
	s.stop = context.AfterFunc(ctx, func() { _ = rc.Close() })

	// Devices are unknown until they report.
	h.OnReady(nil)

	s.wg.Go(func() {
		s.read(ctx, h)
	})

	s.logger.Info("stream driver started", "path", s.path)
	return nil
}

// Close stops reading the stream.
func (s *Stream) Close() error {
	if s.rc == nil {
		return nil
	}
	if s.stop != nil {
		s.stop()
	}
	err := s.rc.Close()
	s.wg.Wait()
	if err != nil && !errors.Is(err, os.ErrClosed) {
		return err
	}
	return nil
}

func (s *Stream) read(ctx context.Context, h Handler) {
	scanner := bufio.NewScanner(s.rc)
	scanner.Buffer(make([]byte, 0, 64*1024), maxStreamLine)

	line := 0
	for scanner.Scan() {
		line++
		data := scanner.Bytes()
		if len(data) == 0 {
			continue
		}

		var ev streamEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			h.OnError(&Error{Op: "decode", Path: s.path, Err: fmt.Errorf("line %d: %w", line, err)})
			continue
		}
		if ev.Node <= 0 {
			h.OnError(&Error{Op: "decode", Path: s.path, Err: fmt.Errorf("line %d: missing node id", line)})
			continue
		}

		h.OnValueUpdated(s.device(ev), ValueUpdate{
			Endpoint:        ev.Endpoint,
			PropertyName:    ev.PropertyName,
			PropertyKeyName: ev.PropertyKeyName,
			NewValue:        ev.NewValue,
			Metadata:        ev.Metadata,
		})
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil && !errors.Is(err, os.ErrClosed) {
		h.OnError(&Error{Op: "read", Path: s.path, Err: err})
		return
	}
	s.logger.Info("stream ended", "path", s.path, "lines", line)
}

// device returns the device for an event, registering it on first sight.
func (s *Stream) device(ev streamEvent) *streamDevice {
	d, ok := s.devices[ev.Node]
	if !ok {
		name := ev.Name
		if name == "" {
			name = fmt.Sprintf("Node %d", ev.Node)
		}
		d = &streamDevice{node: ev.Node, name: name}
		s.devices[ev.Node] = d
		s.logger.Info("discovered device", "node", d.node, "name", d.name)
	}
	return d
}

func (d *streamDevice) NodeID() int  { return d.node }
func (d *streamDevice) Name() string { return d.name }

// RefreshValues is a no-op: a stream cannot be polled.
func (d *streamDevice) RefreshValues(context.Context) error {
	return nil
}
