package control

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/leandrodaf/midiseq/sdk/contracts"
)

// DefaultSocketPath is the control socket used when none is configured.
const DefaultSocketPath = "/tmp/gord_rt.sock"

// maxDatagram bounds one control message.
const maxDatagram = 4096

// readRetryDelay paces retries after a failed read.
const readRetryDelay = 100 * time.Millisecond

// Socket receives control datagrams on a unix socket.
type Socket struct {
	path   string
	conn   net.PacketConn
	logger contracts.Logger
}

// ListenSocket binds path, removing a stale socket file first.
func ListenSocket(path string, logger contracts.Logger) (*Socket, error) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("removing stale socket %s: %w", path, err)
	}
	conn, err := net.ListenUnixgram("unixgram", &net.UnixAddr{Name: path, Net: "unixgram"})
	if err != nil {
		return nil, fmt.Errorf("binding control socket %s: %w", path, err)
	}
	logger.Info("control socket listening", logger.Field().String("path", path))
	return &Socket{path: path, conn: conn, logger: logger}, nil
}

// Path returns the bound socket path.
func (s *Socket) Path() string {
	return s.path
}

// Serve receives datagrams until ctx is done or the socket is closed.
func (s *Socket) Serve(ctx context.Context, handle Handler) error {
	stop := context.AfterFunc(ctx, func() { s.conn.Close() })
	defer stop()

	buf := make([]byte, maxDatagram)
	for {
		n, _, err := s.conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logger.Warn("control socket read failed", s.logger.Field().Error("error", err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(readRetryDelay):
			}
			continue
		}
		if n <= 0 {
			continue
		}
		dispatch(buf[:n], handle, s.logger, "socket")
	}
}

// Close closes the socket and removes its file.
func (s *Socket) Close() error {
	err := s.conn.Close()
	if errors.Is(err, net.ErrClosed) {
		err = nil
	}
	if rmErr := os.Remove(s.path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
		err = errors.Join(err, rmErr)
	}
	return err
}

// Send writes one encoded command to the socket at path.
func Send(path string, cmd contracts.Command) error {
	data, err := Encode(cmd)
	if err != nil {
		return err
	}
	conn, err := net.DialUnix("unixgram", nil, &net.UnixAddr{Name: path, Net: "unixgram"})
	if err != nil {
		return fmt.Errorf("dialing control socket %s: %w", path, err)
	}
	defer conn.Close()

	if _, err := conn.Write(data); err != nil {
		return fmt.Errorf("sending %s: %w", cmd.Kind(), err)
	}
	return nil
}
