package hci

import (
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ErrMalformedPacket wraps every decoding failure returned by ReadPacket.
// Transport errors are returned as they are.
var ErrMalformedPacket = errors.New("malformed hci packet")

// Conn exchanges H4 packets over a transport that carries exactly one packet
// per Read and per Write, as /dev/vhci and net.Pipe do.
type Conn struct {
	rw     io.ReadWriter
	logger *zap.Logger
	rmu    sync.Mutex
	wmu    sync.Mutex
	buf    []byte
}

func NewConn(rw io.ReadWriter) *Conn {
	return &Conn{
		rw:     rw,
		logger: zap.L().Named("hci"),
		buf:    make([]byte, math.MaxUint16),
	}
}

func (c *Conn) ReadPacket() (Packet, error) {
	c.rmu.Lock()
	n, err := c.rw.Read(c.buf)
	if err != nil {
		c.rmu.Unlock()
		return nil, err
	}
	buf := append([]byte(nil), c.buf[:n]...)
	c.rmu.Unlock()

	c.logger.Debug("hci reading", zap.String("packet", fmt.Sprintf("%x", buf)))
	p, err := Unmarshal(buf)
	if err != nil && !errors.Is(err, ErrInvalidParameters) {
		return nil, errors.Wrapf(ErrMalformedPacket, "%v", err)
	}
	return p, err
}

func (c *Conn) WritePacket(p Packet) error {
	buf, err := p.Marshal()
	if err != nil {
		return err
	}
	c.logger.Debug("hci writing", zap.String("packet", fmt.Sprintf("%x", buf)))
	c.wmu.Lock()
	defer c.wmu.Unlock()
	_, err = c.rw.Write(buf)
	return err
}
