package hci

import (
	"encoding/binary"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Host is the host side of a Conn: it sends commands and waits for their
// Command Complete events.
type Host struct {
	*Conn

	onPacketLock sync.Mutex
	onPacket     map[string]func(Packet, error)
	err          error

	conns chan *LEConnectionCompleteEventPacket
}

func NewHost(c *Conn) *Host {
	h := &Host{
		Conn:     c,
		onPacket: make(map[string]func(Packet, error)),
		conns:    make(chan *LEConnectionCompleteEventPacket, 1),
	}
	go func() {
		defer close(h.conns)
		for {
			p, err := h.ReadPacket()
			if errors.Is(err, ErrMalformedPacket) {
				h.logger.Debug("ignoring packet", zap.Error(err))
				continue
			}
			if cc, ok := p.(*LEConnectionCompleteEventPacket); ok {
				select {
				case h.conns <- cc:
				default:
					h.logger.Warn("dropping connection complete event")
				}
				continue
			}
			h.onPacketLock.Lock()
			for _, cb := range h.onPacket {
				cb(p, err)
			}
			if err != nil {
				h.err = err
				h.onPacketLock.Unlock()
				return
			}
			h.onPacketLock.Unlock()
		}
	}()
	return h
}

// subscribe registers cb until it returns true. Callbacks run on the reader
// goroutine with the registry locked.
func (h *Host) subscribe(cb func(Packet, error) bool) {
	id := uuid.NewString()
	h.onPacketLock.Lock()
	defer h.onPacketLock.Unlock()
	if h.err != nil {
		cb(nil, h.err)
		return
	}
	h.onPacket[id] = func(p Packet, err error) {
		if cb(p, err) {
			delete(h.onPacket, id)
		}
	}
}

// op sends p and returns the return parameters of its Command Complete
// event. A status other than success is returned as the error.
func (h *Host) op(p CommandPacket) ([]byte, error) {
	type result struct {
		buf []byte
		err error
	}
	done := make(chan result, 1)
	h.subscribe(func(q Packet, err error) bool {
		if err != nil {
			done <- result{err: err}
			return true
		}
		cc, ok := q.(*CommandCompleteEventPacket)
		if !ok || cc.CommandOpcode != p.Opcode() {
			return false
		}
		done <- result{buf: cc.ReturnParameters}
		return true
	})
	if err := h.WritePacket(p); err != nil {
		return nil, err
	}
	r := <-done
	if r.err != nil {
		return nil, r.err
	}
	if len(r.buf) == 0 {
		return nil, io.ErrUnexpectedEOF
	}
	if s := Status(r.buf[0]); s != StatusSuccess {
		return r.buf, errors.Wrapf(s, "%s", p.Opcode())
	}
	return r.buf, nil
}

func (h *Host) Reset() error {
	_, err := h.op(NewGenericCommandPacket(OpcodeReset))
	return err
}

func (h *Host) ReadBDAddr() (BDAddr, error) {
	var addr BDAddr
	buf, err := h.op(NewGenericCommandPacket(OpcodeReadBDAddr))
	if err != nil {
		return addr, err
	}
	if copy(addr[:], buf[1:]) != 6 {
		return addr, io.ErrShortBuffer
	}
	return addr, nil
}

type LEReadBufferSizeResponse struct {
	LEACLDataPacketLength    uint16
	TotalNumLEACLDataPackets uint8
}

func (h *Host) LEReadBufferSize() (*LEReadBufferSizeResponse, error) {
	buf, err := h.op(NewGenericCommandPacket(OpcodeLEReadBufferSize))
	if err != nil {
		return nil, err
	}
	if len(buf) < 4 {
		return nil, io.ErrShortBuffer
	}
	return &LEReadBufferSizeResponse{
		LEACLDataPacketLength:    binary.LittleEndian.Uint16(buf[1:3]),
		TotalNumLEACLDataPackets: buf[3],
	}, nil
}

type LESupportedStates uint64

func (h *Host) LEReadSupportedStates() (LESupportedStates, error) {
	buf, err := h.op(NewGenericCommandPacket(OpcodeLEReadSupportedStates))
	if err != nil {
		return 0, err
	}
	if len(buf) < 9 {
		return 0, io.ErrShortBuffer
	}
	return LESupportedStates(binary.LittleEndian.Uint64(buf[1:9])), nil
}

func (h *Host) LESetAdvertisingEnable(enable bool) error {
	_, err := h.op(&LESetAdvertisingEnableCommandPacket{AdvertisingEnable: enable})
	return err
}

// Accept waits for the next LE Connection Complete event. One event that
// arrives before Accept is called is kept.
func (h *Host) Accept() (*LEConnectionCompleteEventPacket, error) {
	p, ok := <-h.conns
	if !ok {
		h.onPacketLock.Lock()
		defer h.onPacketLock.Unlock()
		return nil, h.err
	}
	return p, nil
}
