package hci

import (
	"encoding/binary"
	"io"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

const vhciPath = "/dev/vhci"

// VHCI registers a virtual controller with the kernel. Whatever the host
// stack sends to that controller is read here, and what is written here is
// delivered to the host stack.
type VHCI struct {
	fd     int
	index  uint16
	closed chan struct{}
	rmu    sync.Mutex
	wmu    sync.Mutex
}

// OpenVHCI creates a primary controller, which shows up as hci<Index>.
func OpenVHCI() (*VHCI, error) {
	fd, err := unix.Open(vhciPath, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", vhciPath)
	}
	// vendor packet asking for a primary controller
	if _, err := unix.Write(fd, []byte{byte(PacketTypeVendor), 0x00}); err != nil {
		unix.Close(fd)
		return nil, errors.Wrap(err, "register controller")
	}
	b := make([]byte, 4)
	n, err := unix.Read(fd, b)
	if err != nil {
		unix.Close(fd)
		return nil, errors.Wrap(err, "read controller index")
	}
	if n != 4 || b[0] != byte(PacketTypeVendor) {
		unix.Close(fd)
		return nil, errors.Errorf("unexpected vhci response %x", b[:n])
	}
	return &VHCI{
		fd:     fd,
		index:  binary.LittleEndian.Uint16(b[2:]),
		closed: make(chan struct{}),
	}, nil
}

func (v *VHCI) Index() uint16 {
	return v.index
}

func (v *VHCI) Read(p []byte) (int, error) {
	select {
	case <-v.closed:
		return 0, io.EOF
	default:
	}
	v.rmu.Lock()
	defer v.rmu.Unlock()
	return unix.Read(v.fd, p)
}

func (v *VHCI) Write(p []byte) (int, error) {
	v.wmu.Lock()
	defer v.wmu.Unlock()
	return unix.Write(v.fd, p)
}

func (v *VHCI) Close() error {
	close(v.closed)
	return unix.Close(v.fd)
}
