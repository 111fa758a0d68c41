package hci

import (
	"github.com/pkg/errors"

	"github.com/muxable/linklayer/pkg/gap"
	"github.com/muxable/linklayer/pkg/pdu"
)

// dataLength is the fixed parameter length of the advertising and scan
// response data commands: one length octet and 31 significant octets.
const dataLength = 1 + pdu.MaxAdvData

func marshalData(opcode Opcode, data []byte) ([]byte, error) {
	if len(data) > pdu.MaxAdvData {
		return nil, errors.Errorf("%d bytes of data", len(data))
	}
	buf := newCommand(opcode, dataLength)
	buf[4] = byte(len(data))
	copy(buf[5:], data)
	return buf, nil
}

func unmarshalData(buf []byte, opcode Opcode) ([]byte, error) {
	params, err := command(buf, opcode, dataLength)
	if err != nil {
		return nil, err
	}
	n := int(params[0])
	if n > pdu.MaxAdvData {
		return nil, errors.Errorf("data length %d", n)
	}
	return append([]byte(nil), params[1:1+n]...), nil
}

type LESetAdvertisingDataCommandPacket struct {
	Data []byte
}

func (p *LESetAdvertisingDataCommandPacket) Marshal() ([]byte, error) {
	return marshalData(OpcodeLESetAdvertisingData, p.Data)
}

func (p *LESetAdvertisingDataCommandPacket) Unmarshal(buf []byte) (err error) {
	p.Data, err = unmarshalData(buf, OpcodeLESetAdvertisingData)
	return err
}

func (p *LESetAdvertisingDataCommandPacket) Opcode() Opcode {
	return OpcodeLESetAdvertisingData
}

type LESetScanResponseDataCommandPacket struct {
	Data []byte
}

func (p *LESetScanResponseDataCommandPacket) Marshal() ([]byte, error) {
	return marshalData(OpcodeLESetScanResponseData, p.Data)
}

func (p *LESetScanResponseDataCommandPacket) Unmarshal(buf []byte) (err error) {
	p.Data, err = unmarshalData(buf, OpcodeLESetScanResponseData)
	return err
}

func (p *LESetScanResponseDataCommandPacket) Opcode() Opcode {
	return OpcodeLESetScanResponseData
}

func (h *Host) LESetAdvertisingData(data ...gap.DataType) error {
	b, err := gap.Encode(gap.LegacyBudget, data...)
	if err != nil {
		return err
	}
	_, err = h.op(&LESetAdvertisingDataCommandPacket{Data: b})
	return err
}

func (h *Host) LESetScanResponseData(data ...gap.DataType) error {
	b, err := gap.Encode(gap.LegacyBudget, data...)
	if err != nil {
		return err
	}
	_, err = h.op(&LESetScanResponseDataCommandPacket{Data: b})
	return err
}
