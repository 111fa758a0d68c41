// Package gap encodes and decodes the GAP advertising data structures carried
// in AdvData and ScanRspData.
package gap

import (
	"unicode/utf8"

	"github.com/google/uuid"
)

// NameAndServices builds the advertising and scan response payloads of a
// general discoverable LE-only peripheral. Service UUIDs go into the
// advertising data, marked incomplete when they do not all fit. The name goes
// into the advertising data if there is room left, otherwise into the scan
// response, shortened if necessary.
func NameAndServices(name string, services ...uuid.UUID) (adv, rsp []byte, err error) {
	adv, err = Encode(LegacyBudget, FlagsLEGeneralDiscoverableMode|FlagsBREDRNotSupported)
	if err != nil {
		return nil, nil, err
	}

	var s16 []uint16
	var s128 []uuid.UUID
	for _, u := range services {
		if v, ok := Short(u); ok && v <= 0xFFFF {
			s16 = append(s16, uint16(v))
		} else {
			s128 = append(s128, u)
		}
	}

	adv = appendList(adv, TypeCompleteUUID16, TypeIncompleteUUID16, 2, appendUUID16(nil, s16))
	adv = appendList(adv, TypeCompleteUUID128, TypeIncompleteUUID128, 16, appendUUID128(nil, s128))

	if name == "" {
		return adv, nil, nil
	}
	if len(adv)+2+len(name) <= LegacyBudget {
		adv, err = AppendEncode(adv, LegacyBudget, CompleteLocalName(name))
		return adv, nil, err
	}
	if 2+len(name) <= LegacyBudget {
		rsp, err = Encode(LegacyBudget, CompleteLocalName(name))
		return adv, rsp, err
	}
	rsp, err = Encode(LegacyBudget, ShortLocalName(truncate(name, LegacyBudget-2)))
	return adv, rsp, err
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// appendList adds as many w-byte UUIDs from v as fit in the legacy budget,
// switching to the incomplete type when some are left out.
func appendList(adv []byte, complete, incomplete Type, w int, v []byte) []byte {
	if len(v) == 0 {
		return adv
	}
	room := (LegacyBudget - len(adv) - 2) / w * w
	if room <= 0 {
		return adv
	}
	t := complete
	if len(v) > room {
		t, v = incomplete, v[:room]
	}
	ad, _ := Structure{t, v}.Marshal()
	return append(adv, ad...)
}
