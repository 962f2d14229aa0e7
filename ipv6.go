package lifx

import "net"

// macToIPv6LinkLocal synthesizes a link-local (or other /64-prefixed)
// address from a MAC via EUI-64: flip the universal/local bit (bit 1) of
// the first octet, insert FF:FE between octets 3 and 4, then prepend
// prefix's first 8 bytes.
func macToIPv6LinkLocal(mac [6]byte, prefix net.IP) net.IP {
	p := prefix.To16()
	if p == nil {
		p = net.ParseIP("fe80::").To16()
	}

	var out [16]byte
	copy(out[:8], p[:8])
	out[8] = mac[0] ^ 0x02
	out[9] = mac[1]
	out[10] = mac[2]
	out[11] = 0xff
	out[12] = 0xfe
	out[13] = mac[3]
	out[14] = mac[4]
	out[15] = mac[5]

	return net.IP(out[:])
}
