// Package meshpacket implements the wire codec for domain.Packet, the
// optional fixed-bucket padding scheme, and message fragmentation /
// reassembly for packets larger than a link's MTU.
package meshpacket
