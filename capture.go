package modbus

import (
	"fmt"
	"io"
	"net/netip"
	"os"
	"sync"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

const captureSnapLen = 65535

// CaptureRecorder writes every exchange as a pair of TCP segments to a pcap
// stream, so sessions can be inspected with Wireshark. The Ethernet, IP and
// TCP headers are synthesized from the connection endpoints.
type CaptureRecorder struct {
	mu        sync.Mutex
	writer    *pcapgo.Writer
	closer    io.Closer
	client    netip.AddrPort
	server    netip.AddrPort
	clientSeq uint32
	serverSeq uint32
	now       func() time.Time
}

// NewCaptureRecorder writes the pcap file header to w.
func NewCaptureRecorder(w io.Writer, client, server netip.AddrPort) (*CaptureRecorder, error) {
	writer := pcapgo.NewWriter(w)
	if err := writer.WriteFileHeader(captureSnapLen, layers.LinkTypeEthernet); err != nil {
		return nil, fmt.Errorf("modbus: write pcap header: %w", err)
	}
	return &CaptureRecorder{
		writer:    writer,
		client:    client,
		server:    server,
		clientSeq: 1,
		serverSeq: 1,
		now:       time.Now,
	}, nil
}

// CreateCaptureFile creates (or truncates) path and records into it.
func CreateCaptureFile(path string, client, server netip.AddrPort) (*CaptureRecorder, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("modbus: create pcap: %w", err)
	}
	r, err := NewCaptureRecorder(file, client, server)
	if err != nil {
		file.Close()
		return nil, err
	}
	r.closer = file
	return r, nil
}

// Record writes request as a client to server segment and response as the answer.
func (r *CaptureRecorder) Record(request, response []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.writeSegment(r.client, r.server, r.clientSeq, r.serverSeq, request); err != nil {
		return err
	}
	r.clientSeq += uint32(len(request))
	if len(response) == 0 {
		return nil
	}
	if err := r.writeSegment(r.server, r.client, r.serverSeq, r.clientSeq, response); err != nil {
		return err
	}
	r.serverSeq += uint32(len(response))
	return nil
}

func (r *CaptureRecorder) writeSegment(src, dst netip.AddrPort, seq, ack uint32, data []byte) error {
	tcp := &layers.TCP{
		SrcPort: layers.TCPPort(src.Port()),
		DstPort: layers.TCPPort(dst.Port()),
		ACK:     true,
		PSH:     true,
		Seq:     seq,
		Ack:     ack,
		Window:  65535,
	}
	ethernet := &layers.Ethernet{
		SrcMAC: []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x01},
		DstMAC: []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x02},
	}

	var network gopacket.SerializableLayer
	if src.Addr().Is4() && dst.Addr().Is4() {
		s, d := src.Addr().As4(), dst.Addr().As4()
		ip := &layers.IPv4{
			Version:  4,
			TTL:      64,
			Protocol: layers.IPProtocolTCP,
			SrcIP:    s[:],
			DstIP:    d[:],
		}
		ethernet.EthernetType = layers.EthernetTypeIPv4
		if err := tcp.SetNetworkLayerForChecksum(ip); err != nil {
			return fmt.Errorf("modbus: tcp checksum layer: %w", err)
		}
		network = ip
	} else {
		s, d := src.Addr().As16(), dst.Addr().As16()
		ip := &layers.IPv6{
			Version:    6,
			HopLimit:   64,
			NextHeader: layers.IPProtocolTCP,
			SrcIP:      s[:],
			DstIP:      d[:],
		}
		ethernet.EthernetType = layers.EthernetTypeIPv6
		if err := tcp.SetNetworkLayerForChecksum(ip); err != nil {
			return fmt.Errorf("modbus: tcp checksum layer: %w", err)
		}
		network = ip
	}

	buffer := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buffer, opts, ethernet, network, tcp, gopacket.Payload(data)); err != nil {
		return fmt.Errorf("modbus: serialize packet: %w", err)
	}
	packet := buffer.Bytes()
	if err := r.writer.WritePacket(gopacket.CaptureInfo{
		Timestamp:     r.now(),
		CaptureLength: len(packet),
		Length:        len(packet),
	}, packet); err != nil {
		return fmt.Errorf("modbus: write packet: %w", err)
	}
	return nil
}

// Close closes the capture file, if the recorder owns one.
func (r *CaptureRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closer == nil {
		return nil
	}
	err := r.closer.Close()
	r.closer = nil
	return err
}
