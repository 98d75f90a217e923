package modbus

import (
	"bytes"
	"context"
	"io"
	"net/netip"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// readCapture returns the TCP segments stored in a pcap stream.
func readCapture(t *testing.T, r io.Reader) []*layers.TCP {
	t.Helper()
	reader, err := pcapgo.NewReader(r)
	if err != nil {
		t.Fatalf("open pcap: %v", err)
	}
	var segments []*layers.TCP
	for {
		data, _, err := reader.ReadPacketData()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("read packet: %v", err)
		}
		packet := gopacket.NewPacket(data, layers.LayerTypeEthernet, gopacket.Default)
		tcp, ok := packet.Layer(layers.LayerTypeTCP).(*layers.TCP)
		if !ok {
			t.Fatalf("packet without TCP layer: %v", packet)
		}
		segments = append(segments, tcp)
	}
	return segments
}

func TestCaptureRecorder_IPv4(t *testing.T) {
	var buf bytes.Buffer
	client := netip.MustParseAddrPort("10.0.0.2:50123")
	server := netip.MustParseAddrPort("10.0.0.5:502")
	recorder, err := NewCaptureRecorder(&buf, client, server)
	if err != nil {
		t.Fatalf("NewCaptureRecorder failed: %v", err)
	}

	request, _ := BuildReadHoldingRegisters(1, 1, 0, 3)
	if err := recorder.Record(request.Encode(), holdingRegistersResponse); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	segments := readCapture(t, &buf)
	if len(segments) != 2 {
		t.Fatalf("got %d segments, want 2", len(segments))
	}
	if segments[0].SrcPort != 50123 || segments[0].DstPort != 502 {
		t.Errorf("request ports %d -> %d", segments[0].SrcPort, segments[0].DstPort)
	}
	if segments[1].SrcPort != 502 || segments[1].DstPort != 50123 {
		t.Errorf("response ports %d -> %d", segments[1].SrcPort, segments[1].DstPort)
	}
	assertBytesEqual(t, request.Encode(), segments[0].Payload)
	assertBytesEqual(t, holdingRegistersResponse, segments[1].Payload)
	if segments[1].Ack != segments[0].Seq+uint32(len(segments[0].Payload)) {
		t.Errorf("response acknowledges %d, request ended at %d", segments[1].Ack, segments[0].Seq+uint32(len(segments[0].Payload)))
	}
}

func TestCaptureRecorder_IPv6(t *testing.T) {
	var buf bytes.Buffer
	recorder, err := NewCaptureRecorder(&buf, netip.MustParseAddrPort("[::1]:40000"), netip.MustParseAddrPort("[::1]:502"))
	if err != nil {
		t.Fatalf("NewCaptureRecorder failed: %v", err)
	}
	if err := recorder.Record([]byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x06, 0x01, 0x06, 0x00, 0x01, 0x00, 0x03}, nil); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if segments := readCapture(t, &buf); len(segments) != 1 {
		t.Errorf("got %d segments, want 1", len(segments))
	}
}

func TestClient_CaptureFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.pcap")
	client, _ := newMockClient(t, holdingRegistersResponse, WithCaptureFile(path))

	if outcome := client.ReadHoldingRegisters(0, 3); !outcome.IsGood() {
		t.Fatalf("ReadHoldingRegisters: %v", outcome)
	}
	if !client.Disconnect() {
		t.Fatal("Disconnect failed")
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open capture: %v", err)
	}
	defer file.Close()
	segments := readCapture(t, file)
	if len(segments) != 2 {
		t.Fatalf("got %d segments, want 2", len(segments))
	}
	if segments[0].DstPort != DefaultTCPPort {
		t.Errorf("request sent to port %d", segments[0].DstPort)
	}
}

func TestClient_Recorder(t *testing.T) {
	recorder := &memoryRecorder{}
	client, _ := newMockClient(t, holdingRegistersResponse, WithRecorder(recorder))
	client.ReadHoldingRegisters(0, 3)
	if len(recorder.exchanges) != 1 {
		t.Fatalf("recorded %d exchanges", len(recorder.exchanges))
	}
	assertBytesEqual(t, holdingRegistersResponse, recorder.exchanges[0].response)

	if err := client.Connect(context.Background()); err != nil {
		t.Errorf("second Connect should be a no-op, got %v", err)
	}
}

func TestCaptureRecorder_Checksums(t *testing.T) {
	var buf bytes.Buffer
	recorder, err := NewCaptureRecorder(&buf, netip.MustParseAddrPort("10.0.0.2:50123"), netip.MustParseAddrPort("10.0.0.5:502"))
	if err != nil {
		t.Fatalf("NewCaptureRecorder failed: %v", err)
	}
	request, _ := BuildReadHoldingRegisters(1, 1, 0, 3)
	if err := recorder.Record(request.Encode(), holdingRegistersResponse); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	reader, err := pcapgo.NewReader(&buf)
	if err != nil {
		t.Fatalf("open pcap: %v", err)
	}
	data, _, err := reader.ReadPacketData()
	if err != nil {
		t.Fatalf("read packet: %v", err)
	}
	packet := gopacket.NewPacket(data, layers.LayerTypeEthernet, gopacket.Default)
	ip, ok := packet.Layer(layers.LayerTypeIPv4).(*layers.IPv4)
	if !ok {
		t.Fatal("packet without IPv4 layer")
	}
	tcp := *packet.Layer(layers.LayerTypeTCP).(*layers.TCP)
	if tcp.Checksum == 0 {
		t.Fatal("TCP checksum not computed")
	}

	// Serializing the same segment against the same pseudo header must
	// reproduce the recorded checksum.
	if err := tcp.SetNetworkLayerForChecksum(ip); err != nil {
		t.Fatalf("SetNetworkLayerForChecksum: %v", err)
	}
	out := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(out, opts, &tcp, gopacket.Payload(tcp.Payload)); err != nil {
		t.Fatalf("serialize: %v", err)
	}
	again := gopacket.NewPacket(out.Bytes(), layers.LayerTypeTCP, gopacket.Default)
	recomputed, ok := again.Layer(layers.LayerTypeTCP).(*layers.TCP)
	if !ok {
		t.Fatal("reserialized segment without TCP layer")
	}
	if recomputed.Checksum != tcp.Checksum {
		t.Errorf("checksum: recorded 0x%04X, recomputed 0x%04X", tcp.Checksum, recomputed.Checksum)
	}
}
