package capture

import (
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
	"golang.org/x/net/bpf"

	"otus.dev/agent/internal/utils"
)

const defaultSnapLen = 65535

// liveReader wraps a pcap handle filtered to one TCP port, decoding each
// captured packet's Ethernet/IPv4/TCP layers and handing the payload plus
// 4-tuple to onPayload.
type liveReader struct {
	handle *pcap.Handle
	port   int
}

func newLiveReader(iface string, port, snapLen int) (*liveReader, error) {
	if snapLen <= 0 {
		snapLen = defaultSnapLen
	}
	handle, err := pcap.OpenLive(iface, int32(snapLen), true, pcap.BlockForever)
	if err != nil {
		return nil, fmt.Errorf("capture: open %s: %w", iface, err)
	}

	filter := fmt.Sprintf("tcp and port %d", port)
	raw, err := utils.CompileBpf(filter, snapLen)
	if err != nil {
		handle.Close()
		return nil, err
	}
	if err := handle.SetBPFInstructionFilter(toPcapBPF(raw)); err != nil {
		handle.Close()
		return nil, fmt.Errorf("capture: apply BPF filter: %w", err)
	}

	return &liveReader{handle: handle, port: port}, nil
}

func (r *liveReader) close() {
	r.handle.Close()
}

// run decodes packets until stop closes or the handle errors out, invoking
// onPayload for every TCP segment carrying payload bytes.
func (r *liveReader) run(stop <-chan struct{}, onPayload func(tuple FourTuple, direction Direction, payload []byte)) error {
	var eth layers.Ethernet
	var ip4 layers.IPv4
	var tcp layers.TCP
	parser := gopacket.NewDecodingLayerParser(layers.LayerTypeEthernet, &eth, &ip4, &tcp)
	decoded := make([]gopacket.LayerType, 0, 3)

	source := gopacket.NewPacketSource(r.handle, r.handle.LinkType())
	packets := source.Packets()

	for {
		select {
		case <-stop:
			return nil
		case pkt, ok := <-packets:
			if !ok {
				return nil
			}
			// DecodeLayers reports an unsupported-layer error once it reaches
			// the TCP payload, so the decoded layer list decides instead.
			_ = parser.DecodeLayers(pkt.Data(), &decoded)
			if !containsTCP(decoded) {
				continue
			}
			payload := tcp.LayerPayload()
			if len(payload) == 0 {
				continue
			}
			tuple := FourTuple{
				SrcIP:   ip4.SrcIP.String(),
				DstIP:   ip4.DstIP.String(),
				SrcPort: uint16(tcp.SrcPort),
				DstPort: uint16(tcp.DstPort),
			}
			dir := RecvDir
			if int(tcp.DstPort) == r.port {
				dir = SendDir
			}
			onPayload(tuple, dir, payload)
		}
	}
}

func containsTCP(decoded []gopacket.LayerType) bool {
	for _, t := range decoded {
		if t == layers.LayerTypeTCP {
			return true
		}
	}
	return false
}

func toPcapBPF(raw []bpf.RawInstruction) []pcap.BPFInstruction {
	out := make([]pcap.BPFInstruction, len(raw))
	for i, ins := range raw {
		out[i] = pcap.BPFInstruction{Code: ins.Op, Jt: ins.Jt, Jf: ins.Jf, K: ins.K}
	}
	return out
}
