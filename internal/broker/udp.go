package broker

import (
	"net"

	"go.uber.org/zap"

	"github.com/tideline-io/tideline/internal/wire"
)

// legacyUDPPacketSize bounds a single delete-stream datagram: one command
// byte plus the 4-byte stream id body.
const legacyUDPPacketSize = 1 + 4

// StartUDP opens the legacy delete-stream UDP listener. Every datagram is
// one command byte (wire.DeleteStreamCommandId) followed by a
// little-endian stream id; a successful delete is answered with
// wire.StatusOK and anything else is dropped silently, matching the
// fire-and-forget nature of the original protocol.
func (b *Broker) StartUDP(addr string) error {
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return err
	}

	b.Logger.Info("legacy udp listener started", zap.String("addr", addr))

	go func() {
		<-b.quit
		conn.Close()
	}()

	buf := make([]byte, legacyUDPPacketSize)
	for {
		n, peer, err := conn.ReadFrom(buf)
		if err != nil {
			select {
			case <-b.quit:
				return nil
			default:
				b.Logger.Warn("udp read error", zap.Error(err))
				continue
			}
		}
		b.handleLegacyUDPPacket(conn, peer, buf[:n])
	}
}

func (b *Broker) handleLegacyUDPPacket(conn net.PacketConn, peer net.Addr, packet []byte) {
	if len(packet) < 1 || packet[0] != wire.DeleteStreamCommandId {
		return
	}
	streamID, err := wire.DecodeDeleteStreamUDP(packet[1:])
	if err != nil {
		b.Logger.Debug("malformed legacy udp packet", zap.Error(err))
		return
	}
	if err := b.System.DeleteStream(defaultUserID, streamID); err != nil {
		b.Logger.Debug("legacy delete-stream failed", zap.Uint32("stream_id", streamID), zap.Error(err))
		return
	}
	if _, err := conn.WriteTo(wire.StatusOK, peer); err != nil {
		b.Logger.Warn("udp write response failed", zap.Error(err))
	}
}
