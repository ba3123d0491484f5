package trpt

import "firestige.xyz/trpt/pkg/trpt/trpttest"

const (
	samplePayload = trpttest.Payload
	sampleDropKey = trpttest.DropKey
)

type packetFixture = trpttest.Packet

var (
	udp4              = trpttest.UDP4
	allPacketFixtures = trpttest.Packets
	dropReportBytes   = trpttest.Drop
)
