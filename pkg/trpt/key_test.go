package trpt

import (
	"crypto/sha256"
	"encoding/binary"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func expectedKey(s string) string {
	sum := sha256.Sum256([]byte(s))
	return strconv.FormatUint(binary.BigEndian.Uint64(sum[:8]), 10)
}

func TestCorrelationKeyPacketReports(t *testing.T) {
	tests := map[string]string{
		"udp4": "00:00:00:00:01:01|5792|192.168.1.10|::",
		"tcp4": "00:00:00:00:01:01|5792|192.168.1.10|::",
		"udp6": "00:00:00:00:01:01|5792|0.0.0.0|0:0:0:0:0:1:1:1d",
		"tcp6": "00:00:00:00:01:01|5792|0.0.0.0|0:0:0:0:0:1:1:1d",
	}
	fixtures := allPacketFixtures()
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			r, err := Decode(fixtures[name].Bytes())
			require.NoError(t, err)
			assert.Equal(t, expectedKey(input), r.CorrelationKey())
		})
	}
}

func TestCorrelationKeyDropReport(t *testing.T) {
	r, err := Decode(dropReportBytes(""))
	require.NoError(t, err)
	assert.Equal(t, sampleDropKey, r.CorrelationKey())
}

func TestCorrelationKeyFollowsFlowFields(t *testing.T) {
	r, err := Decode(udp4().Bytes())
	require.NoError(t, err)
	base := r.CorrelationKey()

	require.NoError(t, r.SetSourcePort(1))
	require.NoError(t, r.SetSourceAddress("10.0.0.1"))
	assert.Equal(t, base, r.CorrelationKey(), "source fields are not part of the key")

	require.NoError(t, r.SetDestinationPort(6789))
	assert.NotEqual(t, base, r.CorrelationKey())
	assert.Equal(t, expectedKey("00:00:00:00:01:01|6789|192.168.1.10|::"), r.CorrelationKey())

	require.NoError(t, r.SetOriginatingMAC("11:11:11:11:00:00"))
	assert.Equal(t, expectedKey("11:11:11:11:00:00|6789|192.168.1.10|::"), r.CorrelationKey())
}

func TestCorrelationKeyIsUnsignedDecimal(t *testing.T) {
	r, err := Decode(udp4().Bytes())
	require.NoError(t, err)

	_, err = strconv.ParseUint(r.CorrelationKey(), 10, 64)
	assert.NoError(t, err)
}
