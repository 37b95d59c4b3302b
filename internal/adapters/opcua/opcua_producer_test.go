package opcua

import (
	"math"
	"testing"

	"github.com/gopcua/opcua/ua"
	"github.com/stretchr/testify/require"

	"github.com/ghalamif/streamwindow/internal/domain"
)

func TestConfigDefaults(t *testing.T) {
	cfg := Config{
		Endpoint: "opc.tcp://localhost:4840",
		Nodes:    []NodeConfig{{NodeID: "ns=2;i=7"}, {NodeID: "ns=2;s=Temp", Label: "TEMP"}},
	}
	cfg.ApplyDefaults()

	require.Equal(t, "None", cfg.SecurityMode)
	require.Equal(t, "streamwindow", cfg.ApplicationName)
	require.Equal(t, "ns=2;i=7", cfg.Nodes[0].Label)
	require.Equal(t, "TEMP", cfg.Nodes[1].Label)
}

func TestConfigValidate(t *testing.T) {
	_, err := NewProducer(Config{})
	require.Error(t, err)

	_, err = NewProducer(Config{Endpoint: "opc.tcp://x:4840"})
	require.Error(t, err)

	_, err = NewProducer(Config{Endpoint: "opc.tcp://x:4840", Nodes: []NodeConfig{{NodeID: "ns=2;s=A", Label: "a:b"}}})
	require.Error(t, err, "labels with ':' would be ambiguous to decode")
}

func TestVariantToInt(t *testing.T) {
	cases := []struct {
		in   any
		want int64
		ok   bool
	}{
		{int32(-5), -5, true},
		{uint16(7), 7, true},
		{float64(41.6), 42, true},
		{float32(-1.5), -2, true},
		{true, 1, true},
		{uint64(math.MaxUint64), 0, false},
		{math.NaN(), 0, false},
		{"text", 0, false},
	}
	for _, tc := range cases {
		got, ok := variantToInt(ua.MustVariant(tc.in))
		require.Equal(t, tc.ok, ok, "%v", tc.in)
		require.Equal(t, tc.want, got, "%v", tc.in)
	}
	_, ok := variantToInt(nil)
	require.False(t, ok)
}

func TestFormatPayload(t *testing.T) {
	require.Equal(t, []byte("TEMP:-3"), formatPayload("TEMP", -3))
}

func TestSendControlWithoutSession(t *testing.T) {
	p, err := NewProducer(Config{Endpoint: "opc.tcp://x:4840", Nodes: []NodeConfig{{NodeID: "ns=2;s=A"}}})
	require.NoError(t, err)
	require.ErrorIs(t, p.SendControl(1), domain.ErrControlUnsupported)
	require.NoError(t, p.Stop())

	p, err = NewProducer(Config{Endpoint: "opc.tcp://x:4840", ControlNodeID: "ns=2;s=Led", Nodes: []NodeConfig{{NodeID: "ns=2;s=A"}}})
	require.NoError(t, err)
	require.ErrorIs(t, p.SendControl(1), domain.ErrProducerClosed)
}
