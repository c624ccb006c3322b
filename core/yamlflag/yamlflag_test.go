package yamlflag_test

import (
	"flag"
	"os"
	"testing"

	"github.com/usnistgov/xdpfn/core/testenv"
	"github.com/usnistgov/xdpfn/core/yamlflag"
)

type sampleConfig struct {
	Device   string `yaml:"device"`
	Adapters []struct {
		IfIndex uint32 `yaml:"ifindex"`
		MTU     int    `yaml:"mtu"`
	} `yaml:"adapters"`
}

func TestYamlFlag(t *testing.T) {
	assert, require := testenv.MakeAR(t)

	var cfg sampleConfig
	fs := flag.NewFlagSet("", flag.ContinueOnError)
	fs.Var(yamlflag.New(&cfg), "config", "")

	require.NoError(fs.Parse([]string{"--config", "{device: /tmp/x.sock, adapters: [{ifindex: 7, mtu: 1500}]}"}))
	assert.Equal("/tmp/x.sock", cfg.Device)
	require.Len(cfg.Adapters, 1)
	assert.EqualValues(7, cfg.Adapters[0].IfIndex)

	filename := testenv.TempName(t, "config.yaml")
	require.NoError(os.WriteFile(filename, []byte("device: /run/fnmp.sock\nadapters:\n  - ifindex: 9\n    mtu: 9000\n"), 0o644))
	cfg = sampleConfig{}
	require.NoError(fs.Parse([]string{"--config", "@" + filename}))
	assert.Equal("/run/fnmp.sock", cfg.Device)
	require.Len(cfg.Adapters, 1)
	assert.Equal(9000, cfg.Adapters[0].MTU)

	assert.Error(fs.Parse([]string{"--config", "@" + filename + ".missing"}))

	assert.Panics(func() { yamlflag.New(cfg) })
}
