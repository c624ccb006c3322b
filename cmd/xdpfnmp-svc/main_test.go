package main

import (
	"net"
	"path/filepath"
	"testing"

	"github.com/usnistgov/xdpfn/core/testenv"
	"github.com/usnistgov/xdpfn/fnmp"
	"github.com/usnistgov/xdpfn/xdp"
)

func TestServiceCloseTwice(t *testing.T) {
	assert, require := testenv.MakeAR(t)

	var svc service
	svc.platform = xdp.NewPlatform(xdp.PlatformConfig{})
	svc.miniport = fnmp.New(fnmp.Config{Platform: svc.platform})
	_, e := svc.miniport.AddAdapter(fnmp.AdapterConfig{IfIndex: 2})
	require.NoError(e)
	svc.listener, e = net.Listen("unix", filepath.Join(t.TempDir(), "fnmp.sock"))
	require.NoError(e)

	// run() may close on the signal path and again in its deferred cleanup
	assert.NoError(svc.Close())
	assert.NoError(svc.Close())
	assert.Nil(svc.miniport.Adapter(2))
	_, e = svc.listener.Accept()
	assert.Error(e)
}
