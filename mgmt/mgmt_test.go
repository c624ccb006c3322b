package mgmt_test

import (
	"errors"
	"testing"

	"github.com/usnistgov/xdpfn/core/testenv"
	"github.com/usnistgov/xdpfn/mgmt"
)

var makeAR = testenv.MakeAR

type EchoMgmt struct{}

type EchoArg struct {
	Message string
}

func (EchoMgmt) Echo(args EchoArg, reply *EchoArg) error {
	if args.Message == "" {
		return errors.New("empty message")
	}
	reply.Message = args.Message
	return nil
}

func TestParseURL(t *testing.T) {
	assert, _ := makeAR(t)

	network, addr, e := mgmt.ParseURL("unix:///run/x.sock")
	assert.NoError(e)
	assert.Equal("unix", network)
	assert.Equal("/run/x.sock", addr)

	network, addr, e = mgmt.ParseURL("tcp://127.0.0.1:6345")
	assert.NoError(e)
	assert.Equal("tcp", network)
	assert.Equal("127.0.0.1:6345", addr)

	_, _, e = mgmt.ParseURL("udp://127.0.0.1:6345")
	assert.Error(e)
}

func TestServe(t *testing.T) {
	assert, require := makeAR(t)

	u := "unix://" + testenv.TempName(t, "mgmt.sock")
	t.Setenv(mgmt.EnvMgmt, u)
	assert.Equal(u, mgmt.URL())

	require.NoError(mgmt.Register(EchoMgmt{}))
	require.NoError(mgmt.Start())
	defer mgmt.Stop()
	assert.Error(mgmt.Start())

	client, e := mgmt.Dial("")
	require.NoError(e)
	defer client.Close()

	var reply EchoArg
	require.NoError(client.Call("Echo.Echo", EchoArg{Message: "hello"}, &reply))
	assert.Equal("hello", reply.Message)
	assert.Error(client.Call("Echo.Echo", EchoArg{}, &reply))

	assert.NoError(mgmt.Stop())
	assert.NoError(mgmt.Stop())
}

func TestDisabled(t *testing.T) {
	assert, _ := makeAR(t)

	t.Setenv(mgmt.EnvMgmt, "0")
	assert.NoError(mgmt.Start())
	assert.NoError(mgmt.Stop())
}
