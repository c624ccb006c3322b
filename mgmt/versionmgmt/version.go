// Package versionmgmt reports service version over management RPC.
package versionmgmt

import (
	"github.com/usnistgov/xdpfn/core/version"
	"github.com/usnistgov/xdpfn/xdp"
)

type VersionMgmt struct{}

func (VersionMgmt) Version(args struct{}, reply *VersionReply) error {
	reply.Version = version.V
	reply.APIVersion = xdp.APIVersionLatest
	return nil
}

type VersionReply struct {
	version.Version
	APIVersion uint32 `json:"apiVersion"`
}
