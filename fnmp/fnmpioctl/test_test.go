package fnmpioctl_test

import (
	"github.com/usnistgov/xdpfn/core/testenv"
)

var makeAR = testenv.MakeAR
