package logging

import (
	"os"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Environment variables that configure log levels.
// EnvPrefix + package name overrides EnvDefault for one package.
const (
	EnvDefault = "XDPFN_LOG"
	EnvPrefix  = "XDPFN_LOG_"
)

// PkgLevel represents log level of a package.
type PkgLevel struct {
	pkg string
	lvl byte
	al  zap.AtomicLevel
}

// Package returns package name.
func (pl PkgLevel) Package() string {
	return pl.pkg
}

// Level returns log level as a letter.
func (pl PkgLevel) Level() byte {
	return pl.lvl
}

// SetLevel assigns log level.
// The first letter selects the level: V or D for debug, I for info, W for warning, E for error,
// F or N for fatal only. Other input selects info.
func (pl *PkgLevel) SetLevel(input string) {
	if len(input) == 0 {
		pl.lvl = 'I'
		pl.al.SetLevel(zap.InfoLevel)
		return
	}

	switch input[0] {
	case 'V', 'D':
		pl.al.SetLevel(zap.DebugLevel)
	case 'I':
		pl.al.SetLevel(zap.InfoLevel)
	case 'W':
		pl.al.SetLevel(zap.WarnLevel)
	case 'E':
		pl.al.SetLevel(zap.ErrorLevel)
	case 'F', 'N':
		pl.al.SetLevel(zap.DPanicLevel)
	default:
		pl.lvl = 'I'
		pl.al.SetLevel(zap.InfoLevel)
		return
	}
	pl.lvl = input[0]
}

var (
	pkgLevelsLock sync.Mutex
	pkgLevels     = map[string]*PkgLevel{}
)

// ListLevels returns all package levels, sorted by package name.
func ListLevels() (list []PkgLevel) {
	pkgLevelsLock.Lock()
	defer pkgLevelsLock.Unlock()
	for _, pl := range pkgLevels {
		list = append(list, *pl)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].pkg < list[j].pkg })
	return list
}

// FindLevel returns package log level object, or nil if the package has no logger.
func FindLevel(pkg string) *PkgLevel {
	pkgLevelsLock.Lock()
	defer pkgLevelsLock.Unlock()
	return pkgLevels[pkg]
}

// GetLevel finds or creates package log level object.
func GetLevel(pkg string) (pl *PkgLevel) {
	pkgLevelsLock.Lock()
	defer pkgLevelsLock.Unlock()
	pl = pkgLevels[pkg]
	if pl == nil {
		pl = &PkgLevel{
			pkg: pkg,
			al:  zap.NewAtomicLevel(),
		}
		pl.SetLevel(envLevel(pkg))
		pkgLevels[pkg] = pl
	}
	return pl
}

func envLevel(pkg string) string {
	v, ok := os.LookupEnv(EnvPrefix + pkg)
	if !ok {
		v = os.Getenv(EnvDefault)
	}
	return v
}
