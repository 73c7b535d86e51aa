//go:build !linux

package board

import (
	"github.com/pkg/errors"
)

func powerOff() error {
	return errors.New("power off is only supported on linux")
}
