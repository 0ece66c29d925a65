//go:build !darwin && !windows

package main

// Registers the rtmidi backend used by the portable port driver.
import _ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
