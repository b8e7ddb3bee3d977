//go:build linux

package pwm

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// Pin drives one channel of a sysfs pwmchip.
type Pin struct {
	chipPath string
	channel  string
	periodNs uint32
	maxDuty  uint32
}

// NewPin exports the channel on the given pwmchip, programs the period
// and enables the output at duty 0. periodNs is the PWM period in
// nanoseconds (40000 for the usual 25kHz fan control carrier); maxDuty
// is the scale WriteDuty values are expressed in.
func NewPin(chip, channel int, periodNs, maxDuty uint32) (*Pin, error) {
	if periodNs == 0 || maxDuty == 0 {
		return nil, fmt.Errorf("pwm: period and max duty must be positive")
	}
	p := &Pin{
		chipPath: "/sys/class/pwm/pwmchip" + strconv.Itoa(chip),
		channel:  strconv.Itoa(channel),
		periodNs: periodNs,
		maxDuty:  maxDuty,
	}

	if err := p.export(); err != nil {
		return nil, fmt.Errorf("export pwm %d/%d: %w", chip, channel, err)
	}
	if err := p.writeAttr("period", strconv.FormatUint(uint64(periodNs), 10)); err != nil {
		return nil, fmt.Errorf("set pwm %d/%d period: %w", chip, channel, err)
	}
	if err := p.WriteDuty(0); err != nil {
		return nil, fmt.Errorf("zero pwm %d/%d duty: %w", chip, channel, err)
	}
	if err := p.writeAttr("enable", "1"); err != nil {
		return nil, fmt.Errorf("enable pwm %d/%d: %w", chip, channel, err)
	}
	return p, nil
}

func (p *Pin) export() error {
	err := os.WriteFile(p.chipPath+"/export", []byte(p.channel), 0644)
	if err != nil {
		// Re-exporting an already exported channel reports EBUSY.
		e, ok := err.(*os.PathError)
		if !ok || e.Err != syscall.EBUSY {
			return err
		}
	}

	// The pwmN directory appears asynchronously after export.
	time.Sleep(200 * time.Millisecond)
	return nil
}

func (p *Pin) pinDir() string {
	return p.chipPath + "/pwm" + p.channel
}

func (p *Pin) writeAttr(name, value string) error {
	return os.WriteFile(p.pinDir()+"/"+name, []byte(value), 0644)
}

// WriteDuty scales duty from the 0..maxDuty range onto the period and
// writes it. Values above maxDuty are capped.
func (p *Pin) WriteDuty(duty uint32) error {
	if duty > p.maxDuty {
		duty = p.maxDuty
	}
	ns := (uint64(p.periodNs)*uint64(duty) + uint64(p.maxDuty)/2) / uint64(p.maxDuty)
	return p.writeAttr("duty_cycle", strconv.FormatUint(ns, 10))
}

// ReadDuty reads the duty_cycle attribute back and rescales it to the
// 0..maxDuty range.
func (p *Pin) ReadDuty() (uint32, error) {
	buf, err := os.ReadFile(p.pinDir() + "/duty_cycle")
	if err != nil {
		return 0, err
	}
	ns, err := strconv.ParseUint(strings.TrimRight(string(buf), "\n"), 10, 64)
	if err != nil {
		return 0, err
	}
	return uint32((ns*uint64(p.maxDuty) + uint64(p.periodNs)/2) / uint64(p.periodNs)), nil
}

// Close disables the output and unexports the channel.
func (p *Pin) Close() error {
	if err := p.writeAttr("enable", "0"); err != nil {
		return err
	}
	return os.WriteFile(p.chipPath+"/unexport", []byte(p.channel), 0644)
}
