package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/XC-/peripheral"
	"github.com/XC-/peripheral/config"
	"github.com/XC-/peripheral/event"
	"github.com/XC-/peripheral/service"
	"github.com/XC-/peripheral/sim"
	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the peripheral against a simulated central",
	Long: `Bring a peripheral up on the in-memory host and run a short session:
power on, start, advertise, connect a central, subscribe, perform a long
write, update notifying characteristics and disconnect.

Without --profile the built-in count and battery services are used.`,
	RunE: runRun,
}

var (
	runUpdates int
	runFail    int
)

func init() {
	runCmd.Flags().IntVarP(&runUpdates, "updates", "n", 3, "Number of characteristic updates to send")
	runCmd.Flags().IntVar(&runFail, "fail-advertising", 0, "Platform status to fail advertising with")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cmd.SilenceUsage = true

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	out := &printer{w: cmd.OutOrStdout()}
	logger := cfg.NewLogger()
	logger.SetOutput(cmd.ErrOrStderr())
	return session(ctx, cfg, logger, out)
}

// session runs the scripted session and reports each step to out.
func session(ctx context.Context, cfg *config.Config, logger *logrus.Logger, out *printer) error {
	host := sim.New(logger)
	host.FailAdvertising(runFail)
	dev := peripheral.NewDevice(host, cfg.Options(logger, out)...)
	host.Attach(dev)

	var counter *service.Counter
	if len(cfg.Services) == 0 {
		var err error
		if counter, err = service.AddCounter(dev); err != nil {
			return err
		}
		if err := service.AddBattery(dev, 100); err != nil {
			return err
		}
	} else if err := cfg.Apply(dev); err != nil {
		return err
	}

	host.SetRadioState(peripheral.StatePoweredOn)
	startCtx, cancel := context.WithTimeout(ctx, cfg.StartTimeout)
	defer cancel()
	if err := dev.Start(startCtx); err != nil {
		out.step("start", err)
		return err
	}
	out.step("start", nil)

	adv, err := cfg.AdvertisingConfig()
	if err != nil {
		return err
	}
	if err := dev.StartAdvertising(startCtx, adv); err != nil {
		out.step("advertise", err)
		return err
	}
	out.step("advertise", nil)

	central := sim.NewCentral("central-1", dev)
	central.MTU = 64
	central.Connect()

	for _, c := range notifying(dev) {
		t := peripheral.Target{Characteristic: peripheral.MustParseUUID(c.UUID)}
		out.step("subscribe "+short(c.UUID), central.Subscribe(t))
	}
	for _, c := range writable(dev) {
		t := peripheral.Target{Characteristic: peripheral.MustParseUUID(c.UUID)}
		value := []byte(fmt.Sprintf("written by %s at %s", central.ID, time.Now().Format(time.RFC3339)))
		out.step("long write "+short(c.UUID), central.LongWrite(t, value))
	}

	for i := 0; i < runUpdates; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if counter != nil {
			n, ok, err := counter.Incr(ctx)
			out.step(fmt.Sprintf("count %d sent=%t", n, ok), err)
			continue
		}
		for _, c := range notifying(dev) {
			ok, err := dev.UpdateCharacteristic(ctx, nil, peripheral.MustParseUUID(c.UUID), []byte{byte(i)})
			out.step(fmt.Sprintf("update %s sent=%t", short(c.UUID), ok), err)
		}
	}

	central.Disconnect()
	return dev.Stop()
}

func notifying(d *peripheral.Device) []peripheral.CharacteristicInfo {
	var cc []peripheral.CharacteristicInfo
	all, _ := d.Characteristics(nil)
	for _, c := range all {
		if c.Properties&(ble.CharNotify|ble.CharIndicate) != 0 {
			cc = append(cc, c)
		}
	}
	return cc
}

func writable(d *peripheral.Device) []peripheral.CharacteristicInfo {
	var cc []peripheral.CharacteristicInfo
	all, _ := d.Characteristics(nil)
	for _, c := range all {
		if c.Permissions&peripheral.PermWrite != 0 {
			cc = append(cc, c)
		}
	}
	return cc
}

// short returns the 16-bit part of a SIG UUID, or the first group of
// a custom one.
func short(u string) string {
	if len(u) == 36 && u[8:] == "-0000-1000-8000-00805f9b34fb" {
		return u[4:8]
	}
	return u[:8]
}

var _ event.Sink = (*printer)(nil)
