// Command ptcli is a small diagnostic tool exercising the driver
// directly, without going through the cgo ABI: open the device, read
// its version and battery voltage, connect a channel and dump frames.
// Grounded on the teacher's mbcli command tree (mbcli/mbcli.go), built
// on the same github.com/jessevdk/go-flags command parser.
package main

import (
	"fmt"
	"os"
	"time"

	flags "github.com/jessevdk/go-flags"

	"github.com/macchina-drv/passthru"
)

type cliCommand struct {
	Version VersionCommand `command:"version" description:"Open the device and print its version strings"`
	Battery BatteryCommand `command:"battery" description:"Read the battery voltage"`
	Monitor MonitorCommand `command:"monitor" description:"Connect a channel and dump received frames"`
}

type VersionCommand struct{}

func (c *VersionCommand) Execute(args []string) error {
	id, err := passthru.Open(os.Stderr, nil)
	if err != nil {
		return err
	}
	defer passthru.Close(id)
	d, err := passthru.Handle(id)
	if err != nil {
		return err
	}
	api, dll, fw, err := d.ReadVersion()
	if err != nil {
		return err
	}
	fmt.Printf("api=%s driver=%s firmware=%s\n", api, dll, fw)
	return nil
}

type BatteryCommand struct{}

func (c *BatteryCommand) Execute(args []string) error {
	id, err := passthru.Open(os.Stderr, nil)
	if err != nil {
		return err
	}
	defer passthru.Close(id)
	d, err := passthru.Handle(id)
	if err != nil {
		return err
	}
	mv, err := d.ReadBattery()
	if err != nil {
		return err
	}
	fmt.Printf("%.2f V\n", float64(mv)/1000)
	return nil
}

type MonitorCommand struct {
	Protocol string        `long:"protocol" default:"ISO15765" description:"Protocol to open the channel with"`
	Baud     uint32        `long:"baud" default:"500000" description:"Baud rate"`
	Duration time.Duration `long:"duration" default:"5s" description:"How long to listen before disconnecting"`
}

func (c *MonitorCommand) Execute(args []string) error {
	proto, ok := protocolByName(c.Protocol)
	if !ok {
		return fmt.Errorf("unrecognized protocol %q", c.Protocol)
	}
	id, err := passthru.Open(os.Stderr, nil)
	if err != nil {
		return err
	}
	defer passthru.Close(id)
	d, err := passthru.Handle(id)
	if err != nil {
		return err
	}
	channelID, err := d.Connect(proto, 0, c.Baud)
	if err != nil {
		return err
	}
	defer d.Disconnect(channelID)

	deadline := time.Now().Add(c.Duration)
	for time.Now().Before(deadline) {
		msg, ok, err := d.ReadMsg(channelID)
		if err != nil {
			return err
		}
		if !ok {
			time.Sleep(20 * time.Millisecond)
			continue
		}
		fmt.Printf("[%d] % x\n", msg.TimestampUs, msg.Data)
	}
	return nil
}

func protocolByName(name string) (passthru.Protocol, bool) {
	switch name {
	case "J1850VPW":
		return passthru.ProtocolJ1850VPW, true
	case "J1850PWM":
		return passthru.ProtocolJ1850PWM, true
	case "ISO9141":
		return passthru.ProtocolISO9141, true
	case "ISO14230":
		return passthru.ProtocolISO14230, true
	case "CAN":
		return passthru.ProtocolCAN, true
	case "ISO15765":
		return passthru.ProtocolISO15765, true
	case "SCI_A_ENGINE":
		return passthru.ProtocolSCIAEngine, true
	case "SCI_A_TRANS":
		return passthru.ProtocolSCIATrans, true
	case "SCI_B_ENGINE":
		return passthru.ProtocolSCIBEngine, true
	case "SCI_B_TRANS":
		return passthru.ProtocolSCIBTrans, true
	default:
		return 0, false
	}
}

func main() {
	cmd := cliCommand{}
	parser := flags.NewParser(&cmd, flags.HelpFlag|flags.PassDoubleDash)
	if _, err := parser.Parse(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
