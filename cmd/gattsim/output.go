package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/XC-/peripheral"
	"github.com/XC-/peripheral/event"
	"github.com/fatih/color"
	"github.com/go-ble/ble"
)

var (
	stateColor = color.New(color.FgHiCyan)
	peerColor  = color.New(color.FgHiGreen)
	writeColor = color.New(color.FgHiMagenta)
	readyColor = color.New(color.FgHiYellow)
	errColor   = color.New(color.FgHiRed)
)

// printer is an event.Sink writing one coloured line per event.
type printer struct {
	mu sync.Mutex
	w  io.Writer
}

func (p *printer) Emit(e event.Event) {
	c := stateColor
	switch e.Kind {
	case event.PeerConnected, event.PeerDisconnected, event.Subscribed, event.Unsubscribed:
		c = peerColor
	case event.CharacteristicWritten:
		c = writeColor
	case event.NotificationReady:
		c = readyColor
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	c.Fprintln(p.w, e.String())
}

// step prints a scripted action and its outcome.
func (p *printer) step(name string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		errColor.Fprintf(p.w, "%-28s %v\n", name, err)
		return
	}
	fmt.Fprintf(p.w, "%-28s ok\n", name)
}

// printTable writes the attribute handle table.
func printTable(w io.Writer, tbl *peripheral.HandleTable) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "HANDLE\tTYPE\tUUID\tPROPS\tVALUE")
	for _, h := range tbl.Handles() {
		props := ""
		if h.Type == peripheral.CharacteristicHandle {
			props = propString(h.Props)
		}
		fmt.Fprintf(tw, "0x%04X\t%s\t%s\t%s\t%x\n", h.N, h.Type, peripheral.CanonicalUUID(h.UUID), props, h.Value)
	}
	return tw.Flush()
}

var propNames = []struct {
	p    ble.Property
	name string
}{
	{ble.CharBroadcast, "broadcast"},
	{ble.CharRead, "read"},
	{ble.CharWriteNR, "write-nr"},
	{ble.CharWrite, "write"},
	{ble.CharNotify, "notify"},
	{ble.CharIndicate, "indicate"},
	{ble.CharSignedWrite, "signed"},
	{ble.CharExtended, "extended"},
}

func propString(p ble.Property) string {
	var ss []string
	for _, n := range propNames {
		if p&n.p != 0 {
			ss = append(ss, n.name)
		}
	}
	return strings.Join(ss, ",")
}
