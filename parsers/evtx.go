package parsers

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/0xrawsec/golang-evtx/evtx"
)

// EVTX path definitions for elements not exported by the library.
var (
	computerPath  = evtx.Path("/Event/System/Computer")
	providerPath  = evtx.Path("/Event/System/Provider/Name")
	eventDataPath = evtx.Path("/Event/EventData")
)

// ReadEvtxPayloads converts a Windows Event Log export (.evtx) into
// key=value payload lines, one per event, in the shape a QRadar forwarder
// would produce. Each line feeds the normal analysis pipeline.
func ReadEvtxPayloads(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open EVTX file: %w", err)
	}
	defer file.Close()

	ef, err := evtx.New(file)
	if err != nil {
		return nil, fmt.Errorf("failed to parse EVTX file: %w", err)
	}

	var payloads []string
	for e := range ef.FastEvents() {
		if line := evtxEventToPayload(e); line != "" {
			payloads = append(payloads, line)
		}
	}
	return payloads, nil
}

// evtxEventToPayload renders one event as a payload line. System fields
// come first in a fixed order, EventData fields follow sorted by name so
// the output is deterministic.
func evtxEventToPayload(e *evtx.GoEvtxMap) string {
	if e == nil {
		return ""
	}

	var b strings.Builder
	writeField := func(key, value string) {
		if value == "" {
			return
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		// Embedded whitespace is collapsed: the tokenizer treats anything
		// containing '=' as a key boundary, so values stay single-token
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(strings.Join(strings.Fields(value), "_"))
	}

	if t, err := e.GetTime(&evtx.SystemTimePath); err == nil {
		writeField("TimeGenerated", t.UTC().Format("2006-01-02T15:04:05"))
	}
	if id, err := e.GetInt(&evtx.EventIDPath); err == nil {
		writeField("EventID", fmt.Sprintf("%d", id))
	}
	if channel, err := e.GetString(&evtx.ChannelPath); err == nil {
		writeField("LogSource", channel)
	}
	if provider, err := e.GetString(&providerPath); err == nil {
		writeField("Source", provider)
	}
	if computer, err := e.GetString(&computerPath); err == nil {
		writeField("Computer", computer)
	}
	if userID, err := e.GetString(&evtx.UserIDPath); err == nil {
		writeField("User", userID)
	}

	// EventData carries the event-specific fields (account names, source
	// addresses, logon types...)
	if data, err := e.GetMap(&eventDataPath); err == nil && data != nil {
		keys := make([]string, 0, len(*data))
		for k := range *data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			writeField(k, fmt.Sprintf("%v", (*data)[k]))
		}
	}

	return b.String()
}
