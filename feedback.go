package main

import (
	"fmt"
	"strings"

	"procon2-haptics/haptics"
	"procon2-haptics/procon"
)

// buttonFeedback maps controller buttons to feedback in daemon mode
var buttonFeedback = map[procon.Button]string{
	procon.ButtonA:       "light",
	procon.ButtonB:       "medium",
	procon.ButtonX:       "heavy",
	procon.ButtonY:       "rigid",
	procon.ButtonL:       "soft",
	procon.ButtonR:       "selection",
	procon.ButtonPlus:    "success",
	procon.ButtonMinus:   "warning",
	procon.ButtonHome:    "error",
	procon.ButtonZL:      "transient",
	procon.ButtonZR:      "continuous",
	procon.ButtonUp:      "heartbeat",
	procon.ButtonRight:   "double_tap",
	procon.ButtonDown:    "ramp_up",
	procon.ButtonCapture: "stop",
}

func parsePlays(s string) ([]string, error) {
	var plays []string
	for _, name := range strings.Split(s, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if !haptics.IsFeedbackName(name) {
			return nil, fmt.Errorf("unknown feedback %q (want one of %s)",
				name, strings.Join(haptics.FeedbackNames(), ", "))
		}
		plays = append(plays, name)
	}
	return plays, nil
}
