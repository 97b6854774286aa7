package procon

import (
	"errors"
	"fmt"
	"os"
)

// Button is one controller button
type Button string

const (
	ButtonA       Button = "A"
	ButtonB       Button = "B"
	ButtonX       Button = "X"
	ButtonY       Button = "Y"
	ButtonL       Button = "L"
	ButtonR       Button = "R"
	ButtonZL      Button = "ZL"
	ButtonZR      Button = "ZR"
	ButtonUp      Button = "UP"
	ButtonDown    Button = "DOWN"
	ButtonLeft    Button = "LEFT"
	ButtonRight   Button = "RIGHT"
	ButtonPlus    Button = "+"
	ButtonMinus   Button = "-"
	ButtonHome    Button = "HOME"
	ButtonCapture Button = "CAPTURE"
)

// ButtonState is the set of buttons held in one input report
type ButtonState map[Button]bool

// JustPressed returns buttons held in s but not in prev
func (s ButtonState) JustPressed(prev ButtonState) []Button {
	var pressed []Button
	for _, b := range buttonOrder {
		if s[b] && !prev[b] {
			pressed = append(pressed, b)
		}
	}
	return pressed
}

// report byte, bit, button
var buttonLayout = []struct {
	offset int
	mask   byte
	button Button
}{
	{3, 0x01, ButtonB},
	{3, 0x02, ButtonA},
	{3, 0x04, ButtonY},
	{3, 0x08, ButtonX},
	{3, 0x10, ButtonR},
	{3, 0x20, ButtonZR},
	{3, 0x40, ButtonPlus},
	{4, 0x01, ButtonDown},
	{4, 0x02, ButtonRight},
	{4, 0x04, ButtonLeft},
	{4, 0x08, ButtonUp},
	{4, 0x10, ButtonL},
	{4, 0x20, ButtonZL},
	{4, 0x40, ButtonMinus},
	{5, 0x01, ButtonHome},
	{5, 0x02, ButtonCapture},
}

var buttonOrder = func() []Button {
	order := make([]Button, len(buttonLayout))
	for i, l := range buttonLayout {
		order[i] = l.button
	}
	return order
}()

// ParseButtons decodes the button bytes of an input report
func ParseButtons(rep []byte) ButtonState {
	state := ButtonState{}
	for _, l := range buttonLayout {
		if len(rep) > l.offset && rep[l.offset]&l.mask != 0 {
			state[l.button] = true
		}
	}
	return state
}

// InputReader reads button reports from the hidraw node
type InputReader struct {
	file   *os.File
	buffer [64]byte
}

func NewInputReader(hidPath string) (*InputReader, error) {
	f, err := os.OpenFile(hidPath, os.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("open hidraw: %w", err)
	}
	return &InputReader{file: f}, nil
}

func (r *InputReader) Close() error {
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}

// ReadButtons blocks until the next report arrives
func (r *InputReader) ReadButtons() (ButtonState, error) {
	n, err := r.file.Read(r.buffer[:])
	if err != nil {
		return nil, err
	}
	if n < 6 {
		return nil, errors.New("report too short")
	}
	return ParseButtons(r.buffer[:n]), nil
}
