package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/vovakirdan/wirechat-presence/internal/core"
)

func TestLine(t *testing.T) {
	tests := []struct {
		name       string
		reading    core.CapacityReading
		wantFilled int
		wantText   []string
	}{
		{name: "thirty percent", reading: core.CapacityReading{CurrentParticipants: 3, MaxParticipants: 10}, wantFilled: 6, wantText: []string{"room 7", "3/10", "30%"}},
		{name: "empty", reading: core.CapacityReading{CurrentParticipants: 0, MaxParticipants: 4}, wantFilled: 0, wantText: []string{"0/4", "0%"}},
		{name: "overfull clamps", reading: core.CapacityReading{CurrentParticipants: 12, MaxParticipants: 10}, wantFilled: barWidth, wantText: []string{"12/10", "120%"}},
		{name: "unknown max", reading: core.CapacityReading{CurrentParticipants: 5}, wantFilled: 0, wantText: []string{"5", "participants"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line := Line(7, tt.reading)
			if got := strings.Count(line, "█"); got != tt.wantFilled {
				t.Errorf("expected %d filled cells, got %d in %q", tt.wantFilled, got, line)
			}
			for _, want := range tt.wantText {
				if !strings.Contains(line, want) {
					t.Errorf("expected %q in %q", want, line)
				}
			}
		})
	}
}

func TestTerminalAndMulti(t *testing.T) {
	var a, b bytes.Buffer
	var seen []core.CapacityReading
	r := Multi{
		NewTerminal(&a),
		nil,
		core.RendererFunc(func(_ int64, reading core.CapacityReading) { seen = append(seen, reading) }),
		NewTerminal(&b),
	}

	r.RenderCapacity(1, core.CapacityReading{CurrentParticipants: 1, MaxParticipants: 2})

	if !strings.Contains(a.String(), "1/2") || a.String() != b.String() {
		t.Fatalf("expected both terminals to render, got %q and %q", a.String(), b.String())
	}
	if !strings.HasSuffix(a.String(), "\n") {
		t.Fatalf("expected a newline terminated line")
	}
	if len(seen) != 1 || seen[0].CurrentParticipants != 1 {
		t.Fatalf("expected func renderer to be called once, got %+v", seen)
	}
}
