package trace

import "testing"

func TestFormatSwitch(t *testing.T) {
	got := Format(Event{Kind: KindSwitch, From: 1, Task: 2, Prio: 3, Tick: 42})
	want := "sched: switch from=1 to=2 prio=3 tick=42"
	if got != want {
		t.Fatalf("Format() = %q, want %q", got, want)
	}
}

func TestParseSkipsNoise(t *testing.T) {
	e, ok := Parse("\x00\x1b[0m12:00:01 sched: inherit task=4 prio=3 tick=9001")
	if !ok {
		t.Fatal("Parse() ok = false, want true")
	}
	if e.Kind != KindInherit || e.Task != 4 || e.Prio != 3 || e.Tick != 9001 {
		t.Fatalf("Parse() = %+v", e)
	}
}

func TestParseRejects(t *testing.T) {
	for _, line := range []string{
		"",
		"led: HIGH",
		"sched:",
		"sched: teleport task=1",
		"sched: wake task=x",
		"sched: wake task",
	} {
		if _, ok := Parse(line); ok {
			t.Fatalf("Parse(%q) ok = true, want false", line)
		}
	}
}

func TestParseFormatted(t *testing.T) {
	in := Event{Kind: KindSwitch, From: 5, Task: 0, Prio: 0, Tick: 7}
	out, ok := Parse(Format(in))
	if !ok || out != in {
		t.Fatalf("Parse(Format(%+v)) = %+v, %v", in, out, ok)
	}
}
