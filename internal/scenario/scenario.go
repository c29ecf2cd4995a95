// Package scenario describes kernel workloads: which tasks exist, at what
// priority, what each one does, and which semaphores and mutexes they share.
// Scenarios are YAML documents; a few are embedded for boards without a
// filesystem.
package scenario

import (
	"embed"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v2"
)

// Scenario is one workload.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`

	// TimeSlice overrides the kernel's round-robin quantum, in ticks.
	TimeSlice uint32 `yaml:"time_slice,omitempty"`

	Semaphores []Semaphore `yaml:"semaphores,omitempty"`
	Mutexes    []Mutex     `yaml:"mutexes,omitempty"`
	Tasks      []Task      `yaml:"tasks"`
}

// Semaphore declares a counting semaphore.
type Semaphore struct {
	Name  string `yaml:"name"`
	Count uint32 `yaml:"count"`
}

// Mutex declares a mutex.
type Mutex struct {
	Name string `yaml:"name"`
}

// Task declares one task.
type Task struct {
	Name     string `yaml:"name"`
	Priority string `yaml:"priority"`
	// Deferred tasks are not created at boot; another task spawns them.
	Deferred bool `yaml:"deferred,omitempty"`
	// Repeat is the number of passes over Program. Zero loops forever.
	Repeat  int  `yaml:"repeat,omitempty"`
	Program []Op `yaml:"program"`
}

// Op is one program step. Exactly one field is set.
type Op struct {
	Work   int    `yaml:"work,omitempty"`
	Lend   string `yaml:"lend,omitempty"`
	Return string `yaml:"return,omitempty"`
	Lock   string `yaml:"lock,omitempty"`
	Unlock string `yaml:"unlock,omitempty"`
	Log    string `yaml:"log,omitempty"`
	Spawn  string `yaml:"spawn,omitempty"`
}

// OpKind names the step an Op performs.
type OpKind uint8

const (
	OpInvalid OpKind = iota
	OpWork
	OpLend
	OpReturn
	OpLock
	OpUnlock
	OpLog
	OpSpawn
)

func (k OpKind) String() string {
	switch k {
	case OpWork:
		return "work"
	case OpLend:
		return "lend"
	case OpReturn:
		return "return"
	case OpLock:
		return "lock"
	case OpUnlock:
		return "unlock"
	case OpLog:
		return "log"
	case OpSpawn:
		return "spawn"
	default:
		return "invalid"
	}
}

// Kind returns the step kind and its operand. A step with zero or several
// fields set is OpInvalid.
func (o Op) Kind() (OpKind, string) {
	kind, arg, n := OpInvalid, "", 0
	set := func(k OpKind, v string) {
		kind, arg = k, v
		n++
	}
	if o.Work != 0 {
		set(OpWork, "")
	}
	if o.Lend != "" {
		set(OpLend, o.Lend)
	}
	if o.Return != "" {
		set(OpReturn, o.Return)
	}
	if o.Lock != "" {
		set(OpLock, o.Lock)
	}
	if o.Unlock != "" {
		set(OpUnlock, o.Unlock)
	}
	if o.Log != "" {
		set(OpLog, o.Log)
	}
	if o.Spawn != "" {
		set(OpSpawn, o.Spawn)
	}
	if n != 1 {
		return OpInvalid, ""
	}
	return kind, arg
}

// Priorities lists the accepted priority names, lowest first.
var Priorities = []string{"none", "low", "med", "high"}

// PriorityLevel returns the numeric level of a priority name.
func PriorityLevel(name string) (uint8, bool) {
	for i, p := range Priorities {
		if strings.EqualFold(name, p) {
			return uint8(i), true
		}
	}
	return 0, false
}

// Parse decodes and validates a scenario document. Unknown keys are errors.
func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.UnmarshalStrict(data, &s); err != nil {
		return nil, fmt.Errorf("scenario: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Load reads a scenario file.
func Load(file string) (*Scenario, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("scenario: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	return s, nil
}

//go:embed scenarios/*.yaml
var builtin embed.FS

// Builtin returns an embedded scenario by name.
func Builtin(name string) (*Scenario, error) {
	data, err := builtin.ReadFile(path.Join("scenarios", name+".yaml"))
	if err != nil {
		return nil, fmt.Errorf("scenario: no builtin %q", name)
	}
	return Parse(data)
}

// BuiltinNames lists the embedded scenarios in sorted order.
func BuiltinNames() []string {
	entries, _ := builtin.ReadDir("scenarios")
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names
}

// Open resolves ref as a builtin name first and as a file path otherwise.
func Open(ref string) (*Scenario, error) {
	for _, name := range BuiltinNames() {
		if name == ref {
			return Builtin(ref)
		}
	}
	return Load(ref)
}
