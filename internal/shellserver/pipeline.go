package shellserver

import (
	"errors"
	"fmt"
	"sync"
)

var (
	ErrBatchInProgress = errors.New("shellserver: batch already in progress")
	ErrNoBatch         = errors.New("shellserver: no batch in progress")
	ErrEntryNotFound   = errors.New("shellserver: table entry not found")
	ErrUnknownRegister = errors.New("shellserver: unknown register")
)

// Pipeline is the live table/register state of one bound program. The
// dispatch loop only knows how to route parsed commands into it; a real
// deployment binds the runtime shell here, tests and standalone runs use
// MemPipeline.
type Pipeline interface {
	BatchBegin() error
	BatchEnd() error

	TableAdd(table, action string, args []string) error
	TableModify(table, action string, args []string) error
	TableSetDefault(table, action string, args []string) error
	TableDelete(table string, keys []string) error
	TableClear(table string, batch bool) error

	RegisterWrite(register string, index int, value string) error
	RegisterSync(register string) error

	// Reset drops all entries, defaults and registers, equivalent to a full
	// table-clear across the pipeline.
	Reset() error
}

type tableEntry struct {
	action string
	args   []string
}

type memTable struct {
	entries       []tableEntry
	defaultAction string
	defaultArgs   []string
}

// MemPipeline is an in-memory Pipeline. Entries are stored with their full
// argument list; deletion matches on the leading arguments, since match keys
// precede action parameters in the command dialect.
type MemPipeline struct {
	mu        sync.Mutex
	tables    map[string]*memTable
	registers map[string]map[int]string
	inBatch   bool
}

var _ Pipeline = (*MemPipeline)(nil)

func NewMemPipeline() *MemPipeline {
	return &MemPipeline{
		tables:    make(map[string]*memTable),
		registers: make(map[string]map[int]string),
	}
}

func (p *MemPipeline) BatchBegin() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inBatch {
		return ErrBatchInProgress
	}
	p.inBatch = true
	return nil
}

func (p *MemPipeline) BatchEnd() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.inBatch {
		return ErrNoBatch
	}
	p.inBatch = false
	return nil
}

func (p *MemPipeline) table(name string) *memTable {
	t, ok := p.tables[name]
	if !ok {
		t = &memTable{}
		p.tables[name] = t
	}
	return t
}

func (p *MemPipeline) TableAdd(table, action string, args []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.table(table).entries = append(p.table(table).entries, tableEntry{action: action, args: args})
	return nil
}

func (p *MemPipeline) TableModify(table, action string, args []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	t := p.table(table)
	for i := range t.entries {
		if matchesKeys(t.entries[i].args, args) {
			t.entries[i] = tableEntry{action: action, args: args}
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrEntryNotFound, table)
}

func (p *MemPipeline) TableSetDefault(table, action string, args []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	t := p.table(table)
	t.defaultAction = action
	t.defaultArgs = args
	return nil
}

func (p *MemPipeline) TableDelete(table string, keys []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	t := p.table(table)
	for i := range t.entries {
		if matchesKeys(t.entries[i].args, keys) {
			t.entries = append(t.entries[:i], t.entries[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrEntryNotFound, table)
}

func (p *MemPipeline) TableClear(table string, batch bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if batch && p.inBatch {
		return ErrBatchInProgress
	}
	p.table(table).entries = nil
	return nil
}

func (p *MemPipeline) RegisterWrite(register string, index int, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	reg, ok := p.registers[register]
	if !ok {
		reg = make(map[int]string)
		p.registers[register] = reg
	}
	reg[index] = value
	return nil
}

func (p *MemPipeline) RegisterSync(register string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.registers[register]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownRegister, register)
	}
	return nil
}

func (p *MemPipeline) Reset() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tables = make(map[string]*memTable)
	p.registers = make(map[string]map[int]string)
	return nil
}

// EntryCount reports how many entries table holds. Used by the admin
// surface and tests.
func (p *MemPipeline) EntryCount(table string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	t, ok := p.tables[table]
	if !ok {
		return 0
	}
	return len(t.entries)
}

// RegisterValue reads back a register cell. Used by the admin surface and
// tests.
func (p *MemPipeline) RegisterValue(register string, index int) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	reg, ok := p.registers[register]
	if !ok {
		return "", false
	}
	v, ok := reg[index]
	return v, ok
}

// DefaultAction reads back a table's default action. Used by tests.
func (p *MemPipeline) DefaultAction(table string) (string, []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	t, ok := p.tables[table]
	if !ok {
		return "", nil
	}
	return t.defaultAction, t.defaultArgs
}

// matchesKeys reports whether keys are the leading arguments of args.
func matchesKeys(args, keys []string) bool {
	if len(keys) > len(args) {
		return false
	}
	for i, k := range keys {
		if args[i] != k {
			return false
		}
	}
	return true
}
