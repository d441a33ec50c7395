package mdbcursor

import "strings"

// Op identifies a cursor positioning request.
//
// The numeric value of every Op is part of the binary interface shared with
// LMDB, MDBX and the jmdb binding. Codes are spelled out below instead of being
// derived with iota so that reordering the declarations cannot change what
// goes over the wire.
type Op uint

// Cursor operations
const (
	// First positions at the first key
	First Op = 0
	// FirstDup positions at the first duplicate of current key
	FirstDup Op = 1
	// GetBoth positions at exact key-value pair
	GetBoth Op = 2
	// GetBothRange positions at key with value >= specified
	GetBothRange Op = 3
	// GetCurrent returns current key-value
	GetCurrent Op = 4
	// GetMultiple returns a batch of duplicates starting at the current one
	GetMultiple Op = 5
	// Last positions at the last key
	Last Op = 6
	// LastDup positions at the last duplicate of current key
	LastDup Op = 7
	// Next moves to the next key-value
	Next Op = 8
	// NextDup moves to the next duplicate of current key
	NextDup Op = 9
	// NextMultiple returns the batch following the last one returned
	NextMultiple Op = 10
	// NextNoDup moves to the first value of next key
	NextNoDup Op = 11
	// Prev moves to the previous key-value
	Prev Op = 12
	// PrevDup moves to the previous duplicate of current key
	PrevDup Op = 13
	// PrevNoDup moves to the last value of previous key
	PrevNoDup Op = 14
	// Set positions at specified key
	Set Op = 15
	// SetKey positions at key, returns key and value
	SetKey Op = 16
	// SetRange positions at first key >= specified
	SetRange Op = 17
)

// numOps is the size of the closed operation set.
const numOps = 18

// ArgShape describes which arguments an Op consumes.
type ArgShape uint8

const (
	// ArgsNone means key and value are ignored
	ArgsNone ArgShape = iota
	// ArgsKey requires a key
	ArgsKey
	// ArgsKeyValue requires a key and a value
	ArgsKeyValue
)

func (a ArgShape) String() string {
	switch a {
	case ArgsNone:
		return "none"
	case ArgsKey:
		return "key"
	case ArgsKeyValue:
		return "key+value"
	}
	return "unknown"
}

// Category groups operations by how they reposition the cursor.
type Category uint8

const (
	// CategorySeek positions from scratch, independent of current state
	CategorySeek Category = iota
	// CategoryStep moves relative to the current position across keys
	CategoryStep
	// CategoryDup moves within the duplicate group of the current key
	CategoryDup
	// CategoryMultiple reads a batch of duplicates
	CategoryMultiple
	// CategoryCurrent re-reads the current position
	CategoryCurrent
)

func (c Category) String() string {
	switch c {
	case CategorySeek:
		return "absolute-seek"
	case CategoryStep:
		return "relative-step"
	case CategoryDup:
		return "duplicate-scoped"
	case CategoryMultiple:
		return "bulk"
	case CategoryCurrent:
		return "current-read"
	}
	return "unknown"
}

type opInfo struct {
	name     string
	args     ArgShape
	category Category
}

// opTable is indexed by code.
var opTable = [numOps]opInfo{
	First:        {"MDB_FIRST", ArgsNone, CategorySeek},
	FirstDup:     {"MDB_FIRST_DUP", ArgsNone, CategoryDup},
	GetBoth:      {"MDB_GET_BOTH", ArgsKeyValue, CategorySeek},
	GetBothRange: {"MDB_GET_BOTH_RANGE", ArgsKeyValue, CategorySeek},
	GetCurrent:   {"MDB_GET_CURRENT", ArgsNone, CategoryCurrent},
	GetMultiple:  {"MDB_GET_MULTIPLE", ArgsNone, CategoryMultiple},
	Last:         {"MDB_LAST", ArgsNone, CategorySeek},
	LastDup:      {"MDB_LAST_DUP", ArgsNone, CategoryDup},
	Next:         {"MDB_NEXT", ArgsNone, CategoryStep},
	NextDup:      {"MDB_NEXT_DUP", ArgsNone, CategoryDup},
	NextMultiple: {"MDB_NEXT_MULTIPLE", ArgsNone, CategoryMultiple},
	NextNoDup:    {"MDB_NEXT_NODUP", ArgsNone, CategoryStep},
	Prev:         {"MDB_PREV", ArgsNone, CategoryStep},
	PrevDup:      {"MDB_PREV_DUP", ArgsNone, CategoryDup},
	PrevNoDup:    {"MDB_PREV_NODUP", ArgsNone, CategoryStep},
	Set:          {"MDB_SET", ArgsKey, CategorySeek},
	SetKey:       {"MDB_SET_KEY", ArgsKey, CategorySeek},
	SetRange:     {"MDB_SET_RANGE", ArgsKey, CategorySeek},
}

// Code returns the stable integer code of the operation.
func (op Op) Code() uint {
	return uint(op)
}

// Valid reports whether op is a member of the operation set.
func (op Op) Valid() bool {
	return op < numOps
}

// String returns the MDB_* name of the operation.
func (op Op) String() string {
	if !op.Valid() {
		return "MDB_UNKNOWN"
	}
	return opTable[op].name
}

// Args returns the argument shape the operation requires.
func (op Op) Args() ArgShape {
	if !op.Valid() {
		return ArgsNone
	}
	return opTable[op].args
}

// Category returns the semantic category of the operation.
func (op Op) Category() Category {
	if !op.Valid() {
		return CategorySeek
	}
	return opTable[op].category
}

// needsDupSort reports whether op is only meaningful on a DupSort key space.
func (op Op) needsDupSort() bool {
	c := op.Category()
	return op.Valid() && (c == CategoryDup || c == CategoryMultiple)
}

// Ops returns every operation in code order.
func Ops() []Op {
	ops := make([]Op, numOps)
	for i := range ops {
		ops[i] = Op(i)
	}
	return ops
}

// OpFromCode converts a wire code to an Op.
func OpFromCode(code uint) (Op, error) {
	op := Op(code)
	if !op.Valid() {
		return 0, newErrorf(ErrInvalidArgument, "unknown cursor op code %d", code)
	}
	return op, nil
}

// ParseOp accepts "MDB_SET_RANGE", "SET_RANGE" or "SetRange" (case-insensitive).
func ParseOp(name string) (Op, error) {
	norm := strings.ToUpper(strings.ReplaceAll(name, "_", ""))
	norm = strings.TrimPrefix(norm, "MDB")
	for i, info := range opTable {
		if strings.ReplaceAll(strings.TrimPrefix(info.name, "MDB_"), "_", "") == norm {
			return Op(i), nil
		}
	}
	return 0, newErrorf(ErrInvalidArgument, "unknown cursor op %q", name)
}

// KeySpace flags (untyped uint constants for mdbx-go compatibility)
const (
	// DBDefaults is a simple key space: one value per key
	DBDefaults uint = 0

	// DupSort allows multiple values per key (sorted)
	DupSort uint = 0x04
)

// Batch limits for GetMultiple and NextMultiple
const (
	// DefaultBatchSize is the number of values returned per batch unless
	// changed with Cursor.SetBatchSize
	DefaultBatchSize = 64

	// MaxBatchSize bounds the memory a single batch read can pin
	MaxBatchSize = 4096
)

// Log level constants (mdbx-go compatibility)
type LogLvl int

const (
	LogLvlFatal       LogLvl = 0
	LogLvlError       LogLvl = 1
	LogLvlWarn        LogLvl = 2
	LogLvlNotice      LogLvl = 3
	LogLvlVerbose     LogLvl = 4
	LogLvlDebug       LogLvl = 5
	LogLvlTrace       LogLvl = 6
	LogLvlExtra       LogLvl = 7
	LogLvlDoNotChange LogLvl = -1
)
