package mdbcursor

import (
	"bytes"
	"errors"
)

// cursorState tracks cursor validity
type cursorState uint8

const (
	cursorUnpositioned cursorState = iota
	cursorPointing                 // Cursor is at a valid position
)

// position is an entry of the key space: a key, the group read when the
// cursor landed on it, and the index of the current value in that group.
type position struct {
	key   []byte
	group [][]byte
	idx   int
}

func (p *position) value() []byte {
	return p.group[p.idx]
}

// Result is what a successful operation returns.
//
// Key and Value describe the entry the cursor is positioned on afterwards.
// Batch is set only by GetMultiple and NextMultiple. Slices alias key space
// storage and stay valid for as long as the key space does.
type Result struct {
	Key   []byte
	Value []byte
	Batch [][]byte
}

// Cursor provides navigation through a KeySpace.
//
// A Cursor is not safe for concurrent use. Distinct cursors may share a key
// space if its reads are reentrant.
type Cursor struct {
	signature int32
	state     cursorState
	ks        KeySpace
	versioned Versioned // nil when ks cannot report changes
	isDupSort bool      // cached ks.Flags()&DupSort
	batchSize int

	pos     position
	version uint64 // ks version when pos was last confirmed

	userCtx any
}

// cursorSignature is the magic number for valid cursors
const cursorSignature int32 = 0x43555253 // "CURS"

// OpenCursor creates an unpositioned cursor bound to ks.
func OpenCursor(ks KeySpace) (*Cursor, error) {
	if ks == nil {
		return nil, newErrorf(ErrInvalidArgument, "nil key space")
	}
	c := &Cursor{signature: cursorSignature}
	c.batchSize = DefaultBatchSize
	c.bind(ks)
	return c, nil
}

func (c *Cursor) bind(ks KeySpace) {
	c.ks = ks
	c.versioned, _ = ks.(Versioned)
	c.isDupSort = isDupSort(ks)
	c.reset()
}

// valid returns true if the cursor is open.
func (c *Cursor) valid() bool {
	return c != nil && c.signature == cursorSignature && c.ks != nil
}

// Close releases the cursor. Later operations on it fail with
// ErrInvalidArgument and further calls to Close do nothing.
func (c *Cursor) Close() {
	if c == nil || c.signature != cursorSignature {
		return
	}
	c.signature = 0
	c.ks = nil
	c.versioned = nil
	c.userCtx = nil
	c.reset()
}

// Renew rebinds the cursor to ks, typically a fresh snapshot of the same
// table. The mode of ks must match the one the cursor was opened with.
func (c *Cursor) Renew(ks KeySpace) error {
	if !c.valid() {
		return ErrBadCursorError
	}
	if ks == nil || isDupSort(ks) != c.isDupSort {
		return newErrorf(ErrInvalidArgument, "renew with a key space of a different mode")
	}
	c.bind(ks)
	return nil
}

// KeySpace returns the key space the cursor is bound to.
func (c *Cursor) KeySpace() KeySpace {
	return c.ks
}

// BatchSize returns the maximum number of values per batch read.
func (c *Cursor) BatchSize() int {
	return c.batchSize
}

// SetBatchSize changes the batch size used by GetMultiple and NextMultiple.
func (c *Cursor) SetBatchSize(n int) error {
	if n < 1 || n > MaxBatchSize {
		return newErrorf(ErrInvalidArgument, "batch size %d outside [1, %d]", n, MaxBatchSize)
	}
	c.batchSize = n
	return nil
}

// SetUserCtx sets user context data on the cursor.
func (c *Cursor) SetUserCtx(ctx any) {
	c.userCtx = ctx
}

// UserCtx returns the user context data.
func (c *Cursor) UserCtx() any {
	return c.userCtx
}

// Positioned reports whether the cursor currently points at an entry.
func (c *Cursor) Positioned() bool {
	return c.state == cursorPointing
}

// Get retrieves key-value at the cursor position based on operation.
// For GetMultiple and NextMultiple the returned value is the batch
// concatenated, as mdbx-go does for DUPFIXED tables.
func (c *Cursor) Get(key, value []byte, op Op) ([]byte, []byte, error) {
	res, err := c.Apply(op, key, value)
	if err != nil {
		return nil, nil, err
	}
	if op.Category() == CategoryMultiple {
		return res.Key, bytes.Join(res.Batch, nil), nil
	}
	return res.Key, res.Value, nil
}

// Apply executes op. On success the cursor is positioned on Result.Key and
// Result.Value. ErrNotFound leaves it unpositioned; ErrInvalidArgument leaves
// it untouched.
func (c *Cursor) Apply(op Op, key, value []byte) (Result, error) {
	if !c.valid() {
		return Result{}, ErrBadCursorError
	}
	if err := c.check(op, key, value); err != nil {
		trace("cursor op rejected", "op", op, "err", err)
		return Result{}, err
	}

	var ver uint64
	if c.versioned != nil {
		ver = c.versioned.Version()
	}

	var (
		p   position
		res Result
		err error
	)
	switch op {
	case First:
		p, err = c.first()
	case Last:
		p, err = c.last()
	case Next:
		p, err = c.moveNext()
	case Prev:
		p, err = c.movePrev()
	case GetCurrent:
		p, err = c.current()
	case Set, SetKey:
		p, err = c.set(key)
	case SetRange:
		p, err = c.setRange(key)
	case FirstDup:
		p, err = c.firstDup()
	case LastDup:
		p, err = c.lastDup()
	case NextDup:
		p, err = c.nextDup()
	case PrevDup:
		p, err = c.prevDup()
	case NextNoDup:
		p, err = c.nextNoDup()
	case PrevNoDup:
		p, err = c.prevNoDup()
	case GetBoth:
		p, err = c.getBoth(key, value)
	case GetBothRange:
		p, err = c.getBothRange(key, value)
	case GetMultiple:
		p, res.Batch, err = c.getMultiple()
	case NextMultiple:
		p, res.Batch, err = c.nextMultiple()
	}

	if err != nil {
		if IsNotFound(err) {
			c.reset()
		}
		trace("cursor op failed", "op", op, "err", err)
		return Result{}, err
	}

	c.pos = p
	c.state = cursorPointing
	c.version = ver

	res.Key = p.key
	if op == Set {
		res.Key = key
	}
	res.Value = p.value()
	trace("cursor op", "op", op, "key", res.Key, "idx", p.idx)
	return res, nil
}

// check rejects requests that cannot be served in the current mode or state.
func (c *Cursor) check(op Op, key, value []byte) error {
	if !op.Valid() {
		return newErrorf(ErrInvalidArgument, "unknown cursor op %d", uint(op))
	}
	switch op.Args() {
	case ArgsKey:
		if key == nil {
			return newErrorf(ErrInvalidArgument, "%s requires a key", op)
		}
	case ArgsKeyValue:
		if key == nil || value == nil {
			return newErrorf(ErrInvalidArgument, "%s requires a key and a value", op)
		}
	}
	if op.needsDupSort() && !c.isDupSort {
		return newErrorf(ErrInvalidArgument, "%s requires a DupSort key space", op)
	}
	if op.Category() != CategorySeek && c.state != cursorPointing {
		return newErrorf(ErrInvalidArgument, "%s on an unpositioned cursor", op)
	}
	return nil
}

// reset makes the cursor unpositioned.
func (c *Cursor) reset() {
	c.state = cursorUnpositioned
	c.pos = position{}
	c.version = 0
}

// --- Internal cursor operations ---

// collaborator wraps a key space failure as ErrNotFound.
func collaborator(err error) error {
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return WrapError(ErrNotFound, err)
}

// load positions at key, on its first value or, if last is set, its last.
func (c *Cursor) load(key []byte, last bool) (position, error) {
	group, err := c.ks.Group(key)
	if err != nil {
		return position{}, collaborator(err)
	}
	if len(group) == 0 {
		return position{}, ErrNotFoundError
	}
	p := position{key: key, group: group}
	if last {
		p.idx = len(group) - 1
	}
	return p, nil
}

// loadFound is load for the (key, ok, err) triple the key space returns.
func (c *Cursor) loadFound(key []byte, ok bool, err error, last bool) (position, error) {
	if err != nil {
		return position{}, collaborator(err)
	}
	if !ok {
		return position{}, ErrNotFoundError
	}
	return c.load(key, last)
}

// current re-reads the cursor's entry from the key space. An entry that no
// longer exists yields ErrNotFound.
func (c *Cursor) current() (position, error) {
	if c.versioned != nil && c.versioned.Version() == c.version {
		return c.pos, nil
	}
	group, err := c.ks.Group(c.pos.key)
	if err != nil {
		return position{}, collaborator(err)
	}
	idx := indexOfValue(group, c.pos.value())
	if idx < 0 {
		trace("cursor position is stale", "key", c.pos.key)
		return position{}, ErrNotFoundError
	}
	return position{key: c.pos.key, group: group, idx: idx}, nil
}

// first positions at the first key.
func (c *Cursor) first() (position, error) {
	k, ok, err := c.ks.First()
	return c.loadFound(k, ok, err, false)
}

// last positions at the last value of the last key.
func (c *Cursor) last() (position, error) {
	k, ok, err := c.ks.Last()
	return c.loadFound(k, ok, err, true)
}

// moveNext moves to the next key-value.
// For DUPSORT key spaces, this iterates through all duplicates before moving to next key.
func (c *Cursor) moveNext() (position, error) {
	p, err := c.current()
	if err != nil {
		return position{}, err
	}
	if p.idx+1 < len(p.group) {
		p.idx++
		return p, nil
	}
	k, ok, err := c.ks.Next(p.key)
	return c.loadFound(k, ok, err, false)
}

// movePrev moves to the previous key-value, entering the previous key at its
// last duplicate.
func (c *Cursor) movePrev() (position, error) {
	p, err := c.current()
	if err != nil {
		return position{}, err
	}
	if p.idx > 0 {
		p.idx--
		return p, nil
	}
	k, ok, err := c.ks.Prev(p.key)
	return c.loadFound(k, ok, err, true)
}

// nextNoDup moves to the first value of the next key.
func (c *Cursor) nextNoDup() (position, error) {
	p, err := c.current()
	if err != nil {
		return position{}, err
	}
	k, ok, err := c.ks.Next(p.key)
	return c.loadFound(k, ok, err, false)
}

// prevNoDup moves to the last value of the previous key.
func (c *Cursor) prevNoDup() (position, error) {
	p, err := c.current()
	if err != nil {
		return position{}, err
	}
	k, ok, err := c.ks.Prev(p.key)
	return c.loadFound(k, ok, err, true)
}

// set positions at the first value of exactly key.
func (c *Cursor) set(key []byte) (position, error) {
	ok, err := c.ks.Exact(key)
	if err != nil {
		return position{}, collaborator(err)
	}
	if !ok {
		return position{}, ErrNotFoundError
	}
	return c.load(bytes.Clone(key), false)
}

// setRange positions at the first key >= key.
func (c *Cursor) setRange(key []byte) (position, error) {
	k, ok, err := c.ks.Seek(key)
	return c.loadFound(k, ok, err, false)
}

// searchGroup positions within the group of exactly key. With exact set the
// value must match; otherwise the least value >= value is taken.
func (c *Cursor) searchGroup(key, value []byte, exact bool) (position, error) {
	group, err := c.ks.Group(key)
	if err != nil {
		return position{}, collaborator(err)
	}
	if len(group) == 0 {
		return position{}, ErrNotFoundError
	}
	idx := searchValue(group, value)
	if idx == len(group) || (exact && !bytes.Equal(group[idx], value)) {
		return position{}, ErrNotFoundError
	}
	return position{key: bytes.Clone(key), group: group, idx: idx}, nil
}

// getBoth positions at the exact key-value pair.
func (c *Cursor) getBoth(key, value []byte) (position, error) {
	return c.searchGroup(key, value, true)
}

// getBothRange positions at key with the least value >= value.
func (c *Cursor) getBothRange(key, value []byte) (position, error) {
	return c.searchGroup(key, value, false)
}

// Count returns the number of values for the current key.
func (c *Cursor) Count() (uint64, error) {
	if !c.valid() {
		return 0, ErrBadCursorError
	}
	if c.state != cursorPointing {
		return 0, ErrNotFoundError
	}
	p, err := c.current()
	if err != nil {
		c.reset()
		return 0, err
	}
	return uint64(len(p.group)), nil
}

// OnFirst returns true if cursor is at the first value of the first key.
func (c *Cursor) OnFirst() bool {
	if c.state != cursorPointing || c.pos.idx != 0 {
		return false
	}
	k, ok, err := c.ks.First()
	return err == nil && ok && bytes.Equal(k, c.pos.key)
}

// OnLast returns true if cursor is at the last value of the last key.
func (c *Cursor) OnLast() bool {
	if c.state != cursorPointing || c.pos.idx != len(c.pos.group)-1 {
		return false
	}
	k, ok, err := c.ks.Last()
	return err == nil && ok && bytes.Equal(k, c.pos.key)
}

// ErrBadCursorError is returned by operations on a closed cursor.
var ErrBadCursorError = newErrorf(ErrInvalidArgument, "cursor is closed")
