package mdbcursor

import "slices"

// Duplicate-scoped operations. check() has already verified the key space is
// DupSort and the cursor is positioned.

// firstDup positions at the first duplicate of the current key.
func (c *Cursor) firstDup() (position, error) {
	p, err := c.current()
	if err != nil {
		return position{}, err
	}
	p.idx = 0
	return p, nil
}

// lastDup positions at the last duplicate of the current key.
func (c *Cursor) lastDup() (position, error) {
	p, err := c.current()
	if err != nil {
		return position{}, err
	}
	p.idx = len(p.group) - 1
	return p, nil
}

// nextDup moves to the next duplicate of the current key.
func (c *Cursor) nextDup() (position, error) {
	p, err := c.current()
	if err != nil {
		return position{}, err
	}
	if p.idx+1 >= len(p.group) {
		return position{}, ErrNotFoundError
	}
	p.idx++
	return p, nil
}

// prevDup moves to the previous duplicate of the current key.
func (c *Cursor) prevDup() (position, error) {
	p, err := c.current()
	if err != nil {
		return position{}, err
	}
	if p.idx == 0 {
		return position{}, ErrNotFoundError
	}
	p.idx--
	return p, nil
}

// batch returns up to batchSize duplicates starting at start and leaves the
// position on the last one returned.
func (c *Cursor) batch(p position, start int) (position, [][]byte, error) {
	if start >= len(p.group) {
		return position{}, nil, ErrNotFoundError
	}
	end := min(len(p.group), start+c.batchSize)
	p.idx = end - 1
	return p, slices.Clone(p.group[start:end]), nil
}

// getMultiple reads a batch beginning at the current duplicate.
func (c *Cursor) getMultiple() (position, [][]byte, error) {
	p, err := c.current()
	if err != nil {
		return position{}, nil, err
	}
	return c.batch(p, p.idx)
}

// nextMultiple reads the batch following the current duplicate.
func (c *Cursor) nextMultiple() (position, [][]byte, error) {
	p, err := c.current()
	if err != nil {
		return position{}, nil, err
	}
	return c.batch(p, p.idx+1)
}
