package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/Giulio2002/mdbcursor"
)

// OpParam decodes an operation given by name or by code.
type OpParam struct {
	Op  mdbcursor.Op
	Set bool
}

func (p *OpParam) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*p = OpParam{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		op, err := mdbcursor.ParseOp(name)
		if err != nil {
			return err
		}
		*p = OpParam{Op: op, Set: true}
		return nil
	}
	var code uint
	if err := json.Unmarshal(data, &code); err != nil {
		return fmt.Errorf("op must be a name or a non-negative code: %w", err)
	}
	op, err := mdbcursor.OpFromCode(code)
	if err != nil {
		return err
	}
	*p = OpParam{Op: op, Set: true}
	return nil
}

func (p OpParam) MarshalJSON() ([]byte, error) {
	if !p.Set {
		return []byte("null"), nil
	}
	return json.Marshal(p.Op.String())
}
