package lilypad

import (
	"errors"
	"fmt"
)

// ContractError reports a step that reads a key no earlier step provides.
type ContractError struct {
	Index int
	Label string
	Key   string
}

// Error implements the error interface.
func (e *ContractError) Error() string {
	return fmt.Sprintf("step %d (%s) reads %q which nothing before it writes", e.Index, e.Label, e.Key)
}

// Unwrap returns ErrContractViolation.
func (e *ContractError) Unwrap() error {
	return ErrContractViolation
}

// checkContracts walks the steps in order and collects every declared read
// that is not covered by the initial keys or an earlier declared write.
func checkContracts(steps []step, initialKeys []string) error {
	available := make(map[string]bool, len(initialKeys))
	for _, k := range initialKeys {
		available[k] = true
	}

	var errs []error
	for i, st := range steps {
		if !st.seg.declared() {
			break
		}
		for _, k := range st.seg.reads {
			if !available[k] {
				errs = append(errs, &ContractError{Index: i, Label: st.sym.Raw, Key: k})
			}
		}
		for _, k := range st.seg.writes {
			available[k] = true
		}
	}
	return errors.Join(errs...)
}
