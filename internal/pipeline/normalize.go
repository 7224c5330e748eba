package pipeline

import "github.com/ppiankov/thermobook/internal/model"

// Normalize finalizes an accumulator into the emitted record.
// Only identity and property fields survive; walk bookkeeping is dropped.
func Normalize(acc *Accumulator) *model.Substance {
	if acc == nil || acc.Record == nil {
		return nil
	}
	return acc.Record.Freeze()
}
