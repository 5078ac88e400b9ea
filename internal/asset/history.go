package asset

import "time"

// HistoryLimit is the ring buffer capacity of an asset's edit history
const HistoryLimit = 10

// PushHistory records the current HTML as the previous value of an edit.
// The oldest entries are dropped once the history is full.
func (a *Asset) PushHistory(editType EditType, prompt string, at time.Time) {
	rec := EditRecord{
		Timestamp:    at,
		EditType:     editType,
		Prompt:       prompt,
		PreviousHTML: a.HTML,
	}
	a.EditHistory = append(a.EditHistory, rec)
	if over := len(a.EditHistory) - HistoryLimit; over > 0 {
		a.EditHistory = append([]EditRecord(nil), a.EditHistory[over:]...)
	}
}

// LastEdit returns the most recent history entry
func (a *Asset) LastEdit() (EditRecord, bool) {
	if len(a.EditHistory) == 0 {
		return EditRecord{}, false
	}
	return a.EditHistory[len(a.EditHistory)-1], true
}

// PopHistory removes and returns the most recent history entry
func (a *Asset) PopHistory() (EditRecord, bool) {
	rec, ok := a.LastEdit()
	if !ok {
		return rec, false
	}
	a.EditHistory = a.EditHistory[:len(a.EditHistory)-1]
	return rec, true
}
