package segment

import "fmt"

// Status is the workflow state of a TranslationUnit.
type Status string

const (
	StatusNew        Status = "new"
	StatusTranslated Status = "translated"
	StatusApproved   Status = "approved"
	StatusLocked     Status = "locked"
)

// TranslationUnit is one segment moving through the translation workflow.
type TranslationUnit struct {
	ID         string   `json:"id"`
	SourceText string   `json:"source_text"`
	TargetText string   `json:"target_text"`
	Status     Status   `json:"status"`
	Notes      []string `json:"notes"`
}

// Units wraps segments into new units with ids seg_1..seg_n.
func Units(segments []string) []TranslationUnit {
	units := make([]TranslationUnit, len(segments))
	for i, seg := range segments {
		units[i] = TranslationUnit{
			ID:         fmt.Sprintf("seg_%d", i+1),
			SourceText: seg,
			Status:     StatusNew,
			Notes:      []string{},
		}
	}
	return units
}

// Translate records a machine translation on the unit. Approved and locked
// units are left untouched.
func (u *TranslationUnit) Translate(target string) bool {
	if u.Status == StatusApproved || u.Status == StatusLocked {
		return false
	}
	u.TargetText = target
	u.Status = StatusTranslated
	return true
}

// AddNote appends a reviewer or QA note.
func (u *TranslationUnit) AddNote(note string) {
	u.Notes = append(u.Notes, note)
}
