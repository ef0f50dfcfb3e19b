package domain

import "strings"

// CaseRecord is everything stored for one patient identifier. The JSON tags
// are the on-disk field names of the patients document and must not change.
type CaseRecord struct {
	Symptoms       string        `json:"sintomas"`
	MedicalHistory string        `json:"historico"`
	ExamNotes      string        `json:"exames"`
	Analyses       []string      `json:"respostas"`
	Interactions   []Interaction `json:"interacao"`
}

// Interaction is one chat turn.
type Interaction struct {
	Question string `json:"pergunta"`
	Answer   string `json:"resposta"`
}

// Intake holds the values submitted on the intake form.
type Intake struct {
	Symptoms       string `json:"symptoms"`
	MedicalHistory string `json:"medical_history"`
	ExamNotes      string `json:"exams"`
}

// CaseContext is the slice of a CaseRecord the answer router needs to build
// a generative prompt.
type CaseContext struct {
	Symptoms       string
	MedicalHistory string
	ExamNotes      string
}

// NewCaseRecord creates the record written on a patient's first intake.
func NewCaseRecord(intake Intake, analysis string) *CaseRecord {
	rec := &CaseRecord{
		Symptoms:       intake.Symptoms,
		MedicalHistory: intake.MedicalHistory,
		ExamNotes:      intake.ExamNotes,
		Analyses:       []string{},
		Interactions:   []Interaction{},
	}
	if analysis != "" {
		rec.Analyses = append(rec.Analyses, analysis)
	}
	return rec
}

// ApplyIntake overwrites the intake fields and appends a non-empty analysis.
// Interactions are left untouched.
func (r *CaseRecord) ApplyIntake(intake Intake, analysis string) {
	r.Symptoms = intake.Symptoms
	r.MedicalHistory = intake.MedicalHistory
	r.ExamNotes = intake.ExamNotes
	if analysis != "" {
		r.Analyses = append(r.Analyses, analysis)
	}
}

// AppendInteraction records a chat turn at the end of the transcript.
func (r *CaseRecord) AppendInteraction(turn Interaction) {
	r.Interactions = append(r.Interactions, turn)
}

// Context returns the prompt context of the record. A nil record yields an
// empty context.
func (r *CaseRecord) Context() CaseContext {
	if r == nil {
		return CaseContext{}
	}
	return CaseContext{
		Symptoms:       r.Symptoms,
		MedicalHistory: r.MedicalHistory,
		ExamNotes:      r.ExamNotes,
	}
}

// HasIntake reports whether the record was created or updated by an intake
// submission. Records created by a chat turn alone have no intake fields.
func (r *CaseRecord) HasIntake() bool {
	return r != nil && (r.Symptoms != "" || r.MedicalHistory != "" || r.ExamNotes != "" || len(r.Analyses) > 0)
}

// Normalize replaces nil slices so the record always serializes with lists.
func (r *CaseRecord) Normalize() {
	if r.Analyses == nil {
		r.Analyses = []string{}
	}
	if r.Interactions == nil {
		r.Interactions = []Interaction{}
	}
}

// Clone returns a deep copy of the record.
func (r *CaseRecord) Clone() *CaseRecord {
	if r == nil {
		return nil
	}
	c := *r
	c.Analyses = append([]string{}, r.Analyses...)
	c.Interactions = append([]Interaction{}, r.Interactions...)
	return &c
}

// KnowledgeEntry is one topic of a knowledge base document.
type KnowledgeEntry struct {
	Definition string   `json:"definicao"`
	Causes     []string `json:"causas"`
	Symptoms   []string `json:"sintomas"`
	Treatments []string `json:"tratamentos"`
	Prevention []string `json:"prevenção"`
	Diagnosis  string   `json:"diagnostico"`
}

// KnowledgeBase maps a topic identifier to its entry.
type KnowledgeBase map[string]KnowledgeEntry

// Blank reports whether s is empty once surrounding whitespace is removed.
func Blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
